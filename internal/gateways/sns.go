package gateways

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/hpyer/easysms/internal/sms"
)

// SNSPublisher abstracts the AWS SNS Publish call for testability.
type SNSPublisher interface {
	Publish(ctx context.Context, phoneNumber, message string) (messageID string, err error)
}

// SNS sends text via AWS SNS direct-to-phone publishing.
//
// Config: region (us-east-1), access_key_id and secret_access_key (optional,
// the default AWS credential chain is used otherwise).
type SNS struct {
	*sms.BaseGateway
	publisher SNSPublisher
}

// NewSNS creates an SNS gateway that publishes through p.
func NewSNS(cfg sms.GatewayConfig, p SNSPublisher) *SNS {
	return &SNS{BaseGateway: sms.NewBaseGateway(cfg), publisher: p}
}

func newSNSFromConfig(cfg sms.GatewayConfig, opts ...Option) (sms.Gateway, error) {
	o := buildOptions(opts)
	if o.publisher != nil {
		return NewSNS(cfg, o.publisher), nil
	}
	p, err := NewSNSPublisher(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	return NewSNS(cfg, p), nil
}

func (g *SNS) Send(ctx context.Context, to sms.PhoneNumber, msg *sms.Message) (sms.Body, error) {
	text, err := sms.RenderText(ctx, g, msg)
	if err != nil {
		return nil, fmt.Errorf("sns: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.Timeout())
	defer cancel()

	messageID, err := g.publisher.Publish(ctx, to.UniversalNumber(), text)
	if err != nil {
		return nil, fmt.Errorf("sns: publish: %w", err)
	}
	return sms.Body{"message_id": messageID, "status": "sent"}, nil
}

// awsPublisher wraps the AWS SNS client to implement SNSPublisher.
type awsPublisher struct {
	client *sns.Client
}

// NewSNSPublisher builds an SNSPublisher from the gateway config.
func NewSNSPublisher(ctx context.Context, cfg sms.GatewayConfig) (SNSPublisher, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.StringOr("region", "us-east-1")),
	}
	if key := cfg.String("access_key_id"); key != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(key, cfg.String("secret_access_key"), ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &awsPublisher{client: sns.NewFromConfig(awsCfg)}, nil
}

func (a *awsPublisher) Publish(ctx context.Context, phoneNumber, message string) (string, error) {
	out, err := a.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(phoneNumber),
		Message:     aws.String(message),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.MessageId), nil
}
