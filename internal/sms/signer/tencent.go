package signer

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

const tc3Algorithm = "TC3-HMAC-SHA256"

// TC3Request is the input of a Tencent Cloud API v3 signature.
type TC3Request struct {
	SecretID    string
	SecretKey   string
	Service     string // e.g. "sms"
	Host        string // e.g. "sms.tencentcloudapi.com"
	ContentType string // sent verbatim; it is one of the signed headers
	Timestamp   int64  // unix seconds, also sent as X-TC-Timestamp
	Payload     []byte // exact request body
}

// TC3Signature returns the hex signature for r.
func TC3Signature(r TC3Request) string {
	date := time.Unix(r.Timestamp, 0).UTC().Format("2006-01-02")

	canonicalRequest := "POST\n/\n\n" +
		"content-type:" + r.ContentType + "\n" +
		"host:" + r.Host + "\n\n" +
		"content-type;host\n" +
		sha256Hex(r.Payload)

	scope := date + "/" + r.Service + "/tc3_request"
	stringToSign := tc3Algorithm + "\n" +
		strconv.FormatInt(r.Timestamp, 10) + "\n" +
		scope + "\n" +
		sha256Hex([]byte(canonicalRequest))

	secretDate := hmacSHA256([]byte("TC3"+r.SecretKey), date)
	secretService := hmacSHA256(secretDate, r.Service)
	secretSigning := hmacSHA256(secretService, "tc3_request")
	return hex.EncodeToString(hmacSHA256(secretSigning, stringToSign))
}

// TC3Authorization returns the Authorization header value for r.
func TC3Authorization(r TC3Request) string {
	date := time.Unix(r.Timestamp, 0).UTC().Format("2006-01-02")
	return fmt.Sprintf("%s Credential=%s/%s/%s/tc3_request, SignedHeaders=content-type;host, Signature=%s",
		tc3Algorithm, r.SecretID, date, r.Service, TC3Signature(r))
}
