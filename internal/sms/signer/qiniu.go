package signer

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
)

// QiniuAuthorization returns the "Qiniu <ak>:<sign>" header for a request.
// The body is signed unless the content type is application/octet-stream.
func QiniuAuthorization(accessKey, secretKey, method, rawURL, contentType string, body []byte) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("qiniu: parse url: %w", err)
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}

	var b strings.Builder
	b.WriteString(strings.ToUpper(method))
	b.WriteByte(' ')
	b.WriteString(path)
	if u.RawQuery != "" {
		b.WriteByte('?')
		b.WriteString(u.RawQuery)
	}
	b.WriteString("\nHost: ")
	b.WriteString(u.Host)
	if contentType != "" {
		b.WriteString("\nContent-Type: ")
		b.WriteString(contentType)
	}
	b.WriteString("\n\n")
	if len(body) > 0 && contentType != "" && contentType != "application/octet-stream" {
		b.Write(body)
	}

	sign := base64.URLEncoding.EncodeToString(hmacSHA1([]byte(secretKey), b.String()))
	return "Qiniu " + accessKey + ":" + sign, nil
}
