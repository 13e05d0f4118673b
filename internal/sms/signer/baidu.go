package signer

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// BCERequest is the input of a Baidu Cloud bce-auth-v1 signature.
type BCERequest struct {
	AccessKey  string
	SecretKey  string
	Timestamp  string // UTC, 2006-01-02T15:04:05Z
	Expiration int    // seconds; 1800 when zero
	Method     string
	Path       string
	Headers    map[string]string // all of them are signed
}

// BCEAuthorization returns the Authorization header value for r. The query
// string is not signed because the SMS API takes none.
func BCEAuthorization(r BCERequest) string {
	expiration := r.Expiration
	if expiration == 0 {
		expiration = 1800
	}
	authString := fmt.Sprintf("bce-auth-v1/%s/%s/%d", r.AccessKey, r.Timestamp, expiration)
	signingKey := hex.EncodeToString(hmacSHA256([]byte(r.SecretKey), authString))

	names := make([]string, 0, len(r.Headers))
	lines := make([]string, 0, len(r.Headers))
	for k, v := range r.Headers {
		name := strings.ToLower(strings.TrimSpace(k))
		names = append(names, name)
		lines = append(lines, PercentEncode(name)+":"+PercentEncode(strings.TrimSpace(v)))
	}
	sort.Strings(names)
	sort.Strings(lines)

	canonicalRequest := strings.ToUpper(r.Method) + "\n" +
		canonicalURI(r.Path) + "\n" +
		"\n" +
		strings.Join(lines, "\n")

	signature := hex.EncodeToString(hmacSHA256([]byte(signingKey), canonicalRequest))
	return authString + "/" + strings.Join(names, ";") + "/" + signature
}

func canonicalURI(path string) string {
	if path == "" {
		return "/"
	}
	return strings.ReplaceAll(PercentEncode(path), "%2F", "/")
}
