// Package signer implements the request signing schemes of the supported
// SMS vendors. Every function is pure: the caller supplies timestamps and
// nonces so results are reproducible.
package signer

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// PercentEncode escapes s per RFC 3986: only A-Z a-z 0-9 - _ . ~ are left
// as-is and spaces become %20.
func PercentEncode(s string) string {
	e := url.QueryEscape(s)
	e = strings.ReplaceAll(e, "+", "%20")
	e = strings.ReplaceAll(e, "*", "%2A")
	e = strings.ReplaceAll(e, "%7E", "~")
	return e
}

func hmacSHA256(key []byte, msg string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(msg))
	return mac.Sum(nil)
}

func hmacSHA1(key []byte, msg string) []byte {
	mac := hmac.New(sha1.New, key)
	mac.Write([]byte(msg))
	return mac.Sum(nil)
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
