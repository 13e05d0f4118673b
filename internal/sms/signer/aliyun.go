package signer

import (
	"encoding/base64"
	"sort"
	"strings"
)

// AliyunCanonicalQuery sorts params by key and joins the percent-encoded
// pairs with '&'.
func AliyunCanonicalQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(PercentEncode(k))
		b.WriteByte('=')
		b.WriteString(PercentEncode(params[k]))
	}
	return b.String()
}

// AliyunRPC computes the Signature parameter of an Aliyun RPC-style API
// call (SignatureMethod HMAC-SHA1, SignatureVersion 1.0). params must not
// contain Signature.
func AliyunRPC(method string, params map[string]string, accessKeySecret string) string {
	stringToSign := strings.ToUpper(method) + "&" + PercentEncode("/") + "&" + PercentEncode(AliyunCanonicalQuery(params))
	return base64.StdEncoding.EncodeToString(hmacSHA1([]byte(accessKeySecret+"&"), stringToSign))
}
