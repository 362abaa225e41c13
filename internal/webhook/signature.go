package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const SignatureHeader = "X-Hub-Signature-256"

// Sign computes the sha256=<hex> header value for body.
func Sign(appSecret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func VerifySignature(appSecret string, body []byte, provided string) bool {
	if !strings.HasPrefix(provided, "sha256=") {
		return false
	}
	return hmac.Equal([]byte(Sign(appSecret, body)), []byte(provided))
}
