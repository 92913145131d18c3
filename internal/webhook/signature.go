package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/freelanceops/billing/internal/types"
)

// Sign returns the X-Signature header value for body: "sha256=" followed by the
// lowercase hex HMAC-SHA256 of the exact bytes sent, keyed by the destination secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return types.WebhookSignaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a received X-Signature header against body in constant time
func VerifySignature(secret string, body []byte, header string) bool {
	if !strings.HasPrefix(header, types.WebhookSignaturePrefix) {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(header, types.WebhookSignaturePrefix))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
