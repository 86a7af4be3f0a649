package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// =====================================================
// WEBHOOK SIGNATURE
// =====================================================
// Shared HMAC-SHA256 scheme for gateways that sign the raw request body
// and ship the hex digest in the X-Signature header. Gateways with a
// proprietary scheme override inside their own driver.

// SignPayload computes the hex HMAC-SHA256 of a raw payload.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPayload checks a received signature against the raw payload
// using a constant-time comparison. An empty signature never verifies.
func VerifyPayload(payload []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	expected := SignPayload(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
