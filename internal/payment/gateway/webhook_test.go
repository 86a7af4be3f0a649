package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerifyPayload(t *testing.T) {
	body := []byte("tran_id=abc123&status=VALID&amount=200.00")
	secret := "store-password"

	sig := SignPayload(body, secret)
	require.NotEmpty(t, sig)

	assert.True(t, VerifyPayload(body, sig, secret))
}

func TestVerifyPayloadRejectsTamperedBody(t *testing.T) {
	body := []byte("tran_id=abc123&status=VALID&amount=200.00")
	secret := "store-password"
	sig := SignPayload(body, secret)

	tampered := []byte("tran_id=abc123&status=VALID&amount=9999.00")
	assert.False(t, VerifyPayload(tampered, sig, secret))
}

func TestVerifyPayloadRejectsWrongSecret(t *testing.T) {
	body := []byte("tran_id=abc123&status=VALID")
	sig := SignPayload(body, "right-secret")

	assert.False(t, VerifyPayload(body, sig, "wrong-secret"))
}

func TestVerifyPayloadRejectsEmptySignature(t *testing.T) {
	body := []byte("tran_id=abc123&status=VALID")

	// An absent signature must never verify, even for an empty secret
	assert.False(t, VerifyPayload(body, "", "secret"))
	assert.False(t, VerifyPayload(body, "", ""))
}
