package sslcommerz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paygate/internal/payment/gateway"
	"paygate/internal/payment/model"
)

func testClient() *Client {
	return &Client{
		config: &Config{
			StoreID:       "teststore",
			StorePassword: "testpass",
			Sandbox:       true,
		},
		api: gateway.NewAPIClient("sslcommerz"),
	}
}

func signedCallback(secret, body string, fields map[string]string) gateway.CallbackData {
	return gateway.CallbackData{
		Kind:      model.CallbackIPN,
		Body:      []byte(body),
		Signature: gateway.SignPayload([]byte(body), secret),
		Fields:    fields,
	}
}

func TestIPNAcceptsSignedNotification(t *testing.T) {
	client := testClient()

	body := "tran_id=txn-1&status=VALID&amount=200.00&bank_tran_id=BANK123"
	data := signedCallback("testpass", body, map[string]string{
		"tran_id":      "txn-1",
		"status":       "VALID",
		"amount":       "200.00",
		"bank_tran_id": "BANK123",
	})

	event, err := client.IPN(data)
	require.NoError(t, err)
	assert.Equal(t, "txn-1", event.TransactionID)
	assert.Equal(t, model.StatusCompleted, event.Status)
	assert.Equal(t, "BANK123", event.GatewayRef)
	assert.Equal(t, "200.00", event.Amount.StringFixed(model.AmountScale))
}

func TestIPNRejectsTamperedBody(t *testing.T) {
	client := testClient()

	body := "tran_id=txn-1&status=VALID&amount=200.00"
	data := signedCallback("testpass", body, map[string]string{
		"tran_id": "txn-1",
		"status":  "VALID",
	})
	// Attacker rewrites the body after signing
	data.Body = []byte("tran_id=txn-1&status=VALID&amount=1.00")

	_, err := client.IPN(data)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidSignature)
}

func TestIPNRejectsMissingSignature(t *testing.T) {
	client := testClient()

	body := "tran_id=txn-1&status=VALID"
	data := gateway.CallbackData{
		Kind:   model.CallbackIPN,
		Body:   []byte(body),
		Fields: map[string]string{"tran_id": "txn-1", "status": "VALID"},
	}

	_, err := client.IPN(data)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidSignature)
}

func TestIPNStatusMapping(t *testing.T) {
	client := testClient()

	cases := []struct {
		gatewayStatus string
		want          string
	}{
		{"VALID", model.StatusCompleted},
		{"VALIDATED", model.StatusCompleted},
		{"FAILED", model.StatusFailed},
		{"CANCELLED", model.StatusCancelled},
	}

	for _, tc := range cases {
		body := "tran_id=txn-1&status=" + tc.gatewayStatus
		data := signedCallback("testpass", body, map[string]string{
			"tran_id": "txn-1",
			"status":  tc.gatewayStatus,
		})

		event, err := client.IPN(data)
		require.NoError(t, err, "status %s", tc.gatewayStatus)
		assert.Equal(t, tc.want, event.Status, "status %s", tc.gatewayStatus)
	}
}

func TestIPNRejectsUnknownStatus(t *testing.T) {
	client := testClient()

	body := "tran_id=txn-1&status=PROCESSING"
	data := signedCallback("testpass", body, map[string]string{
		"tran_id": "txn-1",
		"status":  "PROCESSING",
	})

	_, err := client.IPN(data)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidPayload)
}

func TestValidateRequiresCoreFields(t *testing.T) {
	client := testClient()

	err := client.Validate(gateway.CallbackData{Fields: map[string]string{"status": "VALID"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidPayload)

	err = client.Validate(gateway.CallbackData{Fields: map[string]string{"tran_id": "txn-1"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidPayload)

	err = client.Validate(gateway.CallbackData{Fields: map[string]string{
		"tran_id": "txn-1",
		"status":  "VALID",
	}})
	assert.NoError(t, err)
}

func TestConfigURLsFollowSandboxFlag(t *testing.T) {
	sandbox := &Config{StoreID: "s", StorePassword: "p", Sandbox: true}
	live := &Config{StoreID: "s", StorePassword: "p"}

	assert.Contains(t, sandbox.SessionURL(), "sandbox.sslcommerz.com")
	assert.Contains(t, live.SessionURL(), "securepay.sslcommerz.com")
}
