package cbk

import (
	"testing"

	orderdomain "github.com/smallbiznis/vendora/internal/order/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeStrictJSON(t *testing.T) {
	body := []byte(`{"status":"ORDER_COMPLETED","orderid":"CBK-991","metertoken":"4823-9911-2218","balance":"10500.00"}`)

	result := Normalize(body)

	assert.Equal(t, orderdomain.SignalOrderCompleted, result.Signal)
	assert.Equal(t, "CBK-991", result.ProviderOrderID)
	assert.Equal(t, "10500.00", result.Balance)
	require.Len(t, result.Tokens, 1)
	assert.Equal(t, "4823-9911-2218", result.Tokens[0].Token)
	assert.Equal(t, body, []byte(result.Raw))
}

func TestNormalizeJSONFallsBackToTransactionID(t *testing.T) {
	result := Normalize([]byte(`{"status":"ORDER_RECEIVED","transactionid":"TX-17"}`))

	assert.Equal(t, orderdomain.SignalOrderReceived, result.Signal)
	assert.Equal(t, "TX-17", result.ProviderOrderID)
	assert.Empty(t, result.Tokens)
}

func TestNormalizeSentinelScan(t *testing.T) {
	cases := []struct {
		body   string
		signal orderdomain.ProviderSignal
	}{
		{"ORDER_RECEIVED. Ref 100223", orderdomain.SignalOrderReceived},
		{"Dear customer, ORDER_COMPLETED today", orderdomain.SignalOrderCompleted},
		{"ORDER_CANCELLED", orderdomain.SignalOrderCancelled},
		{"INVALID_MOBILENETWORK supplied", orderdomain.SignalInvalidMobileNetwork},
		{"AUTHENTICATION_FAILED for user", orderdomain.SignalAuthenticationFailed},
		{"INVALID_CREDENTIALS", orderdomain.SignalInvalidCredentials},
		{"INSUFFICIENT_BALANCE on float", orderdomain.SignalInsufficientBalance},
	}

	for _, tc := range cases {
		result := Normalize([]byte(tc.body))
		assert.Equal(t, tc.signal, result.Signal, "body %q", tc.body)
		assert.Equal(t, tc.body, string(result.Raw))
	}
}

func TestNormalizeUnrecognizedBodyIsErrorWithRawPreserved(t *testing.T) {
	body := []byte("<html>504 Gateway Time-out</html>")

	result := Normalize(body)

	assert.Equal(t, orderdomain.SignalError, result.Signal)
	assert.Equal(t, body, []byte(result.Raw))
	assert.False(t, result.Faulted())
}

// A JSON body without a status field still goes through the sentinel scan,
// so markers buried in unexpected JSON shapes are not lost.
func TestNormalizeJSONWithoutStatusScansSentinels(t *testing.T) {
	result := Normalize([]byte(`{"message":"ORDER_COMPLETED","code":200}`))
	assert.Equal(t, orderdomain.SignalOrderCompleted, result.Signal)
}

func TestNormalizeFirstSentinelWins(t *testing.T) {
	result := Normalize([]byte("ORDER_COMPLETED after ORDER_RECEIVED"))
	assert.Equal(t, orderdomain.SignalOrderCompleted, result.Signal)
}
