package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextMappedSignals(t *testing.T) {
	cases := []struct {
		name    string
		current OrderStatus
		signal  ProviderSignal
		want    OrderStatus
	}{
		{"received moves paid to processing", OrderStatusPaid, SignalOrderReceived, OrderStatusProcessing},
		{"completed moves processing to processed", OrderStatusProcessing, SignalOrderCompleted, OrderStatusProcessed},
		{"completed moves paid to processed", OrderStatusPaid, SignalOrderCompleted, OrderStatusProcessed},
		{"cancelled moves processing to cancelled", OrderStatusProcessing, SignalOrderCancelled, OrderStatusCancelled},
		{"invalid network moves paid to invalid", OrderStatusPaid, SignalInvalidMobileNetwork, OrderStatusInvalid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Next(tc.current, tc.signal))
		})
	}
}

func TestNextTerminalStatusesAbsorbEverySignal(t *testing.T) {
	terminals := []OrderStatus{OrderStatusCompleted, OrderStatusRefunded, OrderStatusCancelled}
	signals := []ProviderSignal{
		SignalOrderReceived, SignalOrderCompleted, SignalOrderCancelled,
		SignalInvalidMobileNetwork, SignalAuthenticationFailed,
		SignalInvalidCredentials, SignalInsufficientBalance, SignalError,
	}

	for _, status := range terminals {
		for _, signal := range signals {
			assert.Equal(t, status, Next(status, signal),
				"terminal %s must absorb %s", status, signal)
		}
	}
}

func TestNextUnmappedSignalsLeaveStatusUnchanged(t *testing.T) {
	for _, signal := range []ProviderSignal{
		SignalAuthenticationFailed,
		SignalInvalidCredentials,
		SignalInsufficientBalance,
		SignalError,
	} {
		assert.Equal(t, OrderStatusProcessing, Next(OrderStatusProcessing, signal))
		assert.Equal(t, OrderStatusPaid, Next(OrderStatusPaid, signal))
	}
}

func TestParseSignal(t *testing.T) {
	assert.Equal(t, SignalOrderCompleted, ParseSignal("ORDER_COMPLETED"))
	assert.Equal(t, SignalOrderCompleted, ParseSignal("  order_completed  "))
	assert.Equal(t, SignalInsufficientBalance, ParseSignal("insufficient_balance"))
	assert.Equal(t, SignalError, ParseSignal("SOMETHING_NEW"))
	assert.Equal(t, SignalError, ParseSignal(""))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, OrderStatusCompleted.IsTerminal())
	assert.True(t, OrderStatusRefunded.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusPending.IsTerminal())
	assert.False(t, OrderStatusProcessing.IsTerminal())
	assert.False(t, OrderStatusInvalid.IsTerminal())
}
