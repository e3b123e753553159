package domain

import "strings"

// ProviderSignal is the canonical status extracted from an aggregator reply.
type ProviderSignal string

const (
	SignalOrderReceived         ProviderSignal = "ORDER_RECEIVED"
	SignalOrderCompleted        ProviderSignal = "ORDER_COMPLETED"
	SignalOrderCancelled        ProviderSignal = "ORDER_CANCELLED"
	SignalInvalidMobileNetwork  ProviderSignal = "INVALID_MOBILENETWORK"
	SignalAuthenticationFailed  ProviderSignal = "AUTHENTICATION_FAILED"
	SignalInvalidCredentials    ProviderSignal = "INVALID_CREDENTIALS"
	SignalInsufficientBalance   ProviderSignal = "INSUFFICIENT_BALANCE"
	SignalError                 ProviderSignal = "ERROR"
)

// signalTransitions maps a provider signal to the status an order moves to.
// Signals absent from the table never move an order: authentication and
// balance faults are operator problems, not order outcomes.
var signalTransitions = map[ProviderSignal]OrderStatus{
	SignalOrderReceived:        OrderStatusProcessing,
	SignalOrderCompleted:       OrderStatusProcessed,
	SignalOrderCancelled:       OrderStatusCancelled,
	SignalInvalidMobileNetwork: OrderStatusInvalid,
}

// ParseSignal normalizes a raw provider status string to a ProviderSignal.
func ParseSignal(raw string) ProviderSignal {
	switch ProviderSignal(strings.ToUpper(strings.TrimSpace(raw))) {
	case SignalOrderReceived:
		return SignalOrderReceived
	case SignalOrderCompleted:
		return SignalOrderCompleted
	case SignalOrderCancelled:
		return SignalOrderCancelled
	case SignalInvalidMobileNetwork:
		return SignalInvalidMobileNetwork
	case SignalAuthenticationFailed:
		return SignalAuthenticationFailed
	case SignalInvalidCredentials:
		return SignalInvalidCredentials
	case SignalInsufficientBalance:
		return SignalInsufficientBalance
	default:
		return SignalError
	}
}

// Next returns the status an order should carry after observing a provider
// signal. Pure and total: terminal statuses absorb every signal (the floor
// rule), unmapped signals leave the status unchanged.
func Next(current OrderStatus, signal ProviderSignal) OrderStatus {
	if current.IsTerminal() {
		return current
	}
	next, ok := signalTransitions[signal]
	if !ok {
		return current
	}
	return next
}
