package cbk

import (
	"encoding/json"
	"strings"

	orderdomain "github.com/smallbiznis/vendora/internal/order/domain"
)

// wireReply is the documented JSON shape. The aggregator does not always
// honor it; Normalize degrades to sentinel scanning when parsing fails.
type wireReply struct {
	Status        string `json:"status"`
	OrderID       string `json:"orderid"`
	TransactionID string `json:"transactionid"`
	MeterToken    string `json:"metertoken"`
	Balance       string `json:"balance"`
}

// sentinels is the ordered list of known plain-text markers. Order matters:
// the first match wins, so the more specific markers come first.
var sentinels = []struct {
	marker string
	signal orderdomain.ProviderSignal
}{
	{"ORDER_COMPLETED", orderdomain.SignalOrderCompleted},
	{"ORDER_RECEIVED", orderdomain.SignalOrderReceived},
	{"ORDER_CANCELLED", orderdomain.SignalOrderCancelled},
	{"INVALID_MOBILENETWORK", orderdomain.SignalInvalidMobileNetwork},
	{"AUTHENTICATION_FAILED", orderdomain.SignalAuthenticationFailed},
	{"INVALID_CREDENTIALS", orderdomain.SignalInvalidCredentials},
	{"INSUFFICIENT_BALANCE", orderdomain.SignalInsufficientBalance},
}

// Normalize turns a raw aggregator body into a Result. It attempts a strict
// JSON parse first, then scans for sentinel substrings, and finally tags the
// reply ERROR with the raw text preserved for manual reconciliation.
func Normalize(body []byte) Result {
	raw := append([]byte(nil), body...)

	var reply wireReply
	if err := json.Unmarshal(body, &reply); err == nil && strings.TrimSpace(reply.Status) != "" {
		result := Result{
			Signal:          orderdomain.ParseSignal(reply.Status),
			ProviderOrderID: firstNonEmpty(reply.OrderID, reply.TransactionID),
			Balance:         strings.TrimSpace(reply.Balance),
			Raw:             raw,
		}
		if token := strings.TrimSpace(reply.MeterToken); token != "" {
			result.Tokens = []orderdomain.Token{{Token: token}}
		}
		return result
	}

	text := string(body)
	for _, s := range sentinels {
		if strings.Contains(text, s.marker) {
			return Result{Signal: s.signal, Raw: raw}
		}
	}

	return Result{Signal: orderdomain.SignalError, Raw: raw}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
