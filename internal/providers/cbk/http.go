package cbk

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/smallbiznis/vendora/internal/config"
	orderdomain "github.com/smallbiznis/vendora/internal/order/domain"
	"go.uber.org/zap"
)

const (
	pathAirtime     = "/APIAirtimeV1.asp"
	pathData        = "/APIDatabundleV1.asp"
	pathCableTV     = "/APICableTVV1.asp"
	pathElectricity = "/APIElectricityV1.asp"
	pathBetting     = "/APIBettingV1.asp"
	pathEducation   = "/APIWAECV1.asp"
	pathQuery       = "/APIQueryV1.asp"
	pathBalance     = "/APIWalletBalanceV1.asp"
)

var catalogPaths = map[string]string{
	"data":      "/APIDatabundlePlansV2.asp",
	"tv":        "/APICableTVPackagesV2.asp",
	"electric":  "/APIElectricityCompaniesV2.asp",
	"betting":   "/APIBettingCompaniesV2.asp",
	"education": "/APIWAECPackagesV2.asp",
}

// HTTPProvider performs live calls against the aggregator.
type HTTPProvider struct {
	baseURL     string
	userID      string
	apiKey      string
	callbackURL string
	client      *http.Client
	log         *zap.Logger
}

func NewHTTPProvider(cfg config.Config, log *zap.Logger) *HTTPProvider {
	return &HTTPProvider{
		baseURL:     strings.TrimRight(cfg.CBKBaseURL, "/"),
		userID:      cfg.CBKUserID,
		apiKey:      cfg.CBKAPIKey,
		callbackURL: cfg.CBKCallbackURL,
		client:      &http.Client{Timeout: cfg.CBKTimeout},
		log:         log.Named("providers.cbk").With(zap.String("component", "cbk")),
	}
}

func (p *HTTPProvider) PlaceOrder(ctx context.Context, order orderdomain.Order) Result {
	path, params, err := p.orderParams(order)
	if err != nil {
		return Result{Fault: err.Error()}
	}
	return p.call(ctx, path, params)
}

func (p *HTTPProvider) QueryOrder(ctx context.Context, providerOrderID string) Result {
	params := url.Values{}
	params.Set("OrderID", providerOrderID)
	return p.call(ctx, pathQuery, params)
}

func (p *HTTPProvider) Balance(ctx context.Context) (string, error) {
	result := p.call(ctx, pathBalance, url.Values{})
	if result.Faulted() {
		return "", fmt.Errorf("provider balance: %s", result.Fault)
	}
	return result.Balance, nil
}

func (p *HTTPProvider) FetchCatalog(ctx context.Context, serviceType string) ([]CatalogItem, error) {
	path, ok := catalogPaths[strings.ToLower(strings.TrimSpace(serviceType))]
	if !ok {
		return nil, fmt.Errorf("no catalog endpoint for service type %q", serviceType)
	}

	body, err := p.get(ctx, path, url.Values{})
	if err != nil {
		return nil, err
	}
	return parseCatalog(serviceType, body)
}

// call executes one authenticated aggregator request. Failures never escape
// as errors; they come back as a faulted Result so the caller can leave the
// order untouched and retry on the next scheduled run.
func (p *HTTPProvider) call(ctx context.Context, path string, params url.Values) Result {
	params.Set("UserID", p.userID)
	params.Set("APIKey", p.apiKey)
	if p.callbackURL != "" {
		params.Set("CallBackURL", p.callbackURL)
	}
	// The nonce makes a logical retry distinguishable on the aggregator's
	// side; their deduplication is keyed on it.
	params.Set("rand", strconv.FormatInt(rand.Int63(), 10))
	params.Set("RequestID", uuid.NewString())

	body, err := p.get(ctx, path, params)
	if err != nil {
		p.log.Warn("provider call failed", zap.String("path", path), zap.Error(err))
		return Result{Fault: err.Error()}
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return Result{Fault: "empty response body"}
	}
	return Normalize(body)
}

func (p *HTTPProvider) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := p.baseURL + path
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (p *HTTPProvider) orderParams(order orderdomain.Order) (string, url.Values, error) {
	params := url.Values{}
	providerCode := metaString(order, "provider_code")

	switch order.Type {
	case orderdomain.OrderTypeAirtime:
		params.Set("MobileNetwork", providerCode)
		params.Set("MobileNumber", order.Recipient)
		params.Set("Amount", formatAmount(order.Amount))
		return pathAirtime, params, nil
	case orderdomain.OrderTypeData:
		params.Set("MobileNetwork", providerCode)
		params.Set("DataPlan", order.ProductID)
		params.Set("MobileNumber", order.Recipient)
		return pathData, params, nil
	case orderdomain.OrderTypeTV:
		params.Set("CableTV", providerCode)
		params.Set("Package", order.ProductID)
		params.Set("SmartCardNo", order.Recipient)
		return pathCableTV, params, nil
	case orderdomain.OrderTypeElectric:
		params.Set("ElectricCompany", providerCode)
		params.Set("MeterType", metaString(order, "meter_type"))
		params.Set("MeterNo", order.Recipient)
		params.Set("Amount", formatAmount(order.Amount))
		return pathElectricity, params, nil
	case orderdomain.OrderTypeBetting:
		params.Set("BettingCompany", providerCode)
		params.Set("CustomerID", order.Recipient)
		params.Set("Amount", formatAmount(order.Amount))
		return pathBetting, params, nil
	case orderdomain.OrderTypeEdu:
		params.Set("ExamType", order.ProductID)
		params.Set("PhoneNo", order.Recipient)
		return pathEducation, params, nil
	default:
		return "", nil, fmt.Errorf("order type %q is not fulfilled by the aggregator", order.Type)
	}
}

func metaString(order orderdomain.Order, key string) string {
	if order.Metadata == nil {
		return ""
	}
	if v, ok := order.Metadata[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}
