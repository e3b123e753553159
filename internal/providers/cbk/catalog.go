package cbk

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// parseCatalog walks a catalog payload without assuming its exact shape. The
// aggregator nests products differently per service type (arrays keyed by
// carrier name, objects carrying an "ID", flat lists), so we recurse and emit
// an item wherever a PRODUCT_CODE shows up, tagging it with the nearest
// enclosing carrier identifier.
func parseCatalog(serviceType string, body []byte) ([]CatalogItem, error) {
	var root any
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("catalog payload: %w", err)
	}

	var items []CatalogItem
	var walk func(node any, carrier string)
	walk = func(node any, carrier string) {
		switch v := node.(type) {
		case map[string]any:
			if code, ok := catalogString(v, "PRODUCT_CODE"); ok {
				name, _ := catalogString(v, "PRODUCT_NAME")
				items = append(items, CatalogItem{
					ServiceType:  serviceType,
					ProviderCode: carrier,
					ProductCode:  code,
					Name:         name,
					Amount:       catalogAmount(v),
				})
				return
			}
			if id, ok := catalogString(v, "ID"); ok {
				carrier = id
			}
			for key, child := range v {
				next := carrier
				if next == "" {
					next = key
				}
				walk(child, next)
			}
		case []any:
			for _, child := range v {
				walk(child, carrier)
			}
		}
	}
	walk(root, "")

	if len(items) == 0 {
		return nil, fmt.Errorf("catalog payload for %q contained no products", serviceType)
	}
	return items, nil
}

func catalogString(m map[string]any, key string) (string, bool) {
	raw, ok := m[key]
	if !ok {
		return "", false
	}
	switch v := raw.(type) {
	case string:
		s := strings.TrimSpace(v)
		return s, s != ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}

func catalogAmount(m map[string]any) float64 {
	for _, key := range []string{"PRODUCT_AMOUNT", "PRODUCT_PRICE", "AMOUNT"} {
		switch v := m[key].(type) {
		case float64:
			return v
		case string:
			cleaned := strings.ReplaceAll(strings.TrimSpace(v), ",", "")
			if amount, err := strconv.ParseFloat(cleaned, 64); err == nil {
				return amount
			}
		}
	}
	return 0
}
