package cbk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCatalogCarrierKeyedArrays(t *testing.T) {
	body := []byte(`{
		"MTN": [
			{"PRODUCT_CODE": "mtn-1gb", "PRODUCT_NAME": "1GB Monthly", "PRODUCT_AMOUNT": 300},
			{"PRODUCT_CODE": "mtn-2gb", "PRODUCT_NAME": "2GB Monthly", "PRODUCT_AMOUNT": 550}
		],
		"GLO": [
			{"PRODUCT_CODE": "glo-1gb", "PRODUCT_NAME": "1GB", "PRODUCT_AMOUNT": 280}
		]
	}`)

	items, err := parseCatalog("data", body)
	require.NoError(t, err)
	require.Len(t, items, 3)

	codes := map[string]CatalogItem{}
	for _, item := range items {
		codes[item.ProductCode] = item
	}
	item := codes["mtn-1gb"]
	assert.Equal(t, "data", item.ServiceType)
	assert.Equal(t, "MTN", item.ProviderCode)
	assert.Equal(t, "1GB Monthly", item.Name)
	assert.Equal(t, 300.0, item.Amount)
	assert.Equal(t, "GLO", codes["glo-1gb"].ProviderCode)
}

func TestParseCatalogCarrierIDObjects(t *testing.T) {
	body := []byte(`{
		"TV_ID": [
			{
				"ID": "dstv",
				"PRODUCT": [
					{"PRODUCT_CODE": "dstv-padi", "PRODUCT_NAME": "DStv Padi", "PRODUCT_AMOUNT": "2,500"}
				]
			}
		]
	}`)

	items, err := parseCatalog("tv", body)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "dstv", items[0].ProviderCode)
	assert.Equal(t, "dstv-padi", items[0].ProductCode)
	assert.Equal(t, 2500.0, items[0].Amount)
}

func TestParseCatalogFlatList(t *testing.T) {
	body := []byte(`[
		{"PRODUCT_CODE": "waec-pin", "PRODUCT_NAME": "WAEC Result Checker", "PRODUCT_PRICE": 3500}
	]`)

	items, err := parseCatalog("education", body)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "waec-pin", items[0].ProductCode)
	assert.Equal(t, 3500.0, items[0].Amount)
}

func TestParseCatalogNumericProductCode(t *testing.T) {
	items, err := parseCatalog("betting", []byte(`[{"PRODUCT_CODE": 101, "AMOUNT": "1,000.50"}]`))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "101", items[0].ProductCode)
	assert.Equal(t, 1000.50, items[0].Amount)
}

func TestParseCatalogEmptyPayload(t *testing.T) {
	_, err := parseCatalog("data", []byte(`{"MOBILE_NETWORK": {}}`))
	assert.Error(t, err)

	_, err = parseCatalog("data", []byte(`not json`))
	assert.Error(t, err)
}
