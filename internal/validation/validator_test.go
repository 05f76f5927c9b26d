package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridwanfathin/edge-transaction-service/internal/domain"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func validTransaction() *domain.Transaction {
	return &domain.Transaction{
		TransactionID: "TXN-001",
		StoreID:       "STORE-1",
		DeviceID:      "EDGE-1",
		Timestamp:     time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
		Items: []domain.TransactionItem{
			{
				BrandName:       strPtr("Coca-Cola"),
				ProductName:     "Coke 1.5L",
				Quantity:        2,
				Unit:            "pc",
				UnitPrice:       65,
				TotalPrice:      130,
				Category:        domain.CategoryBeverage,
				DetectionMethod: domain.DetectionHybrid,
				Confidence:      0.925,
				BrandConfidence: floatPtr(0.9),
			},
			{
				ProductName:     "Rice",
				Quantity:        1,
				Unit:            "kg",
				UnitPrice:       55,
				TotalPrice:      55,
				Category:        domain.CategoryStaple,
				IsUnbranded:     true,
				DetectionMethod: domain.DetectionOCR,
				Confidence:      0.88,
				SuggestedBrands: []string{"Ganador", "Sinandomeng", "Jasmine"},
			},
		},
		Totals:         &domain.Totals{},
		Insights:       &domain.Insights{},
		PaymentMethod:  "cash",
		ProcessingTime: 1.2,
		EdgeVersion:    "1.4.0",
	}
}

func fieldNames(t *testing.T, err error) []string {
	t.Helper()
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	names := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		names = append(names, f.Field)
	}
	return names
}

func TestValidateAcceptsValidTransaction(t *testing.T) {
	v := New()
	txn := validTransaction()
	v.Canonicalize(txn)
	assert.NoError(t, v.Validate(txn))
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.Transaction)
		field  string
	}{
		{name: "negative quantity", mutate: func(t *domain.Transaction) { t.Items[0].Quantity = -1 }, field: "items[0].quantity"},
		{name: "negative price", mutate: func(t *domain.Transaction) { t.Items[1].UnitPrice = -5 }, field: "items[1].unitPrice"},
		{name: "confidence above one", mutate: func(t *domain.Transaction) { t.Items[1].Confidence = 1.2 }, field: "items[1].confidence"},
		{name: "missing store", mutate: func(t *domain.Transaction) { t.StoreID = "" }, field: "storeId"},
		{name: "missing timestamp", mutate: func(t *domain.Transaction) { t.Timestamp = time.Time{} }, field: "timestamp"},
		{name: "no items", mutate: func(t *domain.Transaction) { t.Items = nil }, field: "items"},
		{name: "missing totals", mutate: func(t *domain.Transaction) { t.Totals = nil }, field: "totals"},
		{name: "unknown category", mutate: func(t *domain.Transaction) { t.Items[0].Category = "toys" }, field: "items[0].category"},
		{name: "unknown method", mutate: func(t *domain.Transaction) { t.Items[0].DetectionMethod = "radar" }, field: "items[0].detectionMethod"},
		{name: "branded flagged unbranded", mutate: func(t *domain.Transaction) { t.Items[0].IsUnbranded = true }, field: "items[0].isUnbranded"},
		{name: "brand confidence without brand", mutate: func(t *domain.Transaction) { t.Items[1].BrandConfidence = floatPtr(0.5) }, field: "items[1].brandConfidence"},
		{name: "suggestions on branded item", mutate: func(t *domain.Transaction) { t.Items[0].SuggestedBrands = []string{"Pepsi"} }, field: "items[0].suggestedBrands"},
		{name: "total price mismatch", mutate: func(t *domain.Transaction) { t.Items[0].TotalPrice = 120 }, field: "items[0].totalPrice"},
	}

	v := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := validTransaction()
			tt.mutate(txn)
			v.Canonicalize(txn)

			err := v.Validate(txn)
			assert.Contains(t, fieldNames(t, err), tt.field)
		})
	}
}

func TestValidateToleratesRounding(t *testing.T) {
	v := New()
	txn := validTransaction()
	txn.Items[1].Quantity = 3
	txn.Items[1].UnitPrice = 33.33
	txn.Items[1].TotalPrice = 100
	v.Canonicalize(txn)
	assert.NoError(t, v.Validate(txn))
}

func TestValidateCollectsEveryField(t *testing.T) {
	v := New()
	txn := validTransaction()
	txn.StoreID = ""
	txn.Items[0].Quantity = -1
	txn.Items[1].Confidence = 2

	names := fieldNames(t, v.Validate(txn))
	assert.ElementsMatch(t, []string{"storeId", "items[0].quantity", "items[1].confidence"}, names)
}

func TestCanonicalize(t *testing.T) {
	v := New()
	txn := validTransaction()
	txn.StoreID = "  STORE-1 "
	txn.Items[0].Unit = "Piraso"
	txn.Items[0].Category = "BEVERAGE"
	txn.Items[1].BrandName = strPtr("   ")
	txn.Items[1].DetectionMethod = "stt"
	txn.Items[1].Unit = "kilo"
	txn.Items[1].Category = "meals"

	v.Canonicalize(txn)

	assert.Equal(t, "STORE-1", txn.StoreID)
	assert.Equal(t, "pc", txn.Items[0].Unit)
	assert.Equal(t, domain.CategoryBeverage, txn.Items[0].Category)
	assert.Nil(t, txn.Items[1].BrandName)
	assert.Equal(t, domain.DetectionVoice, txn.Items[1].DetectionMethod)
	assert.Equal(t, "kg", txn.Items[1].Unit)
	assert.Equal(t, domain.CategoryMeals, txn.Items[1].Category)
	assert.Contains(t, txn.Items[0].SKU, "COC-COKE-")
	assert.Contains(t, txn.Items[1].SKU, "UNB-RICE-")
}

func TestStruct(t *testing.T) {
	v := New()
	err := v.Struct(&domain.Store{StoreID: "STORE-1"})
	assert.Equal(t, []string{"region"}, fieldNames(t, err))
	assert.NoError(t, v.Struct(&domain.Store{StoreID: "STORE-1", Region: "NCR"}))
}
