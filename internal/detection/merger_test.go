package detection

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridwanfathin/edge-transaction-service/internal/aggregator"
	"github.com/ridwanfathin/edge-transaction-service/internal/domain"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func newTestMerger() *Merger {
	return NewMerger(DefaultMergerConfig(), nil, nil)
}

func TestMergeLogoAndMatchingText(t *testing.T) {
	items := newTestMerger().Merge([]Detection{
		LogoDetection{BrandName: "Coca-Cola", Region: Region{X: 100, Y: 200, Width: 150, Height: 30}, Confidence: 0.90},
		OCRDetection{Text: "coca-cola ", Region: Region{X: 110, Y: 205, Width: 150, Height: 30}, Confidence: 0.95},
	})

	require.Len(t, items, 1)
	item := items[0]
	assert.Equal(t, domain.DetectionHybrid, item.DetectionMethod)
	assert.Equal(t, 0.925, item.Confidence)
	require.NotNil(t, item.BrandName)
	assert.Equal(t, "Coca-Cola", *item.BrandName)
	require.NotNil(t, item.BrandConfidence)
	assert.Equal(t, 0.90, *item.BrandConfidence)
}

func TestMergeRequiresProximity(t *testing.T) {
	items := newTestMerger().Merge([]Detection{
		LogoDetection{BrandName: "Coca-Cola", Region: Region{X: 100, Y: 200, Width: 150, Height: 30}, Confidence: 0.90},
		OCRDetection{Text: "Coca-Cola", Region: Region{X: 400, Y: 200, Width: 150, Height: 30}, Confidence: 0.95},
	})

	require.Len(t, items, 2)
	assert.Equal(t, domain.DetectionVision, items[0].DetectionMethod)
	assert.Equal(t, UnknownProduct, items[0].ProductName)
	assert.Equal(t, 0.90, items[0].Confidence)
	assert.Equal(t, domain.DetectionOCR, items[1].DetectionMethod)
	assert.Equal(t, "Coca-Cola", items[1].ProductName)
	assert.Nil(t, items[1].BrandName)
}

func TestMergeRequiresMatchingText(t *testing.T) {
	items := newTestMerger().Merge([]Detection{
		LogoDetection{BrandName: "Coca-Cola", Region: Region{X: 100, Y: 200, Width: 150, Height: 30}, Confidence: 0.90},
		OCRDetection{Text: "Pepsi", Region: Region{X: 100, Y: 200, Width: 150, Height: 30}, Confidence: 0.95},
	})

	require.Len(t, items, 2)
	assert.Equal(t, domain.DetectionVision, items[0].DetectionMethod)
	assert.Equal(t, "Pepsi", items[1].ProductName)
}

func TestMergeAttachesQuantityHint(t *testing.T) {
	items := newTestMerger().Merge([]Detection{
		LogoDetection{BrandName: "Coca-Cola", Region: Region{X: 100, Y: 200, Width: 150, Height: 30}, Confidence: 0.90},
		OCRDetection{Text: "COCA-COLA 1.5L", Region: Region{X: 100, Y: 200, Width: 150, Height: 30}, Confidence: 0.95},
		OCRDetection{Text: "2 PCS 130.00", Region: Region{X: 180, Y: 200, Width: 80, Height: 30}, Confidence: 0.92},
	})

	require.Len(t, items, 1)
	item := items[0]
	assert.Equal(t, domain.DetectionHybrid, item.DetectionMethod)
	assert.Equal(t, "COCA-COLA", item.ProductName)
	assert.Equal(t, 2.0, item.Quantity)
	assert.Equal(t, "pc", item.Unit)
	assert.Equal(t, 65.0, item.UnitPrice)
	assert.Equal(t, 130.0, item.TotalPrice)
	// hints carry quantity, not identity
	assert.Equal(t, 0.925, item.Confidence)
}

func TestMergeFoldsRepeatedLogoMatches(t *testing.T) {
	items := newTestMerger().Merge([]Detection{
		LogoDetection{BrandName: "Pepsi", Region: Region{X: 10, Y: 10, Width: 50, Height: 50}, Confidence: 0.8},
		LogoDetection{BrandName: "PEPSI", Region: Region{X: 14, Y: 12, Width: 50, Height: 50}, Confidence: 0.9, BrandConfidence: floatPtr(0.7)},
	})

	require.Len(t, items, 1)
	assert.Equal(t, domain.DetectionVision, items[0].DetectionMethod)
	assert.Equal(t, 0.85, items[0].Confidence)
	// only the second match reported a brand confidence
	assert.Equal(t, 0.7, *items[0].BrandConfidence)
	assert.Equal(t, "Pepsi", *items[0].BrandName)
}

func TestMergeBrandConfidence(t *testing.T) {
	tests := []struct {
		name  string
		first *float64
		other *float64
		want  float64
	}{
		{name: "single provider", first: nil, other: floatPtr(0.7), want: 0.7},
		{name: "providers averaged", first: floatPtr(0.6), other: floatPtr(0.8), want: 0.7},
		{name: "no provider uses logo confidence", first: nil, other: nil, want: 0.85},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := newTestMerger().Merge([]Detection{
				LogoDetection{BrandName: "Pepsi", Region: Region{X: 10, Y: 10, Width: 50, Height: 50}, Confidence: 0.8, BrandConfidence: tt.first},
				LogoDetection{BrandName: "Pepsi", Region: Region{X: 14, Y: 12, Width: 50, Height: 50}, Confidence: 0.9, BrandConfidence: tt.other},
			})

			require.Len(t, items, 1)
			require.NotNil(t, items[0].BrandConfidence)
			assert.InDelta(t, tt.want, *items[0].BrandConfidence, 1e-9)
		})
	}
}

func TestMergeBrandAliasDoesNotConfirmLogo(t *testing.T) {
	items := newTestMerger().Merge([]Detection{
		LogoDetection{BrandName: "Coca-Cola", Region: Region{X: 100, Y: 200, Width: 150, Height: 30}, Confidence: 0.90},
		OCRDetection{Text: "Coke", Region: Region{X: 110, Y: 205, Width: 150, Height: 30}, Confidence: 0.95},
	})

	require.Len(t, items, 2)
	assert.Equal(t, domain.DetectionVision, items[0].DetectionMethod)
	assert.Equal(t, UnknownProduct, items[0].ProductName)
	assert.Equal(t, 0.90, items[0].Confidence)
	assert.Equal(t, domain.DetectionOCR, items[1].DetectionMethod)
	assert.Equal(t, "Coke", items[1].ProductName)
}

func TestMergeClampsConfidence(t *testing.T) {
	items := newTestMerger().Merge([]Detection{
		ShapeDetection{Region: Region{X: 0, Y: 0, Width: 100, Height: 100}, Confidence: math.NaN()},
		ShapeDetection{Region: Region{X: 500, Y: 500, Width: 100, Height: 100}, Confidence: 1.4},
		ShapeDetection{Region: Region{X: 900, Y: 900, Width: 100, Height: 100}, Confidence: -0.2},
	})

	require.Len(t, items, 3)
	assert.Equal(t, 0.0, items[0].Confidence)
	assert.Equal(t, 1.0, items[1].Confidence)
	assert.Equal(t, 0.0, items[2].Confidence)
}

func TestMergeShapes(t *testing.T) {
	items := newTestMerger().Merge([]Detection{
		LogoDetection{BrandName: "Alaska", Region: Region{X: 0, Y: 0, Width: 60, Height: 60}, Confidence: 0.85},
		ShapeDetection{Region: Region{X: 5, Y: 5, Width: 60, Height: 60}, Confidence: 0.7},
		ShapeDetection{Region: Region{X: 500, Y: 500, Width: 20, Height: 20}, Confidence: 0.7},
		ShapeDetection{Region: Region{X: 900, Y: 900, Width: 40, Height: 40}, Confidence: 0.7},
	})

	require.Len(t, items, 2)
	assert.Equal(t, "Alaska", *items[0].BrandName)
	assert.Nil(t, items[1].BrandName)
	assert.Equal(t, UnknownProduct, items[1].ProductName)
	assert.Equal(t, domain.DetectionVision, items[1].DetectionMethod)
	assert.Equal(t, 0.7, items[1].Confidence)
}

func TestMergeShapeExplicitArea(t *testing.T) {
	items := newTestMerger().Merge([]Detection{
		ShapeDetection{Region: Region{X: 0, Y: 0, Width: 100, Height: 100}, Area: 999, Confidence: 0.7},
	})
	assert.Empty(t, items)
}

func TestMergeOrdering(t *testing.T) {
	items := newTestMerger().Merge([]Detection{
		ManualEntry{ProductName: "Load", Quantity: 1, UnitPrice: 50},
		VoiceDetection{Text: "dalawang Coke", ProductName: "Coke", BrandName: strPtr("coke"), Quantity: 2, Confidence: 0.8},
		OCRDetection{Text: "TOTAL 185.00", Region: Region{X: 100, Y: 900, Width: 150, Height: 30}, Confidence: 0.9},
		OCRDetection{Text: "BIGAS 1KG 55.00", Region: Region{X: 100, Y: 600, Width: 150, Height: 30}, Confidence: 0.88},
		LogoDetection{BrandName: "Pepsi", Region: Region{X: 400, Y: 300, Width: 50, Height: 50}, Confidence: 0.8},
		LogoDetection{BrandName: "Chippy", Region: Region{X: 400, Y: 50, Width: 50, Height: 50}, Confidence: 0.8},
	})

	require.Len(t, items, 5)
	assert.Equal(t, "Chippy", *items[0].BrandName)
	assert.Equal(t, "Pepsi", *items[1].BrandName)

	assert.Equal(t, "BIGAS", items[2].ProductName)
	assert.Equal(t, domain.DetectionOCR, items[2].DetectionMethod)
	assert.Equal(t, 1.0, items[2].Quantity)
	assert.Equal(t, "kg", items[2].Unit)
	assert.Equal(t, 55.0, items[2].TotalPrice)

	assert.Equal(t, domain.DetectionVoice, items[3].DetectionMethod)
	assert.Equal(t, "Coca-Cola", *items[3].BrandName)
	assert.Equal(t, 2.0, items[3].Quantity)

	assert.Equal(t, domain.DetectionManual, items[4].DetectionMethod)
	assert.Equal(t, ManualConfidence, items[4].Confidence)
	assert.Equal(t, 50.0, items[4].TotalPrice)
}

func TestMergeIsDeterministic(t *testing.T) {
	input := []Detection{
		LogoDetection{BrandName: "Coca-Cola", Region: Region{X: 100, Y: 100, Width: 40, Height: 40}, Confidence: 0.9},
		LogoDetection{BrandName: "Coca-Cola", Region: Region{X: 100, Y: 100, Width: 40, Height: 40}, Confidence: 0.8},
		OCRDetection{Text: "Coca-Cola", Region: Region{X: 110, Y: 100, Width: 40, Height: 40}, Confidence: 0.95},
		OCRDetection{Text: "Coca-Cola", Region: Region{X: 105, Y: 100, Width: 40, Height: 40}, Confidence: 0.5},
	}

	m := newTestMerger()
	first := m.Merge(input)
	second := m.Merge(input)
	assert.Equal(t, first, second)

	require.Len(t, first, 2)
	// the nearer OCR line confirms the anchor, the other stays OCR-only
	assert.Equal(t, domain.DetectionHybrid, first[0].DetectionMethod)
	assert.InDelta(t, (0.9+0.8+0.5)/3, first[0].Confidence, 1e-6)
	assert.Equal(t, domain.DetectionOCR, first[1].DetectionMethod)
}

func TestDecode(t *testing.T) {
	payload := []byte(`[
		{"detectionMethod":"stt","text":"isang kilo bigas","productName":"bigas","quantity":1,"confidence":0.8},
		{"detectionMethod":"ocr","text":"COKE 1.5L","boundingRegion":{"x":1,"y":2,"width":3,"height":4},"confidence":0.9},
		{"detectionMethod":"cv","brandName":"Pepsi","boundingRegion":{"x":0,"y":0,"width":10,"height":10},"confidence":0.8},
		{"detectionMethod":"vision","brandName":null,"boundingRegion":{"x":0,"y":0,"width":50,"height":50},"confidence":0.7},
		{"detectionMethod":"manual","productName":"Load","quantity":1,"unitPrice":50}
	]`)

	detections, err := Decode(payload)
	require.NoError(t, err)
	require.Len(t, detections, 5)

	assert.IsType(t, VoiceDetection{}, detections[0])
	assert.IsType(t, OCRDetection{}, detections[1])
	assert.IsType(t, LogoDetection{}, detections[2])
	assert.IsType(t, ShapeDetection{}, detections[3])
	assert.IsType(t, ManualEntry{}, detections[4])
	assert.Equal(t, Region{X: 1, Y: 2, Width: 3, Height: 4}, detections[1].(OCRDetection).Region)
}

func TestDecodeRejects(t *testing.T) {
	_, err := Decode([]byte(`[{"detectionMethod":"hybrid","confidence":1}]`))
	assert.ErrorContains(t, err, "detections[0]")

	_, err = Decode([]byte(`[{"detectionMethod":"ocr","text":"COKE","confidence":1}]`))
	assert.ErrorContains(t, err, "boundingRegion")

	_, err = Decode([]byte(`{"not":"an array"}`))
	assert.Error(t, err)
}

func TestAssembleEndToEnd(t *testing.T) {
	merger := newTestMerger()
	a := NewAssembler(merger, nil, aggregator.New(aggregator.AnomalyPolicy{}, nil))
	at := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

	txn := a.Assemble(Draft{
		TransactionID: "TXN-001",
		StoreID:       "STORE-1",
		DeviceID:      "EDGE-1",
		Timestamp:     at,
		PaymentMethod: "cash",
		EdgeVersion:   "1.4.0",
	}, []Detection{
		LogoDetection{BrandName: "Coca-Cola", Region: Region{X: 100, Y: 200, Width: 150, Height: 30}, Confidence: 0.90},
		OCRDetection{Text: "Coca-Cola 1.5L", Region: Region{X: 100, Y: 200, Width: 150, Height: 30}, Confidence: 0.95},
		OCRDetection{Text: "2 PCS 130.00", Region: Region{X: 180, Y: 200, Width: 80, Height: 30}, Confidence: 0.92},
		OCRDetection{Text: "BIGAS 1KG 55.00", Region: Region{X: 100, Y: 400, Width: 150, Height: 30}, Confidence: 0.88},
	})

	require.Len(t, txn.Items, 2)
	assert.Equal(t, "TXN-001", txn.TransactionID)
	assert.Equal(t, at, txn.Timestamp)

	coke := txn.Items[0]
	assert.Equal(t, domain.CategoryBeverage, coke.Category)
	assert.False(t, coke.IsUnbranded)
	assert.Empty(t, coke.SuggestedBrands)
	assert.Contains(t, coke.SKU, "COC-COCA-")

	rice := txn.Items[1]
	assert.Equal(t, domain.CategoryStaple, rice.Category)
	assert.True(t, rice.IsUnbranded)
	assert.Equal(t, "Rice", *rice.GenericName)
	assert.Equal(t, "bigas", *rice.LocalName)
	assert.Equal(t, []string{"Ganador", "Sinandomeng", "Jasmine"}, rice.SuggestedBrands)
	assert.Contains(t, rice.SKU, "UNB-BIGA-")

	require.NotNil(t, txn.Totals)
	assert.Equal(t, 185.0, txn.Totals.TotalAmount)
	assert.Equal(t, 130.0, txn.Totals.BrandedAmount)
	assert.Equal(t, 55.0, txn.Totals.UnbrandedAmount)
	assert.Equal(t, 2.0, txn.Totals.BrandedCount)
	assert.Equal(t, 1.0, txn.Totals.UnbrandedCount)

	require.NotNil(t, txn.Insights)
	assert.Contains(t, txn.Insights.Suggestions, "Suggest cooking oil with rice purchase")
}

func TestAssembleFillsMissingHeader(t *testing.T) {
	a := NewAssembler(newTestMerger(), nil, nil)
	txn := a.Assemble(Draft{StoreID: "S", DeviceID: "D"}, []Detection{
		ManualEntry{ProductName: "Load", Quantity: 1, UnitPrice: 50},
	})

	assert.NotEmpty(t, txn.TransactionID)
	assert.False(t, txn.Timestamp.IsZero())
	assert.Equal(t, domain.CategoryOther, txn.Items[0].Category)
}
