package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridwanfathin/edge-transaction-service/internal/domain"
)

func TestDetectionStats(t *testing.T) {
	items := []domain.TransactionItem{
		{DetectionMethod: domain.DetectionOCR, Confidence: 0.95, TotalPrice: 50},
		{DetectionMethod: domain.DetectionOCR, Confidence: 0.65, TotalPrice: 20.5},
		{DetectionMethod: domain.DetectionVoice, Confidence: 0.8, TotalPrice: 135},
		{Confidence: 1, TotalPrice: 10},
	}

	stats := DetectionStats(items)

	require.Len(t, stats, 3)
	assert.Equal(t, domain.DetectionStat{
		DetectionMethod:    domain.DetectionOCR,
		ItemCount:          2,
		AverageConfidence:  0.8,
		LowConfidenceCount: 1,
		TotalRevenue:       70.5,
		ItemShare:          50,
	}, stats[0])
	// ties on item count fall back to method name
	assert.Equal(t, domain.DetectionManual, stats[1].DetectionMethod)
	assert.Equal(t, domain.DetectionVoice, stats[2].DetectionMethod)
	assert.Equal(t, 25.0, stats[2].ItemShare)

	assert.Equal(t, []domain.DetectionStat{}, DetectionStats(nil))
}

func TestRankOpportunities(t *testing.T) {
	rows := []domain.UnbrandedOpportunity{
		{Category: domain.CategoryFresh, Product: "Itlog", TotalQuantity: 12, TotalRevenue: 96},
		{Category: domain.CategoryStaple, Product: "Rice", TotalQuantity: 30, TotalRevenue: 1350},
		{Category: domain.CategoryCooking, Product: "Asukal", TotalQuantity: 12, TotalRevenue: 720},
		{Category: domain.CategoryCooking, Product: "Asin", TotalQuantity: 12, TotalRevenue: 96},
	}

	ranked := RankOpportunities(rows, 3)

	require.Len(t, ranked, 3)
	assert.Equal(t, []string{"Rice", "Asukal", "Asin"},
		[]string{ranked[0].Product, ranked[1].Product, ranked[2].Product})
	assert.Equal(t, []domain.UnbrandedOpportunity{}, RankOpportunities(nil, 0))
}

func TestOpportunityProduct(t *testing.T) {
	generic := "Rice"
	blank := "  "
	assert.Equal(t, "Rice", OpportunityProduct(domain.TransactionItem{ProductName: "Bigas", GenericName: &generic}))
	assert.Equal(t, "Bigas", OpportunityProduct(domain.TransactionItem{ProductName: " Bigas ", GenericName: &blank}))
	assert.Equal(t, "Bigas", OpportunityProduct(domain.TransactionItem{ProductName: "Bigas"}))
}
