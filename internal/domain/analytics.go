package domain

import "time"

// StoreAnalytics is the daily rollup for one store
type StoreAnalytics struct {
	StoreID            string    `json:"storeId"`
	Date               string    `json:"date"`
	TotalTransactions  int64     `json:"totalTransactions"`
	TotalRevenue       float64   `json:"totalRevenue"`
	BrandedRevenue     float64   `json:"brandedRevenue"`
	UnbrandedRevenue   float64   `json:"unbrandedRevenue"`
	TotalItemsSold     float64   `json:"totalItemsSold"`
	BrandedItemsSold   float64   `json:"brandedItemsSold"`
	UnbrandedItemsSold float64   `json:"unbrandedItemsSold"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// BrandPerformance holds running totals for a brand
type BrandPerformance struct {
	BrandName      string    `json:"brandName"`
	Category       string    `json:"category"`
	TotalUnitsSold float64   `json:"totalUnitsSold"`
	TotalRevenue   float64   `json:"totalRevenue"`
	AvgPrice       float64   `json:"avgPrice"`
	LastUnitPrice  float64   `json:"lastUnitPrice"`
	LastSold       time.Time `json:"lastSold"`
}

// RegionalInsight holds running totals for a region
type RegionalInsight struct {
	Region            string         `json:"region"`
	TotalTransactions int64          `json:"totalTransactions"`
	TotalRevenue      float64        `json:"totalRevenue"`
	BrandedRevenue    float64        `json:"brandedRevenue"`
	BrandedPercentage float64        `json:"brandedPercentage"`
	TopCategories     []CategoryStat `json:"topCategories"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

// Store maps a store to its location for regional rollups
type Store struct {
	StoreID  string `json:"storeId"`
	Region   string `json:"region" validate:"required"`
	Province string `json:"province,omitempty"`
	City     string `json:"city,omitempty"`
}

// AnalyticsFilter narrows analytics queries
type AnalyticsFilter struct {
	StoreID       string
	StartDate     *time.Time
	EndDate       *time.Time
	Limit         int
	CategoryLimit int
}

// HasRange reports whether a time range was requested
func (f AnalyticsFilter) HasRange() bool {
	return f.StartDate != nil || f.EndDate != nil
}

// Contains reports whether t falls inside the range. EndDate names the last
// included calendar day.
func (f AnalyticsFilter) Contains(t time.Time) bool {
	if f.StartDate != nil && t.Before(*f.StartDate) {
		return false
	}
	if end := f.EndExclusive(); end != nil && !t.Before(*end) {
		return false
	}
	return true
}

// EndExclusive returns the first instant after the range, or nil
func (f AnalyticsFilter) EndExclusive() *time.Time {
	if f.EndDate == nil {
		return nil
	}
	end := f.EndDate.AddDate(0, 0, 1)
	return &end
}

// BrandedPercentageOf computes branded share of revenue as a percentage
func BrandedPercentageOf(branded, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return branded / total * 100
}

// LowConfidenceThreshold marks items whose capture confidence is weak
// enough to deserve a manual review
const LowConfidenceThreshold = 0.7

// DetectionStat summarises the items captured through one detection method
type DetectionStat struct {
	DetectionMethod    DetectionMethod `json:"detectionMethod"`
	ItemCount          int64           `json:"itemCount"`
	AverageConfidence  float64         `json:"averageConfidence"`
	LowConfidenceCount int64           `json:"lowConfidenceCount"`
	TotalRevenue       float64         `json:"totalRevenue"`
	ItemShare          float64         `json:"itemShare"`
}

// DefaultMinVolume is the smallest unbranded quantity reported as an opportunity
const DefaultMinVolume = 10.0

// UnbrandedOpportunity is the unbranded volume of one product sold in one
// unit. Product is the generic name when known, otherwise the product name.
type UnbrandedOpportunity struct {
	Category        string   `json:"category"`
	Product         string   `json:"product"`
	Unit            string   `json:"unit"`
	TotalQuantity   float64  `json:"totalQuantity"`
	ItemCount       int64    `json:"itemCount"`
	TotalRevenue    float64  `json:"totalRevenue"`
	StoreCount      int64    `json:"storeCount"`
	SuggestedBrands []string `json:"suggestedBrands"`
}

// OpportunityFilter narrows unbranded opportunity queries
type OpportunityFilter struct {
	AnalyticsFilter
	Category  string
	MinVolume float64
}
