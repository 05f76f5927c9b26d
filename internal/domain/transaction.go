package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// DetectionMethod identifies the capture channel that produced an item
type DetectionMethod string

const (
	DetectionVoice  DetectionMethod = "voice"
	DetectionOCR    DetectionMethod = "ocr"
	DetectionVision DetectionMethod = "vision"
	DetectionManual DetectionMethod = "manual"
	DetectionHybrid DetectionMethod = "hybrid"
)

// detectionAliases maps the channel names older edge builds still send
var detectionAliases = map[string]DetectionMethod{
	"stt": DetectionVoice,
	"cv":  DetectionVision,
}

// ParseDetectionMethod resolves a raw channel name, including legacy aliases
func ParseDetectionMethod(raw string) DetectionMethod {
	value := strings.ToLower(strings.TrimSpace(raw))
	if alias, ok := detectionAliases[value]; ok {
		return alias
	}
	return DetectionMethod(value)
}

// UnmarshalJSON accepts legacy aliases for detection methods
func (m *DetectionMethod) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = ParseDetectionMethod(raw)
	return nil
}

// Retail item categories
const (
	CategoryBeverage = "beverage"
	CategoryFood     = "food"
	CategoryStaple   = "staple"
	CategoryFresh    = "fresh"
	CategorySnacks   = "snacks"
	CategoryCooking  = "cooking"
	CategoryDairy    = "dairy"
	CategoryOther    = "other"
)

// Merchant categories emitted by the classifier for merchant-level text
const (
	CategoryMeals          = "Meals"
	CategoryAccommodation  = "Accommodation"
	CategoryTravel         = "Travel"
	CategoryTransportation = "Transportation"
	CategoryOfficeSupplies = "Office Supplies"
	CategoryTraining       = "Training"
	CategoryCommunication  = "Communication"
)

var knownCategories = map[string]bool{
	CategoryBeverage:       true,
	CategoryFood:           true,
	CategoryStaple:         true,
	CategoryFresh:          true,
	CategorySnacks:         true,
	CategoryCooking:        true,
	CategoryDairy:          true,
	CategoryOther:          true,
	CategoryMeals:          true,
	CategoryAccommodation:  true,
	CategoryTravel:         true,
	CategoryTransportation: true,
	CategoryOfficeSupplies: true,
	CategoryTraining:       true,
	CategoryCommunication:  true,
}

// IsKnownCategory reports whether category belongs to the taxonomy
func IsKnownCategory(category string) bool {
	return knownCategories[category]
}

// CanonicalCategory returns the taxonomy spelling of category, matching case-insensitively.
// Unknown categories are returned trimmed.
func CanonicalCategory(category string) string {
	trimmed := strings.TrimSpace(category)
	for known := range knownCategories {
		if strings.EqualFold(known, trimmed) {
			return known
		}
	}
	return trimmed
}

// TransactionItem represents one purchased line item
type TransactionItem struct {
	ID              string          `json:"id,omitempty"`
	BrandName       *string         `json:"brandName"`
	ProductName     string          `json:"productName" validate:"required"`
	GenericName     *string         `json:"genericName,omitempty"`
	LocalName       *string         `json:"localName,omitempty"`
	SKU             string          `json:"sku,omitempty"`
	Quantity        float64         `json:"quantity" validate:"gt=0"`
	Unit            string          `json:"unit" validate:"required"`
	UnitPrice       float64         `json:"unitPrice" validate:"gte=0"`
	TotalPrice      float64         `json:"totalPrice" validate:"gte=0"`
	Category        string          `json:"category" validate:"required,category"`
	IsUnbranded     bool            `json:"isUnbranded"`
	IsBulk          bool            `json:"isBulk"`
	DetectionMethod DetectionMethod `json:"detectionMethod" validate:"required,oneof=voice ocr vision manual hybrid"`
	Confidence      float64         `json:"confidence" validate:"gte=0,lte=1"`
	BrandConfidence *float64        `json:"brandConfidence,omitempty" validate:"omitempty,gte=0,lte=1"`
	SuggestedBrands []string        `json:"suggestedBrands,omitempty"`
	Notes           string          `json:"notes,omitempty"`
}

// Brand returns the brand name or an empty string for unbranded items
func (i TransactionItem) Brand() string {
	if i.BrandName == nil {
		return ""
	}
	return *i.BrandName
}

// Totals holds the derived amount and count totals of a transaction
type Totals struct {
	TotalAmount     float64 `json:"totalAmount"`
	TotalItems      float64 `json:"totalItems"`
	BrandedAmount   float64 `json:"brandedAmount"`
	UnbrandedAmount float64 `json:"unbrandedAmount"`
	BrandedCount    float64 `json:"brandedCount"`
	UnbrandedCount  float64 `json:"unbrandedCount"`
}

// BrandSplit is the branded vs unbranded percentage split
type BrandSplit struct {
	BrandedPercentage   float64 `json:"brandedPercentage"`
	UnbrandedPercentage float64 `json:"unbrandedPercentage"`
}

// CategoryStat summarises quantity and value for a category
type CategoryStat struct {
	Category string  `json:"category"`
	Count    float64 `json:"count"`
	Value    float64 `json:"value"`
}

// Anomaly flags an item whose attributes fall outside the configured policy
type Anomaly struct {
	ItemIndex int    `json:"itemIndex"`
	Field     string `json:"field"`
	Reason    string `json:"reason"`
}

// Insights holds the derived per-transaction analytics
type Insights struct {
	BrandedVsUnbranded BrandSplit     `json:"brandedVsUnbranded"`
	TopCategories      []CategoryStat `json:"topCategories"`
	Suggestions        []string       `json:"suggestions"`
	Anomalies          []Anomaly      `json:"anomalies,omitempty"`
}

// Transaction represents one completed purchase event at one store
type Transaction struct {
	ID             string            `json:"id,omitempty"`
	TransactionID  string            `json:"transactionId" validate:"required,max=128"`
	StoreID        string            `json:"storeId" validate:"required,max=64"`
	DeviceID       string            `json:"deviceId" validate:"required,max=64"`
	Timestamp      time.Time         `json:"timestamp" validate:"required"`
	Items          []TransactionItem `json:"items" validate:"required,min=1,dive"`
	Totals         *Totals           `json:"totals" validate:"required"`
	Insights       *Insights         `json:"insights" validate:"required"`
	PaymentMethod  string            `json:"paymentMethod" validate:"required"`
	ProcessingTime float64           `json:"processingTime" validate:"gte=0"`
	EdgeVersion    string            `json:"edgeVersion" validate:"required"`
	ReceivedAt     time.Time         `json:"receivedAt,omitempty"`
}

// TransactionFilter represents filters for querying transactions
type TransactionFilter struct {
	StoreID   string
	DeviceID  string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// Pagination represents offset pagination metadata
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// PaginatedTransactions represents a page of transactions
type PaginatedTransactions struct {
	Data       []Transaction `json:"data"`
	Pagination Pagination    `json:"pagination"`
}

// SubmissionResult is returned to edge devices after ingestion
type SubmissionResult struct {
	Success       bool   `json:"success"`
	TransactionID string `json:"transactionId"`
	Message       string `json:"message"`
	Duplicate     bool   `json:"duplicate,omitempty"`
}
