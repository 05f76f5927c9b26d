// Package detection reconciles voice, OCR and vision detections into line items.
package detection

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/ridwanfathin/edge-transaction-service/internal/domain"
	"github.com/ridwanfathin/edge-transaction-service/internal/units"
)

// UnknownProduct names vision items that no text confirmed
const UnknownProduct = "Unknown Product"

// ManualConfidence is the confidence assigned to cashier-entered items
const ManualConfidence = 1.0

// Region is an axis-aligned bounding box in layout units
type Region struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the centre point of the region
func (r Region) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Distance is the euclidean distance between region centres
func (r Region) Distance(o Region) float64 {
	x1, y1 := r.Center()
	x2, y2 := o.Center()
	return math.Hypot(x1-x2, y1-y2)
}

// Area of the region
func (r Region) Area() float64 {
	return r.Width * r.Height
}

// Detection is one candidate produced by a capture channel
type Detection interface {
	Method() domain.DetectionMethod
	isDetection()
}

// VoiceDetection is an item parsed from a spoken utterance. Number words
// are already resolved to Quantity by the speech parser.
type VoiceDetection struct {
	Text        string
	BrandName   *string
	ProductName string
	Quantity    float64
	Unit        string
	UnitPrice   float64
	Confidence  float64
}

// OCRDetection is one recognized text line on a receipt or shelf image
type OCRDetection struct {
	Text       string
	Region     Region
	Confidence float64
}

// LogoDetection is a vision match against a known brand template
type LogoDetection struct {
	BrandName       string
	Region          Region
	Confidence      float64
	BrandConfidence *float64
}

// ShapeDetection is a product-shaped contour without a brand match
type ShapeDetection struct {
	Region     Region
	Area       float64
	Confidence float64
}

// ManualEntry is an item keyed in by the cashier
type ManualEntry struct {
	BrandName   *string
	ProductName string
	Quantity    float64
	Unit        string
	UnitPrice   float64
}

func (VoiceDetection) Method() domain.DetectionMethod { return domain.DetectionVoice }
func (OCRDetection) Method() domain.DetectionMethod   { return domain.DetectionOCR }
func (LogoDetection) Method() domain.DetectionMethod  { return domain.DetectionVision }
func (ShapeDetection) Method() domain.DetectionMethod { return domain.DetectionVision }
func (ManualEntry) Method() domain.DetectionMethod    { return domain.DetectionManual }

func (VoiceDetection) isDetection() {}
func (OCRDetection) isDetection()   {}
func (LogoDetection) isDetection()  {}
func (ShapeDetection) isDetection() {}
func (ManualEntry) isDetection()    {}

// ShapeArea returns the contour area, falling back to the bounding box
func (s ShapeDetection) ShapeArea() float64 {
	if s.Area > 0 {
		return s.Area
	}
	return s.Region.Area()
}

// ToItem maps a voice detection to a line item
func (v VoiceDetection) ToItem(n *units.Normalizer) domain.TransactionItem {
	quantity, unit := n.Parse(v.Text)
	if v.Quantity > 0 {
		quantity = v.Quantity
	}
	if strings.TrimSpace(v.Unit) != "" {
		unit = n.NormalizeUnit(v.Unit)
	}

	name := strings.TrimSpace(v.ProductName)
	if name == "" {
		name = n.Strip(v.Text)
	}
	if name == "" {
		name = UnknownProduct
	}

	return priced(domain.TransactionItem{
		BrandName:       trimmed(v.BrandName),
		ProductName:     name,
		Quantity:        quantity,
		Unit:            unit,
		DetectionMethod: domain.DetectionVoice,
		Confidence:      clamp(v.Confidence),
	}, v.UnitPrice)
}

// ToItem maps an OCR line with no visual anchor to a line item
func (o OCRDetection) ToItem(n *units.Normalizer) domain.TransactionItem {
	line := parseLine(n, o.Text)
	item := domain.TransactionItem{
		ProductName:     line.name,
		Quantity:        line.quantity,
		Unit:            line.unit,
		DetectionMethod: domain.DetectionOCR,
		Confidence:      clamp(o.Confidence),
	}
	return line.apply(item)
}

// ToItem maps an unconfirmed logo match to a placeholder line item
func (l LogoDetection) ToItem() domain.TransactionItem {
	brand := strings.TrimSpace(l.BrandName)
	brandConfidence := clamp(l.Confidence)
	if l.BrandConfidence != nil {
		brandConfidence = clamp(*l.BrandConfidence)
	}
	return domain.TransactionItem{
		BrandName:       &brand,
		ProductName:     UnknownProduct,
		Quantity:        units.DefaultQuantity,
		Unit:            units.DefaultUnit,
		DetectionMethod: domain.DetectionVision,
		Confidence:      clamp(l.Confidence),
		BrandConfidence: &brandConfidence,
	}
}

// ToItem maps an unbranded shape to a placeholder line item
func (s ShapeDetection) ToItem() domain.TransactionItem {
	return domain.TransactionItem{
		ProductName:     UnknownProduct,
		Quantity:        units.DefaultQuantity,
		Unit:            units.DefaultUnit,
		DetectionMethod: domain.DetectionVision,
		Confidence:      clamp(s.Confidence),
	}
}

// ToItem maps a manual entry to a line item
func (m ManualEntry) ToItem(n *units.Normalizer) domain.TransactionItem {
	quantity := m.Quantity
	if quantity <= 0 {
		quantity = units.DefaultQuantity
	}
	return priced(domain.TransactionItem{
		BrandName:       trimmed(m.BrandName),
		ProductName:     strings.TrimSpace(m.ProductName),
		Quantity:        quantity,
		Unit:            n.NormalizeUnit(m.Unit),
		DetectionMethod: domain.DetectionManual,
		Confidence:      ManualConfidence,
	}, m.UnitPrice)
}

// Envelope is the wire form of a detection, keyed by detectionMethod
type Envelope struct {
	DetectionMethod domain.DetectionMethod `json:"detectionMethod"`
	Text            string                 `json:"text,omitempty"`
	BrandName       *string                `json:"brandName,omitempty"`
	ProductName     string                 `json:"productName,omitempty"`
	Quantity        float64                `json:"quantity,omitempty"`
	Unit            string                 `json:"unit,omitempty"`
	UnitPrice       float64                `json:"unitPrice,omitempty"`
	BoundingRegion  *Region                `json:"boundingRegion,omitempty"`
	Area            float64                `json:"area,omitempty"`
	Confidence      float64                `json:"confidence"`
	BrandConfidence *float64               `json:"brandConfidence,omitempty"`
}

// Detection converts the envelope into its channel variant
func (e Envelope) Detection() (Detection, error) {
	switch e.DetectionMethod {
	case domain.DetectionVoice:
		return VoiceDetection{
			Text:        e.Text,
			BrandName:   e.BrandName,
			ProductName: e.ProductName,
			Quantity:    e.Quantity,
			Unit:        e.Unit,
			UnitPrice:   e.UnitPrice,
			Confidence:  e.Confidence,
		}, nil
	case domain.DetectionOCR:
		if e.BoundingRegion == nil {
			return nil, fmt.Errorf("ocr detection %q: missing boundingRegion", e.Text)
		}
		return OCRDetection{Text: e.Text, Region: *e.BoundingRegion, Confidence: e.Confidence}, nil
	case domain.DetectionVision:
		if e.BoundingRegion == nil {
			return nil, fmt.Errorf("vision detection: missing boundingRegion")
		}
		if e.BrandName != nil && strings.TrimSpace(*e.BrandName) != "" {
			return LogoDetection{
				BrandName:       *e.BrandName,
				Region:          *e.BoundingRegion,
				Confidence:      e.Confidence,
				BrandConfidence: e.BrandConfidence,
			}, nil
		}
		return ShapeDetection{Region: *e.BoundingRegion, Area: e.Area, Confidence: e.Confidence}, nil
	case domain.DetectionManual:
		return ManualEntry{
			BrandName:   e.BrandName,
			ProductName: e.ProductName,
			Quantity:    e.Quantity,
			Unit:        e.Unit,
			UnitPrice:   e.UnitPrice,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported detectionMethod %q", e.DetectionMethod)
	}
}

// Decode parses a JSON array of detection envelopes
func Decode(data []byte) ([]Detection, error) {
	var envelopes []Envelope
	if err := json.Unmarshal(data, &envelopes); err != nil {
		return nil, fmt.Errorf("decode detections: %w", err)
	}
	return FromEnvelopes(envelopes)
}

// FromEnvelopes converts envelopes, reporting the index of the first bad one
func FromEnvelopes(envelopes []Envelope) ([]Detection, error) {
	detections := make([]Detection, 0, len(envelopes))
	for i, e := range envelopes {
		d, err := e.Detection()
		if err != nil {
			return nil, fmt.Errorf("detections[%d]: %w", i, err)
		}
		detections = append(detections, d)
	}
	return detections, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// clamp bounds a confidence to [0,1]. NaN counts as no confidence.
func clamp(c float64) float64 {
	if math.IsNaN(c) {
		return 0
	}
	return math.Max(0, math.Min(1, c))
}
