package detection

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ridwanfathin/edge-transaction-service/internal/classifier"
	"github.com/ridwanfathin/edge-transaction-service/internal/domain"
	"github.com/ridwanfathin/edge-transaction-service/internal/units"
)

// MergerConfig holds the spatial thresholds used when reconciling channels
type MergerConfig struct {
	// ProximityThreshold is the maximum centre distance for two detections
	// to describe the same item
	ProximityThreshold float64
	// MinShapeArea discards smaller unbranded contours as noise
	MinShapeArea float64
}

// DefaultMergerConfig returns the thresholds used by edge builds
func DefaultMergerConfig() MergerConfig {
	return MergerConfig{
		ProximityThreshold: 100,
		MinShapeArea:       1000,
	}
}

// Merger reconciles detections from every channel into one item list.
// It holds no mutable state and may be shared across goroutines.
type Merger struct {
	cfg        MergerConfig
	units      *units.Normalizer
	classifier *classifier.Classifier
}

// NewMerger creates a merger. Nil collaborators select the defaults.
func NewMerger(cfg MergerConfig, n *units.Normalizer, c *classifier.Classifier) *Merger {
	if c == nil {
		c = classifier.New()
	}
	if n == nil {
		n = units.NewNormalizer(nil).WithProductWords(c.IsProductWord)
	}
	return &Merger{cfg: cfg, units: n, classifier: c}
}

type ocrLine struct {
	det  OCRDetection
	line parsedLine
	used bool
}

type logoGroup struct {
	anchor  LogoDetection
	brand   string
	members []LogoDetection
}

// Merge reconciles detections. Output order is logo-anchored items in
// reading order, then OCR-only lines, unbranded shapes, voice and manual
// items. The same input always yields the same output.
func (m *Merger) Merge(detections []Detection) []domain.TransactionItem {
	var (
		logos  []LogoDetection
		shapes []ShapeDetection
		voice  []VoiceDetection
		manual []ManualEntry
		names  []*ocrLine
		hints  []*ocrLine
	)

	for _, d := range detections {
		switch v := d.(type) {
		case LogoDetection:
			logos = append(logos, v)
		case ShapeDetection:
			if v.ShapeArea() >= m.cfg.MinShapeArea {
				shapes = append(shapes, v)
			}
		case OCRDetection:
			l := &ocrLine{det: v, line: parseLine(m.units, v.Text)}
			switch {
			case l.line.isHint():
				hints = append(hints, l)
			case l.line.isProduct():
				names = append(names, l)
			}
		case VoiceDetection:
			voice = append(voice, v)
		case ManualEntry:
			manual = append(manual, v)
		}
	}

	sortByReadingOrder(logos, func(l LogoDetection) Region { return l.Region })
	sortByReadingOrder(shapes, func(s ShapeDetection) Region { return s.Region })
	sortByReadingOrder(names, func(l *ocrLine) Region { return l.det.Region })

	var items []domain.TransactionItem
	var occupied []Region

	for _, g := range m.groupLogos(logos) {
		items = append(items, m.mergeLogo(g, names, hints))
		occupied = append(occupied, g.anchor.Region)
	}

	for _, l := range names {
		if l.used {
			continue
		}
		l.used = true
		line := l.line
		if h := m.nearest(hints, l.det.Region, nil); h != nil {
			h.used = true
			line = line.with(h.line)
		}
		item := domain.TransactionItem{
			ProductName:     line.name,
			DetectionMethod: domain.DetectionOCR,
			Confidence:      clamp(l.det.Confidence),
		}
		items = append(items, line.apply(item))
		occupied = append(occupied, l.det.Region)
	}

	for _, s := range shapes {
		if m.near(occupied, s.Region) {
			continue
		}
		items = append(items, s.ToItem())
		occupied = append(occupied, s.Region)
	}

	for _, v := range voice {
		item := v.ToItem(m.units)
		item.BrandName = m.canonical(item.BrandName)
		items = append(items, item)
	}
	for _, e := range manual {
		item := e.ToItem(m.units)
		item.BrandName = m.canonical(item.BrandName)
		items = append(items, item)
	}

	return items
}

// groupLogos folds repeated matches of one brand at one spot into a single
// group anchored on the first match in reading order
func (m *Merger) groupLogos(logos []LogoDetection) []*logoGroup {
	var groups []*logoGroup
	for _, l := range logos {
		brand, _ := m.classifier.CanonicalBrand(l.BrandName)
		var into *logoGroup
		best := m.cfg.ProximityThreshold
		for _, g := range groups {
			if g.brand != brand {
				continue
			}
			if d := g.anchor.Region.Distance(l.Region); d < best {
				into, best = g, d
			}
		}
		if into != nil {
			into.members = append(into.members, l)
			continue
		}
		groups = append(groups, &logoGroup{anchor: l, brand: brand, members: []LogoDetection{l}})
	}
	return groups
}

func (m *Merger) mergeLogo(g *logoGroup, names, hints []*ocrLine) domain.TransactionItem {
	var confidences, brandConfidences []float64
	for _, l := range g.members {
		confidences = append(confidences, clamp(l.Confidence))
		if l.BrandConfidence != nil {
			brandConfidences = append(brandConfidences, clamp(*l.BrandConfidence))
		}
	}
	if len(brandConfidences) == 0 {
		brandConfidences = logoBrandConfidence(g.members)
	}

	brand := g.brand
	item := domain.TransactionItem{
		BrandName:       &brand,
		ProductName:     UnknownProduct,
		DetectionMethod: domain.DetectionVision,
	}
	line := defaultLine()

	match := m.nearest(names, g.anchor.Region, func(l *ocrLine) bool {
		return m.sameBrand(l, brand)
	})
	if match != nil {
		match.used = true
		confidences = append(confidences, clamp(match.det.Confidence))
		item.DetectionMethod = domain.DetectionHybrid
		item.ProductName = match.line.name
		line = match.line
	}
	if h := m.nearest(hints, g.anchor.Region, nil); h != nil {
		h.used = true
		line = line.with(h.line)
	}

	item.Confidence = mean(confidences)
	brandConfidence := mean(brandConfidences)
	item.BrandConfidence = &brandConfidence
	return line.apply(item)
}

// logoBrandConfidence is the brand confidence of a group in which no logo
// reported one: the recognition confidence of each match stands in for it.
func logoBrandConfidence(members []LogoDetection) []float64 {
	values := make([]float64, 0, len(members))
	for _, l := range members {
		values = append(values, clamp(l.Confidence))
	}
	return values
}

// sameBrand reports whether an OCR line names the logo's brand. The text,
// or the product text left after quantity and price tokens are removed,
// must equal the brand ignoring case and surrounding space. Catalog aliases
// ("Coke" for "Coca-Cola") do not confirm a logo.
func (m *Merger) sameBrand(l *ocrLine, brand string) bool {
	raw := strings.TrimSpace(l.det.Text)
	return strings.EqualFold(raw, brand) || strings.EqualFold(l.line.name, brand)
}

// nearest returns the closest unused line within the proximity threshold.
// Ties keep the earlier line.
func (m *Merger) nearest(lines []*ocrLine, r Region, accept func(*ocrLine) bool) *ocrLine {
	var found *ocrLine
	best := m.cfg.ProximityThreshold
	for _, l := range lines {
		if l.used || (accept != nil && !accept(l)) {
			continue
		}
		if d := l.det.Region.Distance(r); d < best {
			found, best = l, d
		}
	}
	return found
}

func (m *Merger) near(regions []Region, r Region) bool {
	for _, o := range regions {
		if o.Distance(r) < m.cfg.ProximityThreshold {
			return true
		}
	}
	return false
}

func (m *Merger) canonical(brand *string) *string {
	if brand == nil {
		return nil
	}
	name, _ := m.classifier.CanonicalBrand(*brand)
	return &name
}

func sortByReadingOrder[T any](s []T, region func(T) Region) {
	sort.SliceStable(s, func(i, j int) bool {
		a, b := region(s[i]), region(s[j])
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
}

// mean averages in decimal and keeps six places
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	return sum.Div(decimal.NewFromInt(int64(len(values)))).Round(6).InexactFloat64()
}
