package detection

import (
	"time"

	"github.com/google/uuid"

	"github.com/ridwanfathin/edge-transaction-service/internal/aggregator"
	"github.com/ridwanfathin/edge-transaction-service/internal/classifier"
	"github.com/ridwanfathin/edge-transaction-service/internal/domain"
	"github.com/ridwanfathin/edge-transaction-service/internal/units"
)

// Draft carries the transaction header for an assembled transaction
type Draft struct {
	TransactionID string
	StoreID       string
	DeviceID      string
	Timestamp     time.Time
	PaymentMethod string
	EdgeVersion   string
}

// Assembler runs the full edge pipeline: merge, classify, normalize and
// aggregate. The result is a draft ready for submission.
type Assembler struct {
	merger     *Merger
	classifier *classifier.Classifier
	aggregator *aggregator.Aggregator
	now        func() time.Time
}

// NewAssembler wires an assembler from its stages
func NewAssembler(merger *Merger, c *classifier.Classifier, agg *aggregator.Aggregator) *Assembler {
	if c == nil {
		c = classifier.New()
	}
	if agg == nil {
		agg = aggregator.New(aggregator.AnomalyPolicy{}, nil)
	}
	return &Assembler{merger: merger, classifier: c, aggregator: agg, now: time.Now}
}

// Assemble builds a draft transaction from raw detections
func (a *Assembler) Assemble(d Draft, detections []Detection) *domain.Transaction {
	started := a.now()

	if d.TransactionID == "" {
		d.TransactionID = uuid.NewString()
	}
	if d.Timestamp.IsZero() {
		d.Timestamp = started.UTC()
	}

	merged := a.merger.Merge(detections)
	items := make([]domain.TransactionItem, 0, len(merged))
	for _, item := range merged {
		items = append(items, a.Enrich(item, d.Timestamp))
	}

	totals, insights := a.aggregator.Aggregate(items)

	return &domain.Transaction{
		TransactionID:  d.TransactionID,
		StoreID:        d.StoreID,
		DeviceID:       d.DeviceID,
		Timestamp:      d.Timestamp,
		Items:          items,
		Totals:         &totals,
		Insights:       &insights,
		PaymentMethod:  d.PaymentMethod,
		ProcessingTime: a.now().Sub(started).Seconds(),
		EdgeVersion:    d.EdgeVersion,
	}
}

// Enrich fills the classifier-derived fields of a merged item
func (a *Assembler) Enrich(item domain.TransactionItem, at time.Time) domain.TransactionItem {
	cls := a.classifier.Classify(item.ProductName, item.BrandName)

	item.Category = cls.Category
	item.IsUnbranded = item.BrandName == nil
	item.SuggestedBrands = cls.SuggestedBrands
	if item.GenericName == nil {
		item.GenericName = cls.GenericName
	}
	if item.LocalName == nil {
		item.LocalName = cls.LocalName
	}
	if item.IsUnbranded {
		item.BrandConfidence = nil
	}
	item.IsBulk = units.IsBulk(item.Quantity, item.Unit)
	if item.SKU == "" {
		item.SKU = domain.GenerateSKU(item.BrandName, item.ProductName, at)
	}
	return item
}
