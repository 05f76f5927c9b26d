// Package validation canonicalizes and validates submitted transactions
// before anything is persisted.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ridwanfathin/edge-transaction-service/internal/aggregator"
	"github.com/ridwanfathin/edge-transaction-service/internal/domain"
	"github.com/ridwanfathin/edge-transaction-service/internal/units"
)

// Validator wraps go-playground/validator with the transaction rules.
// It is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
}

// New creates a validator that reports fields by their JSON names
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// registration only fails for empty tags
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return domain.IsKnownCategory(fl.Field().String())
	})
	return &Validator{validate: v}
}

// Canonicalize trims text fields, folds aliases and fills derived fields in place
func (v *Validator) Canonicalize(txn *domain.Transaction) {
	txn.TransactionID = strings.TrimSpace(txn.TransactionID)
	txn.StoreID = strings.TrimSpace(txn.StoreID)
	txn.DeviceID = strings.TrimSpace(txn.DeviceID)
	txn.PaymentMethod = strings.TrimSpace(txn.PaymentMethod)
	txn.EdgeVersion = strings.TrimSpace(txn.EdgeVersion)

	for i := range txn.Items {
		item := &txn.Items[i]
		item.ProductName = strings.TrimSpace(item.ProductName)
		item.BrandName = optional(item.BrandName)
		item.GenericName = optional(item.GenericName)
		item.LocalName = optional(item.LocalName)
		item.Unit = units.NormalizeUnit(item.Unit)
		item.Category = domain.CanonicalCategory(item.Category)
		item.DetectionMethod = domain.ParseDetectionMethod(string(item.DetectionMethod))
		item.SKU = strings.TrimSpace(item.SKU)
		if item.SKU == "" && item.ProductName != "" {
			item.SKU = domain.GenerateSKU(item.BrandName, item.ProductName, txn.Timestamp)
		}
	}
}

// Validate checks schema rules and cross-field invariants. It returns a
// *domain.ValidationError listing every offending field, or nil.
func (v *Validator) Validate(txn *domain.Transaction) error {
	verr := &domain.ValidationError{}
	v.collect(txn, verr)

	for i, item := range txn.Items {
		prefix := fmt.Sprintf("items[%d].", i)
		if item.IsUnbranded != (item.BrandName == nil) {
			verr.Add(prefix+"isUnbranded", "must be true exactly when brandName is absent")
		}
		if item.BrandConfidence != nil && item.BrandName == nil {
			verr.Add(prefix+"brandConfidence", "is only allowed when brandName is set")
		}
		if len(item.SuggestedBrands) > 0 && item.BrandName != nil {
			verr.Add(prefix+"suggestedBrands", "is only allowed for unbranded items")
		}
		if item.Quantity > 0 && item.UnitPrice >= 0 &&
			!aggregator.WithinTolerance(item.TotalPrice, aggregator.LineTotal(item.Quantity, item.UnitPrice)) {
			verr.Add(prefix+"totalPrice", "must equal quantity times unitPrice rounded to 2 decimals")
		}
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}

// Struct validates any tagged struct and reports failures as a ValidationError
func (v *Validator) Struct(s any) error {
	verr := &domain.ValidationError{}
	v.collect(s, verr)
	if verr.HasErrors() {
		return verr
	}
	return nil
}

func (v *Validator) collect(s any, verr *domain.ValidationError) {
	err := v.validate.Struct(s)
	if err == nil {
		return
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.Add("", err.Error())
		return
	}
	for _, fe := range fieldErrs {
		verr.Add(fieldPath(fe.Namespace()), message(fe))
	}
}

// fieldPath drops the root struct name: "Transaction.items[0].quantity" -> "items[0].quantity"
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "min":
		return "must contain at least " + fe.Param() + " entries"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "category":
		return fmt.Sprintf("unknown category %q", fe.Value())
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

func optional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
