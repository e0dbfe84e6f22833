package domain

import (
	"fmt"
	"strings"
)

// ProcurementRequirement is a buyer's structured procurement need extracted from free text.
// Values are built once per extraction and never modified afterwards.
type ProcurementRequirement struct {
	ProductDescription string          `json:"productDescription"`
	Quantity           Quantity        `json:"quantity"`
	Specifications     []Specification `json:"specifications"`
	TargetPrice        *Price          `json:"targetPrice,omitempty"`
	CategoryHints      []string        `json:"categoryHints"`
}

// Quantity is a requested amount in the buyer's own unit ("units", "meters", "pallets")
type Quantity struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Specification is one key/value attribute in extraction order
type Specification struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Price is a target unit price
type Price struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// NewProcurementRequirement validates every field and returns the requirement.
// Category hints are trimmed and de-duplicated case-insensitively, keeping the first spelling.
func NewProcurementRequirement(
	description string,
	quantity Quantity,
	specs []Specification,
	price *Price,
	hints []string,
) (ProcurementRequirement, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return ProcurementRequirement{}, fmt.Errorf("%w: productDescription is empty", ErrInvalidRequirement)
	}
	if quantity.Value <= 0 {
		return ProcurementRequirement{}, fmt.Errorf("%w: quantity.value must be positive, got %v", ErrInvalidRequirement, quantity.Value)
	}
	quantity.Unit = strings.TrimSpace(quantity.Unit)
	if quantity.Unit == "" {
		return ProcurementRequirement{}, fmt.Errorf("%w: quantity.unit is empty", ErrInvalidRequirement)
	}

	cleanSpecs := make([]Specification, 0, len(specs))
	for i, s := range specs {
		key := strings.TrimSpace(s.Key)
		value := strings.TrimSpace(s.Value)
		if key == "" || value == "" {
			return ProcurementRequirement{}, fmt.Errorf("%w: specifications[%d] needs both key and value", ErrInvalidRequirement, i)
		}
		cleanSpecs = append(cleanSpecs, Specification{Key: key, Value: value})
	}

	if price != nil {
		if price.Amount < 0 {
			return ProcurementRequirement{}, fmt.Errorf("%w: targetPrice.amount must not be negative", ErrInvalidRequirement)
		}
		currency := strings.ToUpper(strings.TrimSpace(price.Currency))
		if currency == "" {
			return ProcurementRequirement{}, fmt.Errorf("%w: targetPrice.currency is empty", ErrInvalidRequirement)
		}
		price = &Price{Amount: price.Amount, Currency: currency}
	}

	return ProcurementRequirement{
		ProductDescription: description,
		Quantity:           quantity,
		Specifications:     cleanSpecs,
		TargetPrice:        price,
		CategoryHints:      uniqueFold(hints),
	}, nil
}

// Validate re-checks a requirement received from outside (e.g. a matching request body)
func (r ProcurementRequirement) Validate() error {
	_, err := NewProcurementRequirement(r.ProductDescription, r.Quantity, r.Specifications, r.TargetPrice, r.CategoryHints)
	return err
}

// HasCategory reports whether any hint equals category, ignoring case
func (r ProcurementRequirement) HasCategory(category string) bool {
	category = strings.TrimSpace(category)
	for _, h := range r.CategoryHints {
		if strings.EqualFold(h, category) {
			return true
		}
	}
	return false
}

func uniqueFold(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		k := strings.ToLower(v)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, v)
	}
	return out
}
