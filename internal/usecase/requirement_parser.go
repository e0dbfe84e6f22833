package usecase

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/tradematch/backend/internal/domain"
)

const defaultQuantityUnit = "units"

// requirementSchema is the shape the model must answer with. Field values stay loose
// (numbers may arrive as numerals in text) and are tightened by the typed parse below.
var requirementSchema = gojsonschema.NewGoLoader(map[string]interface{}{
	"type":     "object",
	"required": []string{"productDescription", "quantity"},
	"properties": map[string]interface{}{
		"productDescription": map[string]interface{}{"type": "string", "minLength": 1},
		"quantity":           map[string]interface{}{"type": []string{"object", "number", "string"}},
		"specifications":     map[string]interface{}{"type": []string{"array", "object", "null"}},
		"targetPrice":        map[string]interface{}{"type": []string{"object", "number", "string", "null"}},
		"categoryHints": map[string]interface{}{
			"type":  []string{"array", "null"},
			"items": map[string]interface{}{"type": "string"},
		},
	},
})

type rawRequirement struct {
	ProductDescription string          `json:"productDescription"`
	Quantity           json.RawMessage `json:"quantity"`
	Specifications     json.RawMessage `json:"specifications"`
	TargetPrice        json.RawMessage `json:"targetPrice"`
	CategoryHints      []string        `json:"categoryHints"`
}

// parseRequirement turns the model's reply into a validated requirement or an error.
// It never returns a partially filled requirement.
func parseRequirement(content string, catalog domain.CategoryCatalog) (domain.ProcurementRequirement, error) {
	body := extractJSONObject(content)
	if body == "" {
		return domain.ProcurementRequirement{}, errors.New("reply contains no JSON object")
	}

	result, err := gojsonschema.Validate(requirementSchema, gojsonschema.NewStringLoader(body))
	if err != nil {
		return domain.ProcurementRequirement{}, fmt.Errorf("reply is not valid JSON: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return domain.ProcurementRequirement{}, fmt.Errorf("reply does not match requirement schema: %s", strings.Join(msgs, "; "))
	}

	var raw rawRequirement
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return domain.ProcurementRequirement{}, fmt.Errorf("decode reply: %w", err)
	}

	quantity, err := parseQuantity(raw.Quantity)
	if err != nil {
		return domain.ProcurementRequirement{}, fmt.Errorf("quantity: %w", err)
	}

	specs, err := parseSpecifications(raw.Specifications)
	if err != nil {
		return domain.ProcurementRequirement{}, fmt.Errorf("specifications: %w", err)
	}

	price, err := parsePrice(raw.TargetPrice)
	if err != nil {
		return domain.ProcurementRequirement{}, fmt.Errorf("targetPrice: %w", err)
	}

	return domain.NewProcurementRequirement(
		raw.ProductDescription,
		quantity,
		specs,
		price,
		reconcileHints(raw.CategoryHints, catalog),
	)
}

// extractJSONObject strips markdown fences and any prose around the outermost object
func extractJSONObject(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		if nl := strings.Index(s, "\n"); nl >= 0 {
			s = s[nl+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}

func parseQuantity(raw json.RawMessage) (domain.Quantity, error) {
	var obj struct {
		Value json.RawMessage `json:"value"`
		Unit  string          `json:"unit"`
	}
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		if err := json.Unmarshal(raw, &obj); err != nil {
			return domain.Quantity{}, err
		}
		if len(obj.Value) == 0 {
			return domain.Quantity{}, errors.New("value is missing")
		}
	} else {
		obj.Value = raw
	}

	n, err := decodeNumber(obj.Value)
	if err != nil {
		return domain.Quantity{}, err
	}
	if n.Value <= 0 {
		return domain.Quantity{}, fmt.Errorf("value must be positive, got %v", n.Value)
	}

	unit := strings.TrimSpace(obj.Unit)
	if unit == "" {
		unit = n.Rest
	}
	if unit == "" {
		unit = defaultQuantityUnit
	}
	return domain.Quantity{Value: n.Value, Unit: unit}, nil
}

func parsePrice(raw json.RawMessage) (*domain.Price, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var obj struct {
		Amount   json.RawMessage `json:"amount"`
		Currency string          `json:"currency"`
	}
	if bytes.HasPrefix(trimmed, []byte("{")) {
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, err
		}
		if len(obj.Amount) == 0 || bytes.Equal(obj.Amount, []byte("null")) {
			return nil, nil
		}
	} else {
		obj.Amount = trimmed
	}

	n, err := decodeNumber(obj.Amount)
	if err != nil {
		return nil, err
	}

	currency := strings.TrimSpace(obj.Currency)
	if symbol, ok := currencySymbols[currency]; ok {
		currency = symbol
	}
	if currency == "" {
		currency = n.Currency
	}
	if currency == "" {
		return nil, errors.New("currency could not be determined")
	}
	return &domain.Price{Amount: n.Value, Currency: currency}, nil
}

// parseSpecifications accepts [{key, value}] or a {key: value} object, keeping source order
func parseSpecifications(raw json.RawMessage) ([]domain.Specification, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var items []struct {
			Key   string          `json:"key"`
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		specs := make([]domain.Specification, 0, len(items))
		for i, item := range items {
			value, err := stringify(item.Value)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			specs = append(specs, domain.Specification{Key: item.Key, Value: value})
		}
		return specs, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var specs []domain.Specification
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		text, err := stringify(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		specs = append(specs, domain.Specification{Key: key, Value: text})
	}
	return specs, nil
}

// reconcileHints maps hints onto canonical catalog names; unknown hints are kept as written
func reconcileHints(hints []string, catalog domain.CategoryCatalog) []string {
	out := make([]string, 0, len(hints))
	for _, h := range hints {
		h = strings.Join(strings.Fields(h), " ")
		if h == "" {
			continue
		}
		if catalog != nil {
			if canonical, ok := catalog.Canonical(h); ok {
				h = canonical
			}
		}
		out = append(out, h)
	}
	return out
}
