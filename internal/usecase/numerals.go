package usecase

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// numeralPattern reads "$3", "5,000", "5k units", "1.5 meters", "USD 3.20", "about 200 rolls"
var numeralPattern = regexp.MustCompile(`^(?i:(?:about|approx\.?|approximately|around|roughly|~)\s*)?(?:([A-Za-z]{3})\s+)?([$€£₹])?\s*(\d{1,3}(?:,\d{3})+|\d+)(\.\d+)?(?:\s*([kK])\b)?\s*(.*)$`)

var currencyCodePattern = regexp.MustCompile(`^[A-Za-z]{3}$`)

// isoCurrencyCodes are the codes recognised next to a number, in any case
var isoCurrencyCodes = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "INR": true, "CNY": true, "RMB": true,
	"JPY": true, "KRW": true, "HKD": true, "TWD": true, "SGD": true, "AUD": true,
	"NZD": true, "CAD": true, "MXN": true, "BRL": true, "CHF": true, "SEK": true,
	"NOK": true, "DKK": true, "PLN": true, "TRY": true, "AED": true, "SAR": true,
	"ZAR": true, "THB": true, "VND": true, "IDR": true, "MYR": true, "PHP": true,
	"BDT": true, "PKR": true, "LKR": true, "EGP": true,
}

var currencySymbols = map[string]string{
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
	"₹": "INR",
}

// numeral is a number read out of free text plus what surrounded it
type numeral struct {
	Value    float64
	Currency string // from a leading symbol or code, upper case
	Rest     string // trailing text, e.g. the unit
}

// parseNumeral reads a leading natural-language number. Thousands separators and a
// trailing "k" are understood; anything after the number is returned untouched in Rest.
func parseNumeral(s string) (numeral, error) {
	s = strings.TrimSpace(s)
	m := numeralPattern.FindStringSubmatch(s)
	if m == nil {
		return numeral{}, fmt.Errorf("no number in %q", s)
	}

	value, err := strconv.ParseFloat(strings.ReplaceAll(m[3], ",", "")+m[4], 64)
	if err != nil {
		return numeral{}, fmt.Errorf("parse number %q: %w", m[3]+m[4], err)
	}
	if m[5] != "" {
		value *= 1000
	}

	n := numeral{Value: value, Rest: strings.TrimSpace(m[6])}
	switch {
	case m[2] != "":
		n.Currency = currencySymbols[m[2]]
	case isCurrencyCode(m[1]):
		n.Currency = strings.ToUpper(m[1])
	}
	if n.Currency == "" {
		if code, _, _ := strings.Cut(n.Rest, " "); isCurrencyCode(code) {
			n.Currency = strings.ToUpper(code)
		}
	}
	return n, nil
}

// isCurrencyCode reports whether s is a known currency code; "pcs" or "set" are units
func isCurrencyCode(s string) bool {
	return currencyCodePattern.MatchString(s) && isoCurrencyCodes[strings.ToUpper(s)]
}

// decodeNumber accepts a JSON number or a string numeral
func decodeNumber(raw json.RawMessage) (numeral, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return numeral{Value: f}, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return numeral{}, fmt.Errorf("expected a number, got %s", string(raw))
	}
	return parseNumeral(s)
}

// stringify renders a scalar or a list of scalars as display text
func stringify(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			p, err := stringify(item)
			if err != nil {
				return "", err
			}
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		return strings.Join(parts, ", "), nil
	}

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}
	switch v.(type) {
	case float64, bool:
		return strings.TrimSpace(string(raw)), nil
	}
	return "", fmt.Errorf("expected text, got %s", string(raw))
}
