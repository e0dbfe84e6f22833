// Package catalog provides the fallback product category catalog used when
// the authoritative category source is unavailable.
package catalog

import (
	"strings"
)

// fallbackCategories are the canonical names offered to the model and used for reconciliation
var fallbackCategories = []string{
	"Apparel",
	"Textiles",
	"Footwear",
	"Electronics",
	"Electrical Components",
	"Machinery",
	"Industrial Supplies",
	"Packaging",
	"Furniture",
	"Home & Kitchen",
	"Food & Beverage",
	"Agriculture",
	"Chemicals",
	"Plastics & Rubber",
	"Metals & Alloys",
	"Automotive Parts",
	"Construction Materials",
	"Health & Beauty",
	"Medical Supplies",
	"Toys & Games",
	"Office Supplies",
	"Jewelry & Accessories",
}

// aliases maps common free-form hints to a canonical category
var aliases = map[string]string{
	"clothing":             "Apparel",
	"clothes":              "Apparel",
	"garments":             "Apparel",
	"t-shirts":             "Apparel",
	"tshirts":              "Apparel",
	"fashion":              "Apparel",
	"fabric":               "Textiles",
	"fabrics":              "Textiles",
	"cotton":               "Textiles",
	"shoes":                "Footwear",
	"consumer electronics": "Electronics",
	"pcb":                  "Electrical Components",
	"electrical":           "Electrical Components",
	"industrial":           "Industrial Supplies",
	"tools":                "Industrial Supplies",
	"boxes":                "Packaging",
	"cartons":              "Packaging",
	"kitchenware":          "Home & Kitchen",
	"food":                 "Food & Beverage",
	"beverages":            "Food & Beverage",
	"plastics":             "Plastics & Rubber",
	"rubber":               "Plastics & Rubber",
	"steel":                "Metals & Alloys",
	"aluminum":             "Metals & Alloys",
	"metals":               "Metals & Alloys",
	"auto parts":           "Automotive Parts",
	"cosmetics":            "Health & Beauty",
	"beauty":               "Health & Beauty",
	"stationery":           "Office Supplies",
	"accessories":          "Jewelry & Accessories",
}

// Fallback is the static catalog
type Fallback struct {
	categories []string
	index      map[string]string
}

// NewFallback creates the static catalog
func NewFallback() *Fallback {
	index := make(map[string]string, len(fallbackCategories)+len(aliases))
	for _, c := range fallbackCategories {
		index[normalize(c)] = c
	}
	for alias, c := range aliases {
		index[normalize(alias)] = c
	}
	return &Fallback{
		categories: append([]string(nil), fallbackCategories...),
		index:      index,
	}
}

// Categories returns a copy of the canonical names in catalog order
func (f *Fallback) Categories() []string {
	return append([]string(nil), f.categories...)
}

// Canonical maps a free-form hint to its canonical category, case-insensitively
func (f *Fallback) Canonical(hint string) (string, bool) {
	c, ok := f.index[normalize(hint)]
	return c, ok
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " and ", " & ")
	return strings.Join(strings.Fields(s), " ")
}
