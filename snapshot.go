package productinfo

import (
	"strings"

	"github.com/shopspring/decimal"
)

// OriginalUnitPrice is the catalogue price of one unit in one currency.
type OriginalUnitPrice struct {
	CurrencyID int64           `json:"currencyId"`
	Amount     decimal.Decimal `json:"amount"`
}

// CustomProperty is a store configured product property copied onto a
// snapshot.
type CustomProperty struct {
	Alias    string `json:"alias"`
	Value    string `json:"value"`
	ReadOnly bool   `json:"readOnly"`
}

// ProductSnapshot is an immutable bundle of resolved product attributes. All
// accessors return copies; rebuilding yields a new instance.
type ProductSnapshot struct {
	storeID           int64
	productIdentifier string
	sku               string
	name              string
	vatGroupID        *int64
	languageID        *int64
	prices            []OriginalUnitPrice
	properties        []CustomProperty
}

// StoreID returns the store the product belongs to.
func (s *ProductSnapshot) StoreID() int64 { return s.storeID }

// ProductIdentifier returns the caller supplied identifier.
func (s *ProductSnapshot) ProductIdentifier() string { return s.productIdentifier }

// SKU returns the resolved SKU, or the node id suffixed with the variant key
// when none is set.
func (s *ProductSnapshot) SKU() string { return s.sku }

// Name returns the resolved product name, defaulting to the node name.
func (s *ProductSnapshot) Name() string { return s.name }

// VatGroupID returns the VAT group, if one applies.
func (s *ProductSnapshot) VatGroupID() (int64, bool) {
	if s.vatGroupID == nil {
		return 0, false
	}
	return *s.vatGroupID, true
}

// LanguageID returns the language, if one applies.
func (s *ProductSnapshot) LanguageID() (int64, bool) {
	if s.languageID == nil {
		return 0, false
	}
	return *s.languageID, true
}

// OriginalUnitPrices returns one price per store currency.
func (s *ProductSnapshot) OriginalUnitPrices() []OriginalUnitPrice {
	return append([]OriginalUnitPrice(nil), s.prices...)
}

// Price returns the price for currencyID.
func (s *ProductSnapshot) Price(currencyID int64) (decimal.Decimal, bool) {
	for _, price := range s.prices {
		if price.CurrencyID == currencyID {
			return price.Amount, true
		}
	}
	return decimal.Zero, false
}

// Properties returns the custom properties in store configured order.
func (s *ProductSnapshot) Properties() []CustomProperty {
	return append([]CustomProperty(nil), s.properties...)
}

// Property returns the value of the custom property alias.
func (s *ProductSnapshot) Property(alias string) (string, bool) {
	for _, p := range s.properties {
		if p.Alias == alias {
			return p.Value, true
		}
	}
	return "", false
}

// parsePrice reads a decimal amount, accepting a comma decimal separator.
// Unparseable input yields zero.
func parsePrice(value string) decimal.Decimal {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(value)
	if err == nil {
		return amount
	}
	if strings.Count(value, ",") == 1 && !strings.Contains(value, ".") {
		if amount, err := decimal.NewFromString(strings.Replace(value, ",", ".", 1)); err == nil {
			return amount
		}
	}
	return decimal.Zero
}

func int64Ptr(v int64) *int64 {
	return &v
}
