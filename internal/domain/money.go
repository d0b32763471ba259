package domain

import "github.com/shopspring/decimal"

func init() {
	// Storefront clients read prices and quantities as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// LineSubtotal is quantity × unit price rounded to cents.
func LineSubtotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice).Round(2)
}
