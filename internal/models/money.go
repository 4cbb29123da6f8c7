package models

import "github.com/shopspring/decimal"

// Amounts are serialised as JSON numbers so clients can do arithmetic without parsing strings.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Cents is the precision every stored amount is rounded to.
const Cents = 2

// MaxAmount is the largest value a NUMERIC(14,2) column holds.
var MaxAmount = decimal.RequireFromString("999999999999.99")
