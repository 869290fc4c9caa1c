// Package invoice holds the invoice and expense payloads and the arithmetic
// that derives their tax figures.
package invoice

import "github.com/shopspring/decimal"

// MoneyPlaces is the number of decimals kept on derived monetary values.
const MoneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// Totals are the figures derived from a taxable base and a rate.
type Totals struct {
	Taxable decimal.Decimal
	Rate    decimal.Decimal
	Tax     decimal.Decimal
	Total   decimal.Decimal
}

// Compute derives the tax amount and the grand total.
//
//	tax   = round(taxable * rate / 100)
//	total = taxable + tax
//
// round is half-even at MoneyPlaces decimals. The taxable base is rounded the
// same way first, so every figure carries at most MoneyPlaces decimals and the
// total stays exactly taxable + tax.
func Compute(taxable, ratePercent decimal.Decimal) (tax, total decimal.Decimal) {
	taxable = RoundMoney(taxable)
	tax = taxable.Mul(ratePercent).Div(hundred).RoundBank(MoneyPlaces)
	total = taxable.Add(tax)
	return tax, total
}

// RoundMoney rounds an amount half-even to MoneyPlaces decimals.
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.RoundBank(MoneyPlaces)
}

// ComputeTotals is Compute over the float64 values decoded from tool arguments.
// Totals.Taxable is the rounded base that the tax was computed on.
func ComputeTotals(taxable, ratePercent float64) Totals {
	t := RoundMoney(decimal.NewFromFloat(taxable))
	r := decimal.NewFromFloat(ratePercent)
	tax, total := Compute(t, r)
	return Totals{Taxable: t, Rate: r, Tax: tax, Total: total}
}

// Deductible returns the deductible share of an amount, rounded like Compute.
func Deductible(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Div(hundred).RoundBank(MoneyPlaces)
}
