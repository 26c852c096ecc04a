// Package pricing computes booking totals from ticket counts, the price
// table, an optional promotion and a sales-tax rate.
//
// Amounts are float64 currency units and only rounded for display, so a
// quote may carry sub-cent fractions (e.g. a tax of 2.304).
package pricing

import (
	"errors"
	"math"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// ErrMissingPrice is returned when a requested category has no price row.
var ErrMissingPrice = errors.New("missing ticket price")

// Table maps each ticket category to its unit price.
type Table map[model.TicketType]float64

// TableFrom builds a Table from price rows.
func TableFrom(prices []model.TicketPrice) Table {
	t := make(Table, len(prices))
	for _, p := range prices {
		t[p.Type] = p.Price
	}
	return t
}

// Breakdown is the full computation shown at checkout.
type Breakdown struct {
	Subtotal        float64 `json:"subtotal"`
	DiscountPercent float64 `json:"discount_percent"`
	Discount        float64 `json:"discount"`
	AfterPromo      float64 `json:"after_promo"`
	TaxRate         float64 `json:"tax_rate"`
	Tax             float64 `json:"tax"`
	Total           float64 `json:"total"`
}

// Subtotal sums count × unit price over the categories with a non-zero
// count.  A category that is requested but absent from the table is an
// error; a zero count never needs a price.
func Subtotal(counts model.TicketCounts, table Table) (float64, error) {
	var sum float64
	for _, t := range model.TicketTypes {
		n := counts.Get(t)
		if n == 0 {
			continue
		}
		p, ok := table[t]
		if !ok {
			return 0, ErrMissingPrice
		}
		sum += float64(n) * p
	}
	return sum, nil
}

// Compute applies the discount before tax: afterPromo = subtotal ×
// (1 − discount/100), tax = afterPromo × rate, total = afterPromo + tax.
// A discount of 0 means no promotion.
func Compute(subtotal, discountPercent, taxRate float64) Breakdown {
	after := subtotal
	if discountPercent > 0 {
		after = subtotal * (1 - discountPercent/100)
	}
	tax := after * taxRate
	return Breakdown{
		Subtotal:        subtotal,
		DiscountPercent: discountPercent,
		Discount:        subtotal - after,
		AfterPromo:      after,
		TaxRate:         taxRate,
		Tax:             tax,
		Total:           after + tax,
	}
}

// Quote runs Subtotal then Compute.
func Quote(counts model.TicketCounts, table Table, discountPercent, taxRate float64) (Breakdown, error) {
	sub, err := Subtotal(counts, table)
	if err != nil {
		return Breakdown{}, err
	}
	return Compute(sub, discountPercent, taxRate), nil
}

// Round2 rounds half away from zero to two decimals for display.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Rounded returns a copy with every amount rounded for display.  The tax
// rate is left untouched.
func (b Breakdown) Rounded() Breakdown {
	b.Subtotal = Round2(b.Subtotal)
	b.Discount = Round2(b.Discount)
	b.AfterPromo = Round2(b.AfterPromo)
	b.Tax = Round2(b.Tax)
	b.Total = Round2(b.Total)
	return b
}

// ToCents converts a currency amount for storage.
func ToCents(v float64) int64 { return int64(math.Round(v * 100)) }

// FromCents converts a stored amount back to currency units.
func FromCents(c int64) float64 { return float64(c) / 100 }
