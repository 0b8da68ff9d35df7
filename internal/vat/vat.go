// Package vat converts between tax-inclusive and tax-exclusive prices.
//
// All functions are pure and operate on shopspring/decimal values. Rounding is
// applied exactly once, to the per-unit VAT amount; the opposite price is then
// derived from the rounded VAT so that incl == excl + vat always holds.
package vat

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Type is the VAT classification of a category.
type Type string

const (
	Standard Type = "standard"
	Zero     Type = "zero"
	Exempt   Type = "exempt"
	Reduced  Type = "reduced"
)

// Valid reports whether t is a known VAT type.
func (t Type) Valid() bool {
	switch t {
	case Standard, Zero, Exempt, Reduced:
		return true
	}
	return false
}

// Rounding is the per-business policy applied to per-unit VAT amounts.
type Rounding string

const (
	RoundHalfUp Rounding = "round"
	RoundFloor  Rounding = "floor"
	RoundCeil   Rounding = "ceil"
)

// ParseRounding maps a stored setting to a Rounding. Empty means RoundHalfUp.
func ParseRounding(s string) (Rounding, error) {
	switch Rounding(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoundHalfUp:
		return RoundHalfUp, nil
	case RoundFloor:
		return RoundFloor, nil
	case RoundCeil:
		return RoundCeil, nil
	}
	return "", fmt.Errorf("vat: unknown rounding policy %q", s)
}

const places = 2

var hundred = decimal.NewFromInt(100)

// Apply rounds d to two decimal places according to the policy.
func (r Rounding) Apply(d decimal.Decimal) decimal.Decimal {
	switch r {
	case RoundFloor:
		return d.Shift(places).Floor().Shift(-places)
	case RoundCeil:
		return d.Shift(places).Ceil().Shift(-places)
	default:
		// decimal.Round is half away from zero, i.e. half-up for prices.
		return d.Round(places)
	}
}

// Category is the subset of a VAT category needed for pricing.
type Category struct {
	Code string
	Name string
	Type Type
	Rate decimal.Decimal // percentage, e.g. 16.00
}

// Taxable reports whether c contributes VAT. A nil category is untaxed.
func (c *Category) Taxable() bool {
	return c != nil && c.Type != Exempt && c.Rate.IsPositive()
}

// Price is a single unit price split into its components.
type Price struct {
	Incl decimal.Decimal
	Excl decimal.Decimal
	VAT  decimal.Decimal
}

func untaxed(price decimal.Decimal) Price {
	return Price{Incl: price, Excl: price, VAT: decimal.Zero}
}

// FromInclusive splits a tax-inclusive unit price:
// vat = incl * rate / (100 + rate), excl = incl - vat.
func FromInclusive(incl decimal.Decimal, c *Category, r Rounding) Price {
	if !c.Taxable() {
		return untaxed(incl)
	}
	v := r.Apply(incl.Mul(c.Rate).Div(hundred.Add(c.Rate)))
	return Price{Incl: incl, Excl: incl.Sub(v), VAT: v}
}

// FromExclusive adds VAT to a tax-exclusive unit price: vat = excl * rate / 100.
func FromExclusive(excl decimal.Decimal, c *Category, r Rounding) Price {
	if !c.Taxable() {
		return untaxed(excl)
	}
	v := r.Apply(excl.Mul(c.Rate).Div(hundred))
	return Price{Incl: excl.Add(v), Excl: excl, VAT: v}
}

// Policy bundles the business VAT settings.
type Policy struct {
	Enabled   bool
	Inclusive bool
	Rounding  Rounding
}

// Unit prices one unit under the policy. When VAT is disabled every
// category behaves as exempt.
func (p Policy) Unit(price decimal.Decimal, c *Category) Price {
	if !p.Enabled {
		return untaxed(price)
	}
	if p.Inclusive {
		return FromInclusive(price, c, p.Rounding)
	}
	return FromExclusive(price, c, p.Rounding)
}

// Line is one priced sale line used to build a breakdown.
type Line struct {
	Category *Category
	Quantity int
	UnitExcl decimal.Decimal
	UnitVAT  decimal.Decimal
}

// Entry aggregates lines sharing the same category code and rate.
type Entry struct {
	Code    string          `json:"code"`
	Name    string          `json:"name"`
	Rate    decimal.Decimal `json:"rate"`
	Taxable decimal.Decimal `json:"taxable_amount"`
	VAT     decimal.Decimal `json:"vat_amount"`
}

// Breakdown groups lines by category. Lines that carry no VAT are omitted.
// Entries are ordered by code, then rate.
func Breakdown(lines []Line) []Entry {
	idx := make(map[string]int)
	var out []Entry
	for _, l := range lines {
		if l.Category == nil || !l.UnitVAT.IsPositive() {
			continue
		}
		qty := decimal.NewFromInt(int64(l.Quantity))
		key := l.Category.Code + "_" + l.Category.Rate.String()
		i, ok := idx[key]
		if !ok {
			i = len(out)
			idx[key] = i
			out = append(out, Entry{
				Code:    l.Category.Code,
				Name:    l.Category.Name,
				Rate:    l.Category.Rate,
				Taxable: decimal.Zero,
				VAT:     decimal.Zero,
			})
		}
		out[i].Taxable = out[i].Taxable.Add(l.UnitExcl.Mul(qty))
		out[i].VAT = out[i].VAT.Add(l.UnitVAT.Mul(qty))
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Code != out[b].Code {
			return out[a].Code < out[b].Code
		}
		return out[a].Rate.LessThan(out[b].Rate)
	})
	return out
}
