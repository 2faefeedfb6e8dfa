// Package boms holds bills of materials used to check stock before production.
package boms

import "github.com/shopspring/decimal"

// BOM lists the components consumed to produce Quantity units of ItemCode.
type BOM struct {
	ID       string
	ItemCode string
	Quantity decimal.Decimal
	Active   bool
	Items    []Item
}

type Item struct {
	ItemCode       string
	Qty            decimal.Decimal
	SourceLocation string
}

// Required is the component quantity consumed by producing qty units.
func (b *BOM) Required(it Item, qty decimal.Decimal) decimal.Decimal {
	per := b.Quantity
	if !per.IsPositive() {
		per = decimal.NewFromInt(1)
	}
	return it.Qty.Mul(qty).Div(per)
}
