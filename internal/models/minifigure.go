package models

import (
	"github.com/shopspring/decimal"
)

// Field names used by the minifigure backend. Everything else a record
// carries (name, year, set, category...) is free form.
const (
	FieldMinifigNumber = "Minifig number"
	FieldSetNumber     = "Number"
	FieldQuantity      = "Quantity"
	FieldCurrentValue  = "Current value"
	FieldPriceHistory  = "Price History"

	FieldNewPrice  = "new_price"
	FieldUsedPrice = "used_price"

	historyDate         = "date"
	historyNewPriceOld  = "new_price_old"
	historyUsedPriceOld = "used_price_old"
)

// DefaultQuantity applies when a record has no usable quantity
const DefaultQuantity = 1

// Record is one collectible item as served by the backend
type Record map[string]Value

// ID returns the minifig number, falling back to the set number for sets
// added through the same endpoint.
func (r Record) ID() string {
	if v, ok := r[FieldMinifigNumber]; ok {
		if s, ok := v.Str(); ok && s != "" {
			return s
		}
	}
	if v, ok := r[FieldSetNumber]; ok {
		if s, ok := v.Str(); ok {
			return s
		}
	}
	return ""
}

// Get resolves a dotted field path against the record
func (r Record) Get(path string) (Value, bool) {
	return Object(r).Lookup(path)
}

// Quantity returns the owned quantity. Absent or non-numeric values count
// as DefaultQuantity; fractional values are truncated and negative ones
// clamp to zero.
func (r Record) Quantity() int64 {
	v, ok := r[FieldQuantity]
	if !ok {
		return DefaultQuantity
	}
	d, ok := v.AsNumber()
	if !ok {
		return DefaultQuantity
	}
	if d.IsNegative() {
		return 0
	}
	return d.IntPart()
}

// CurrentValue is the latest known price snapshot of a record
type CurrentValue struct {
	NewPrice  decimal.NullDecimal `json:"new_price"`
	UsedPrice decimal.NullDecimal `json:"used_price"`
}

// CurrentValue extracts the price snapshot. Prices that are missing, null
// or not numeric ("Not available") are reported as invalid.
func (r Record) CurrentValue() CurrentValue {
	cv, ok := r[FieldCurrentValue]
	if !ok {
		return CurrentValue{}
	}
	return CurrentValue{
		NewPrice:  nullDecimalField(cv, FieldNewPrice),
		UsedPrice: nullDecimalField(cv, FieldUsedPrice),
	}
}

// PriceHistoryPoint is one historical price sample
type PriceHistoryPoint struct {
	Date            string          `json:"date"`
	NewPriceAtDate  decimal.Decimal `json:"new_price_at_date"`
	UsedPriceAtDate decimal.Decimal `json:"used_price_at_date"`
}

// PriceHistory returns the recorded samples in stored order. The backend
// appends a sample each time a refresh observed a price change, so the
// order is chronological.
func (r Record) PriceHistory() []PriceHistoryPoint {
	h, ok := r[FieldPriceHistory]
	if !ok || h.Kind() != KindArray {
		return nil
	}

	points := make([]PriceHistoryPoint, 0, len(h.Items()))
	for _, entry := range h.Items() {
		if entry.Kind() != KindObject {
			continue
		}
		var p PriceHistoryPoint
		if d, ok := entry.Field(historyDate); ok {
			p.Date, _ = d.Str()
		}
		p.NewPriceAtDate = nullDecimalField(entry, historyNewPriceOld).Decimal
		p.UsedPriceAtDate = nullDecimalField(entry, historyUsedPriceOld).Decimal
		points = append(points, p)
	}
	return points
}

// Clone returns a shallow copy; field values are immutable so this is
// enough to let callers edit the top level without touching the original.
func (r Record) Clone() Record {
	c := make(Record, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

func nullDecimalField(obj Value, key string) decimal.NullDecimal {
	v, ok := obj.Field(key)
	if !ok {
		return decimal.NullDecimal{}
	}
	d, ok := v.AsNumber()
	if !ok {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}
