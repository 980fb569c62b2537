package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

// Toggle flips the direction
func (d SortDirection) Toggle() SortDirection {
	if d == SortAscending {
		return SortDescending
	}
	return SortAscending
}

// DefaultSortKey is the column the table starts sorted by
const DefaultSortKey = FieldMinifigNumber

type SortState struct {
	Key       string        `json:"key"`
	Direction SortDirection `json:"direction"`
}

// Totals are the aggregate collection values, once over the whole
// collection and once over the filtered rows.
type Totals struct {
	NewPrice          decimal.Decimal
	UsedPrice         decimal.Decimal
	FilteredNewPrice  decimal.Decimal
	FilteredUsedPrice decimal.Decimal
}

// MarshalJSON renders every total as a JSON number with two decimals
func (t Totals) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		NewPrice          json.Number `json:"total_new_price"`
		UsedPrice         json.Number `json:"total_used_price"`
		FilteredNewPrice  json.Number `json:"filtered_new_price"`
		FilteredUsedPrice json.Number `json:"filtered_used_price"`
	}{
		NewPrice:          json.Number(t.NewPrice.StringFixed(2)),
		UsedPrice:         json.Number(t.UsedPrice.StringFixed(2)),
		FilteredNewPrice:  json.Number(t.FilteredNewPrice.StringFixed(2)),
		FilteredUsedPrice: json.Number(t.FilteredUsedPrice.StringFixed(2)),
	})
}

// CollectionView is everything the presentation layer reads from the
// collection view model.
type CollectionView struct {
	Items         []Record  `json:"items"`
	FilteredItems []Record  `json:"filtered_items"`
	Totals        Totals    `json:"totals"`
	Sort          SortState `json:"sort"`
	SearchTerm    string    `json:"search_term"`
	IsRefreshing  bool      `json:"is_refreshing"`
	Expanded      []string  `json:"expanded"`
}

// SumPrices returns the total new and used value of records. Each record
// contributes price * quantity, with a missing price counting as zero and
// the quantity defaulting to one. Both totals are rounded to cents.
func SumPrices(records []Record) (newTotal, usedTotal decimal.Decimal) {
	newTotal, usedTotal = decimal.Zero, decimal.Zero
	for _, r := range records {
		qty := decimal.NewFromInt(r.Quantity())
		cv := r.CurrentValue()
		if cv.NewPrice.Valid {
			newTotal = newTotal.Add(cv.NewPrice.Decimal.Mul(qty))
		}
		if cv.UsedPrice.Valid {
			usedTotal = usedTotal.Add(cv.UsedPrice.Decimal.Mul(qty))
		}
	}
	return newTotal.Round(2), usedTotal.Round(2)
}

type AddMinifigureRequest struct {
	ID string `json:"id"`
}

type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

type FilterRequest struct {
	Search string `json:"search"`
}

type SortRequest struct {
	Key string `json:"key" binding:"required"`
}
