package models

import (
	"time"
)

// CollectionValueSnapshot stores the daily collection totals for historical tracking
type CollectionValueSnapshot struct {
	ID             uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	SnapshotDate   time.Time `json:"snapshot_date" gorm:"uniqueIndex;not null"`
	Minifigures    int       `json:"minifigures"`
	TotalQuantity  int64     `json:"total_quantity"`
	TotalNewPrice  float64   `json:"total_new_price"`
	TotalUsedPrice float64   `json:"total_used_price"`
	CreatedAt      time.Time `json:"created_at"`
}

// ValueHistoryResponse is the API response for value history
type ValueHistoryResponse struct {
	Snapshots []CollectionValueSnapshot `json:"snapshots"`
	Period    string                    `json:"period"` // "week", "month", "3month", "year", "all"
}
