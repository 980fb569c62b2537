package database

import (
	"log"

	"gorm.io/gorm"
)

// cleanupDuplicateSnapshots keeps one snapshot per calendar day before the
// unique index on snapshot_date is (re)created. Rows written by older builds
// could carry a time of day, so two of them may share a date.
func cleanupDuplicateSnapshots(db *gorm.DB) error {
	if !db.Migrator().HasTable("collection_value_snapshots") {
		return nil
	}

	// Keep the most recently written row of each day
	result := db.Exec(`
		DELETE FROM collection_value_snapshots
		WHERE id NOT IN (
			SELECT MAX(id)
			FROM collection_value_snapshots
			GROUP BY DATE(snapshot_date)
		)
	`)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected > 0 {
		log.Printf("Cleaned up %d duplicate collection_value_snapshots entries", result.RowsAffected)
	}

	return nil
}
