package database

import (
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/codyseavey/minifig-tracker/internal/models"
)

var DB *gorm.DB

// Initialize opens the snapshot database and migrates its schema.
// Only value snapshots live here; the collection itself stays on the backend.
func Initialize(dbPath string) error {
	db, err := Open(dbPath)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open connects to dbPath and runs migrations without touching the package DB
func Open(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	log.Println("Database connected successfully")

	if err := cleanupDuplicateSnapshots(db); err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&models.CollectionValueSnapshot{}); err != nil {
		return nil, err
	}

	log.Println("Database migration completed")
	return db, nil
}

func GetDB() *gorm.DB {
	return DB
}
