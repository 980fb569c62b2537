package services

import (
	"context"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/codyseavey/minifig-tracker/internal/models"
)

// CollectionSource is the part of the view model snapshots read from
type CollectionSource interface {
	Loaded() bool
	Items() []models.Record
	Totals() models.Totals
}

// SnapshotService handles daily collection value snapshots
type SnapshotService struct {
	db     *gorm.DB
	source CollectionSource

	mu            sync.RWMutex
	lastSnapshot  time.Time
	snapshotHour  int // Hour of day to take snapshot (0-23)
	checkInterval time.Duration
	now           func() time.Time
}

// NewSnapshotService creates a new snapshot service
func NewSnapshotService(db *gorm.DB, source CollectionSource, snapshotHour int) *SnapshotService {
	return &SnapshotService{
		db:            db,
		source:        source,
		snapshotHour:  snapshotHour,
		checkInterval: 15 * time.Minute,
		now:           time.Now,
	}
}

// Start begins the background snapshot worker
func (s *SnapshotService) Start(ctx context.Context) {
	log.Println("Snapshot service started: will record daily collection value")

	s.checkAndSnapshot()

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Snapshot service stopping...")
			return
		case <-ticker.C:
			s.checkAndSnapshot()
		}
	}
}

// checkAndSnapshot takes today's snapshot once the configured hour is reached
func (s *SnapshotService) checkAndSnapshot() {
	now := s.now()
	if now.Hour() < s.snapshotHour {
		return
	}
	if s.hasSnapshotForDate(now) {
		return
	}
	if err := s.TakeSnapshot(); err != nil {
		log.Printf("Snapshot service: failed to take snapshot: %v", err)
	}
}

// hasSnapshotForDate checks if a snapshot exists for the given date
func (s *SnapshotService) hasSnapshotForDate(date time.Time) bool {
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	var count int64
	s.db.Model(&models.CollectionValueSnapshot{}).
		Where("snapshot_date >= ? AND snapshot_date < ?", startOfDay, endOfDay).
		Count(&count)

	return count > 0
}

// TakeSnapshot records the current collection totals for today.
// Nothing is written until the collection has been loaded once; a loaded
// empty collection records a zero-value snapshot.
func (s *SnapshotService) TakeSnapshot() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.source.Loaded() {
		log.Println("Snapshot service: collection not loaded yet, skipping")
		return nil
	}
	items := s.source.Items()

	now := s.now()
	snapshotDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	snapshot := buildSnapshot(items, s.source.Totals(), snapshotDate)
	snapshot.CreatedAt = now

	// Upsert so a manual snapshot later in the day overwrites the automatic one.
	// A map so zero totals overwrite too.
	result := s.db.Where("snapshot_date = ?", snapshotDate).
		Assign(map[string]any{
			"minifigures":      snapshot.Minifigures,
			"total_quantity":   snapshot.TotalQuantity,
			"total_new_price":  snapshot.TotalNewPrice,
			"total_used_price": snapshot.TotalUsedPrice,
		}).
		FirstOrCreate(&snapshot)
	if result.Error != nil {
		return result.Error
	}

	s.lastSnapshot = now
	log.Printf("Snapshot service: recorded value snapshot for %s (new: €%.2f, used: €%.2f, minifigures: %d)",
		snapshotDate.Format("2006-01-02"), snapshot.TotalNewPrice, snapshot.TotalUsedPrice, snapshot.Minifigures)

	return nil
}

func buildSnapshot(items []models.Record, totals models.Totals, date time.Time) models.CollectionValueSnapshot {
	var quantity int64
	for _, r := range items {
		quantity += r.Quantity()
	}
	return models.CollectionValueSnapshot{
		SnapshotDate:   date,
		Minifigures:    len(items),
		TotalQuantity:  quantity,
		TotalNewPrice:  totals.NewPrice.InexactFloat64(),
		TotalUsedPrice: totals.UsedPrice.InexactFloat64(),
	}
}

// periodStart maps a history period name to its first day; zero means no bound
func periodStart(period string, now time.Time) time.Time {
	switch period {
	case "week":
		return now.AddDate(0, 0, -7)
	case "month":
		return now.AddDate(0, -1, 0)
	case "3month":
		return now.AddDate(0, -3, 0)
	case "year":
		return now.AddDate(-1, 0, 0)
	case "all":
		return time.Time{}
	default:
		return now.AddDate(0, -1, 0)
	}
}

// GetHistory retrieves value snapshots for a given period
func (s *SnapshotService) GetHistory(period string) ([]models.CollectionValueSnapshot, error) {
	var snapshots []models.CollectionValueSnapshot

	query := s.db.Order("snapshot_date ASC")
	if start := periodStart(period, s.now()); !start.IsZero() {
		query = query.Where("snapshot_date >= ?", start)
	}

	if err := query.Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}

// GetLastSnapshot returns the most recent snapshot
func (s *SnapshotService) GetLastSnapshot() *models.CollectionValueSnapshot {
	var snapshot models.CollectionValueSnapshot
	if err := s.db.Order("snapshot_date DESC").First(&snapshot).Error; err != nil {
		return nil
	}
	return &snapshot
}
