package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// RefreshWorker periodically runs a bulk price refresh on the view model
type RefreshWorker struct {
	vm       *CollectionViewModel
	interval time.Duration

	mu        sync.RWMutex
	lastRun   time.Time
	nextRun   time.Time
	lastError string
	runs      int
}

// RefreshStatus describes the automatic refresh schedule
type RefreshStatus struct {
	Enabled      bool      `json:"enabled"`
	Interval     string    `json:"interval,omitempty"`
	LastRun      time.Time `json:"last_run,omitempty"`
	NextRun      time.Time `json:"next_run,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
	Runs         int       `json:"runs"`
	IsRefreshing bool      `json:"is_refreshing"`
}

// NewRefreshWorker creates a worker; an interval <= 0 disables it
func NewRefreshWorker(vm *CollectionViewModel, interval time.Duration) *RefreshWorker {
	return &RefreshWorker{vm: vm, interval: interval}
}

// Start runs until ctx is cancelled. The first refresh happens one
// interval after start, the initial load already fetched fresh data.
func (w *RefreshWorker) Start(ctx context.Context) {
	if w.interval <= 0 {
		log.Println("Refresh worker: disabled (AUTO_REFRESH_INTERVAL not set)")
		return
	}
	log.Printf("Refresh worker started: will refresh all prices every %v", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.mu.Lock()
	w.nextRun = time.Now().Add(w.interval)
	w.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			log.Println("Refresh worker stopping...")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs one refresh. A refresh already started by a user is
// left alone and counts as skipped.
func (w *RefreshWorker) RunOnce(ctx context.Context) {
	err := w.vm.RefreshAll(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	w.nextRun = now.Add(w.interval)

	switch {
	case errors.Is(err, ErrRefreshInProgress):
		log.Println("Refresh worker: refresh already running, skipping this round")
		return
	case err != nil:
		w.lastError = err.Error()
	default:
		w.lastError = ""
	}
	w.lastRun = now
	w.runs++
}

// GetStatus returns the current schedule and outcome
func (w *RefreshWorker) GetStatus() RefreshStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()

	status := RefreshStatus{
		Enabled:      w.interval > 0,
		LastRun:      w.lastRun,
		NextRun:      w.nextRun,
		LastError:    w.lastError,
		Runs:         w.runs,
		IsRefreshing: w.vm.IsRefreshing(),
	}
	if status.Enabled {
		status.Interval = w.interval.String()
	}
	return status
}
