package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/codyseavey/minifig-tracker/internal/metrics"
	"github.com/codyseavey/minifig-tracker/internal/models"
)

// Remote is the minifigure backend as seen by the view model
type Remote interface {
	ListMinifigures(ctx context.Context) ([]models.Record, error)
	AddMinifigure(ctx context.Context, id string) (models.Record, error)
	DeleteMinifigure(ctx context.Context, id string) error
	RefreshAll(ctx context.Context) ([]models.Record, error)
	RefreshOne(ctx context.Context, id string) (models.Record, error)
	UpdateQuantity(ctx context.Context, id string, quantity int) error
}

// CollectionViewModel owns the loaded collection and everything derived
// from it: the filtered rows, the sort state and the aggregate totals.
//
// The lock is never held while the backend is being called, so overlapping
// operations are not serialized and their results apply in completion order.
// Only RefreshAll is single-flight. Records handed out are shared and must
// be treated as read-only.
type CollectionViewModel struct {
	remote   Remote
	charts   *ChartCache
	collator *collate.Collator
	fold     cases.Caser

	mu           sync.RWMutex
	loaded       bool
	items        []models.Record
	filtered     []models.Record
	filterActive bool
	searchTerm   string
	sort         models.SortState
	refreshing   bool
	expanded     map[string]bool
	totals       models.Totals
}

// NewCollectionViewModel creates an empty view model. locale is a BCP 47 tag
// ("fr", "en-GB") used to order text columns; charts may be nil.
func NewCollectionViewModel(remote Remote, locale string, charts *ChartCache) *CollectionViewModel {
	tag, err := language.Parse(locale)
	if err != nil {
		log.Printf("Collection: unknown sort locale %q, using root collation", locale)
		tag = language.Und
	}

	return &CollectionViewModel{
		remote:   remote,
		charts:   charts,
		collator: collate.New(tag),
		fold:     cases.Fold(),
		sort:     models.SortState{Key: models.DefaultSortKey, Direction: models.SortAscending},
		expanded: make(map[string]bool),
	}
}

// Load fetches the whole collection and replaces the loaded list.
// An active filter is re-applied. On failure nothing changes.
func (vm *CollectionViewModel) Load(ctx context.Context) error {
	records, err := vm.remote.ListMinifigures(ctx)
	if err != nil {
		log.Printf("Collection: load failed: %v", err)
		return err
	}

	vm.mu.Lock()
	vm.replaceItems(records)
	vm.mu.Unlock()

	log.Printf("Collection: loaded %d minifigures", len(records))
	return nil
}

// Add asks the backend to add the minifigure with the given identifier and
// then reloads the collection so server side fields are picked up.
func (vm *CollectionViewModel) Add(ctx context.Context, rawID string) error {
	id := strings.TrimSpace(rawID)
	if id == "" {
		return &ValidationError{Field: "id", Message: "Please enter a valid minifigure ID."}
	}

	if _, err := vm.remote.AddMinifigure(ctx, id); err != nil {
		log.Printf("Collection: error adding minifigure %s: %v", id, err)
		return err
	}
	log.Printf("Collection: minifigure %s added", id)

	return vm.Load(ctx)
}

// Delete removes id from the backend and then drops row index from the
// loaded list. The row is removed by position: index must still hold id
// when the backend answers. If another operation reordered or replaced the
// list meanwhile, whatever is at index goes; the mismatch is only logged.
func (vm *CollectionViewModel) Delete(ctx context.Context, index int, id string) error {
	vm.mu.RLock()
	n := len(vm.items)
	vm.mu.RUnlock()
	if index < 0 || index >= n {
		return fmt.Errorf("delete %s at row %d: %w", id, index, ErrIndexOutOfRange)
	}

	if err := vm.remote.DeleteMinifigure(ctx, id); err != nil {
		log.Printf("Collection: error deleting minifigure %s: %v", id, err)
		return err
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()

	if index >= len(vm.items) {
		log.Printf("Collection: %s deleted remotely but row %d is gone locally", id, index)
		return fmt.Errorf("delete %s at row %d: %w", id, index, ErrIndexOutOfRange)
	}

	removed := vm.items[index]
	if removed.ID() != id {
		log.Printf("Collection: row %d holds %q, not %q; removing by index", index, removed.ID(), id)
	}

	vm.items = without(vm.items, index)
	if i := indexByID(vm.filtered, removed.ID()); i >= 0 {
		vm.filtered = without(vm.filtered, i)
	}
	delete(vm.expanded, removed.ID())
	vm.recomputeTotals()

	log.Printf("Collection: minifigure %s deleted", id)
	return nil
}

// RefreshAll asks the backend to refresh every current price and replaces
// the loaded list with the answer. IsRefreshing is true while the request
// is in flight. A second call during that time fails with ErrRefreshInProgress.
func (vm *CollectionViewModel) RefreshAll(ctx context.Context) error {
	vm.mu.Lock()
	if vm.refreshing {
		vm.mu.Unlock()
		metrics.RefreshRejectedTotal.Inc()
		return ErrRefreshInProgress
	}
	vm.refreshing = true
	vm.mu.Unlock()
	metrics.RefreshInProgress.Set(1)

	records, err := vm.remote.RefreshAll(ctx)

	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.refreshing = false
	metrics.RefreshInProgress.Set(0)

	if err != nil {
		log.Printf("Collection: error during price refresh: %v", err)
		return err
	}

	vm.replaceItems(records)
	log.Printf("Collection: price refresh done, %d minifigures", len(records))
	return nil
}

// RefreshItem refreshes the current price of one loaded minifigure and
// swaps the updated record in place.
func (vm *CollectionViewModel) RefreshItem(ctx context.Context, id string) error {
	vm.mu.RLock()
	known := indexByID(vm.items, id) >= 0
	vm.mu.RUnlock()
	if !known {
		return fmt.Errorf("refresh %s: %w", id, ErrNotFound)
	}

	record, err := vm.remote.RefreshOne(ctx, id)
	if err != nil {
		log.Printf("Collection: error refreshing minifigure %s: %v", id, err)
		return err
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()

	i := indexByID(vm.items, id)
	if i < 0 {
		// deleted or reloaded away while the refresh was running
		return fmt.Errorf("refresh %s: %w", id, ErrNotFound)
	}
	vm.items = replaced(vm.items, i, record)
	if j := indexByID(vm.filtered, id); j >= 0 {
		vm.filtered = replaced(vm.filtered, j, record)
	}
	vm.recomputeTotals()
	return nil
}

// UpdateQuantity stores a new owned quantity for id. The collection is
// reloaded afterwards so the totals always match what the backend holds.
func (vm *CollectionViewModel) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	if quantity < 0 {
		return &ValidationError{Field: "quantity", Message: "Quantity must be zero or more."}
	}

	if err := vm.remote.UpdateQuantity(ctx, id, quantity); err != nil {
		log.Printf("Collection: error updating quantity of %s: %v", id, err)
		return err
	}
	log.Printf("Collection: quantity of %s set to %d", id, quantity)

	return vm.Load(ctx)
}

// Filter keeps the records having at least one top-level string field that
// contains term, ignoring case. Other field kinds never match.
func (vm *CollectionViewModel) Filter(term string) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	vm.searchTerm = term
	vm.filterActive = true
	vm.applyFilter()
	vm.recomputeTotals()
}

// Sort orders the collection by the field at key (a dotted path).
// Choosing the current key again flips the direction, a new key starts
// ascending. Missing and null values always go last; numbers compare
// numerically, text by locale collation and anything else compares equal.
func (vm *CollectionViewModel) Sort(key string) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if vm.sort.Key == key {
		vm.sort.Direction = vm.sort.Direction.Toggle()
	} else {
		vm.sort = models.SortState{Key: key, Direction: models.SortAscending}
	}

	sorted := append([]models.Record(nil), vm.items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return vm.compare(sorted[i], sorted[j]) < 0
	})
	vm.items = sorted

	if vm.filterActive {
		vm.applyFilter()
	}
}

// ToggleChart flips whether the price chart of id is expanded and returns
// the new state.
func (vm *CollectionViewModel) ToggleChart(id string) (bool, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if indexByID(vm.items, id) < 0 {
		return false, fmt.Errorf("toggle chart %s: %w", id, ErrNotFound)
	}
	if vm.expanded[id] {
		delete(vm.expanded, id)
		return false, nil
	}
	vm.expanded[id] = true
	return true, nil
}

// Chart returns the price history chart of a loaded minifigure
func (vm *CollectionViewModel) Chart(id string) (models.PriceChart, error) {
	vm.mu.RLock()
	i := indexByID(vm.items, id)
	var record models.Record
	if i >= 0 {
		record = vm.items[i]
	}
	vm.mu.RUnlock()

	if record == nil {
		return models.PriceChart{}, fmt.Errorf("chart %s: %w", id, ErrNotFound)
	}
	return vm.charts.Get(record), nil
}

// View returns a consistent copy of everything the presentation reads
func (vm *CollectionViewModel) View() models.CollectionView {
	vm.mu.RLock()
	defer vm.mu.RUnlock()

	expanded := make([]string, 0, len(vm.expanded))
	for id := range vm.expanded {
		expanded = append(expanded, id)
	}
	sort.Strings(expanded)

	return models.CollectionView{
		Items:         append([]models.Record{}, vm.items...),
		FilteredItems: append([]models.Record{}, vm.filtered...),
		Totals:        vm.totals,
		Sort:          vm.sort,
		SearchTerm:    vm.searchTerm,
		IsRefreshing:  vm.refreshing,
		Expanded:      expanded,
	}
}

// Loaded reports whether a full list has been fetched from the backend.
// An empty collection that was loaded is still loaded.
func (vm *CollectionViewModel) Loaded() bool {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.loaded
}

func (vm *CollectionViewModel) Items() []models.Record {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return append([]models.Record{}, vm.items...)
}

func (vm *CollectionViewModel) FilteredItems() []models.Record {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return append([]models.Record{}, vm.filtered...)
}

func (vm *CollectionViewModel) Totals() models.Totals {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.totals
}

func (vm *CollectionViewModel) SortState() models.SortState {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.sort
}

func (vm *CollectionViewModel) SearchTerm() string {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.searchTerm
}

func (vm *CollectionViewModel) IsRefreshing() bool {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return vm.refreshing
}

// IndexOf returns the current row of id, or -1
func (vm *CollectionViewModel) IndexOf(id string) int {
	vm.mu.RLock()
	defer vm.mu.RUnlock()
	return indexByID(vm.items, id)
}

// replaceItems installs a freshly fetched list. Caller holds the write lock.
func (vm *CollectionViewModel) replaceItems(records []models.Record) {
	vm.loaded = true
	vm.items = records
	if vm.filterActive {
		vm.applyFilter()
	}
	for id := range vm.expanded {
		if indexByID(vm.items, id) < 0 {
			delete(vm.expanded, id)
		}
	}
	vm.recomputeTotals()
}

// applyFilter recomputes the filtered rows. Caller holds the write lock.
func (vm *CollectionViewModel) applyFilter() {
	needle := vm.fold.String(vm.searchTerm)
	if needle == "" {
		vm.filtered = append([]models.Record{}, vm.items...)
		return
	}

	filtered := make([]models.Record, 0, len(vm.items))
	for _, r := range vm.items {
		if vm.matches(r, needle) {
			filtered = append(filtered, r)
		}
	}
	vm.filtered = filtered
}

func (vm *CollectionViewModel) matches(r models.Record, needle string) bool {
	for _, v := range r {
		s, ok := v.Str()
		if ok && strings.Contains(vm.fold.String(s), needle) {
			return true
		}
	}
	return false
}

// recomputeTotals refreshes all four totals. Caller holds the write lock.
func (vm *CollectionViewModel) recomputeTotals() {
	vm.totals.NewPrice, vm.totals.UsedPrice = models.SumPrices(vm.items)
	vm.totals.FilteredNewPrice, vm.totals.FilteredUsedPrice = models.SumPrices(vm.filtered)
	metrics.UpdateCollectionMetrics(len(vm.items), vm.totals.NewPrice, vm.totals.UsedPrice)
}

// compare orders a before b (<0), after b (>0) or equal (0) under the
// current sort state.
func (vm *CollectionViewModel) compare(a, b models.Record) int {
	va, okA := a.Get(vm.sort.Key)
	vb, okB := b.Get(vm.sort.Key)
	missingA := !okA || va.IsNull()
	missingB := !okB || vb.IsNull()

	switch {
	case missingA && missingB:
		return 0
	case missingA:
		return 1
	case missingB:
		return -1
	}

	sign := 1
	if vm.sort.Direction == models.SortDescending {
		sign = -1
	}

	if na, ok := va.AsNumber(); ok {
		if nb, ok := vb.AsNumber(); ok {
			if c := na.Cmp(nb); c != 0 {
				return sign * c
			}
		}
	}

	sa, okA := va.Str()
	sb, okB := vb.Str()
	if okA && okB {
		return sign * vm.collator.CompareString(sa, sb)
	}
	return 0
}

func indexByID(records []models.Record, id string) int {
	for i, r := range records {
		if r.ID() == id {
			return i
		}
	}
	return -1
}

// without returns a new slice lacking element i
func without(records []models.Record, i int) []models.Record {
	out := make([]models.Record, 0, len(records)-1)
	out = append(out, records[:i]...)
	return append(out, records[i+1:]...)
}

// replaced returns a new slice with element i swapped for r
func replaced(records []models.Record, i int, r models.Record) []models.Record {
	out := append([]models.Record(nil), records...)
	out[i] = r
	return out
}
