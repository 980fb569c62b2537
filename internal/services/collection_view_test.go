package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/codyseavey/minifig-tracker/internal/models"
)

// fakeRemote is an in-memory minifigure backend
type fakeRemote struct {
	mu      sync.Mutex
	records []models.Record
	calls   map[string]int

	listErr   error
	deleteErr error

	// when set, RefreshAll signals entered and waits for release
	entered chan struct{}
	release chan struct{}
}

func newFakeRemote(records ...models.Record) *fakeRemote {
	return &fakeRemote{records: records, calls: make(map[string]int)}
}

func (f *fakeRemote) called(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeRemote) snapshot() []models.Record {
	return append([]models.Record(nil), f.records...)
}

func (f *fakeRemote) ListMinifigures(ctx context.Context) ([]models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[OpList]++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.snapshot(), nil
}

func (f *fakeRemote) AddMinifigure(ctx context.Context, id string) (models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[OpAdd]++
	r := models.Record{models.FieldMinifigNumber: models.String(id)}
	f.records = append(f.records, r)
	return r, nil
}

func (f *fakeRemote) DeleteMinifigure(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[OpDelete]++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	if i := indexByID(f.records, id); i >= 0 {
		f.records = without(f.records, i)
	}
	return nil
}

func (f *fakeRemote) RefreshAll(ctx context.Context) ([]models.Record, error) {
	f.mu.Lock()
	f.calls[OpRefreshAll]++
	entered, release := f.entered, f.release
	f.mu.Unlock()

	if entered != nil {
		close(entered)
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot(), nil
}

func (f *fakeRemote) RefreshOne(ctx context.Context, id string) (models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[OpRefreshOne]++
	i := indexByID(f.records, id)
	if i < 0 {
		return nil, &RemoteCallError{Op: OpRefreshOne, StatusCode: 404, Err: errors.New("not found")}
	}
	r := f.records[i].Clone()
	r[models.FieldCurrentValue] = models.Object(map[string]models.Value{
		models.FieldNewPrice:  models.String("20"),
		models.FieldUsedPrice: models.String("12.5"),
	})
	f.records[i] = r
	return r, nil
}

func (f *fakeRemote) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[OpUpdateQuantity]++
	i := indexByID(f.records, id)
	if i < 0 {
		return &RemoteCallError{Op: OpUpdateQuantity, StatusCode: 404, Err: errors.New("not found")}
	}
	r := f.records[i].Clone()
	r[models.FieldQuantity] = models.Int(int64(quantity))
	f.records[i] = r
	return nil
}

func rec(t *testing.T, raw string) models.Record {
	t.Helper()
	var r models.Record
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("bad record %s: %v", raw, err)
	}
	return r
}

func ids(records []models.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID()
	}
	return out
}

func assertIDs(t *testing.T, got []models.Record, want ...string) {
	t.Helper()
	g := ids(got)
	if len(g) != len(want) {
		t.Fatalf("ids = %v, want %v", g, want)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("ids = %v, want %v", g, want)
		}
	}
}

func loaded(t *testing.T, remote *fakeRemote) *CollectionViewModel {
	t.Helper()
	vm := NewCollectionViewModel(remote, "fr", NewChartCache(8))
	if err := vm.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return vm
}

func TestCollectionViewModel_TotalsUseQuantity(t *testing.T) {
	vm := loaded(t, newFakeRemote(
		rec(t, `{"Minifig number":"A","Quantity":2,"Current value":{"used_price":"5"}}`),
	))

	totals := vm.Totals()
	if got := totals.UsedPrice.StringFixed(2); got != "10.00" {
		t.Errorf("UsedPrice = %s, want 10.00", got)
	}
	if !totals.NewPrice.IsZero() {
		t.Errorf("NewPrice = %s, want 0", totals.NewPrice)
	}
}

func TestCollectionViewModel_SortToggles(t *testing.T) {
	vm := loaded(t, newFakeRemote(
		rec(t, `{"Minifig number":"three","Quantity":3}`),
		rec(t, `{"Minifig number":"one","Quantity":1}`),
	))

	vm.Sort("Quantity")
	assertIDs(t, vm.Items(), "one", "three")
	if s := vm.SortState(); s.Key != "Quantity" || s.Direction != models.SortAscending {
		t.Errorf("SortState = %+v, want Quantity asc", s)
	}

	vm.Sort("Quantity")
	assertIDs(t, vm.Items(), "three", "one")
	if s := vm.SortState(); s.Direction != models.SortDescending {
		t.Errorf("Direction = %s, want desc", s.Direction)
	}

	// a new key starts ascending again
	vm.Sort("Minifig number")
	if s := vm.SortState(); s.Key != "Minifig number" || s.Direction != models.SortAscending {
		t.Errorf("SortState = %+v, want Minifig number asc", s)
	}
	assertIDs(t, vm.Items(), "one", "three")
}

func TestCollectionViewModel_SortDefaultKeyFlips(t *testing.T) {
	vm := loaded(t, newFakeRemote(
		rec(t, `{"Minifig number":"sw0001"}`),
		rec(t, `{"Minifig number":"sw0002"}`),
	))

	vm.Sort(models.DefaultSortKey)
	if s := vm.SortState(); s.Direction != models.SortDescending {
		t.Errorf("Direction = %s, want desc after re-selecting the default key", s.Direction)
	}
	assertIDs(t, vm.Items(), "sw0002", "sw0001")
}

func TestCollectionViewModel_SortMissingValuesLast(t *testing.T) {
	vm := loaded(t, newFakeRemote(
		rec(t, `{"Minifig number":"A","Quantity":2}`),
		rec(t, `{"Minifig number":"N","Quantity":null}`),
		rec(t, `{"Minifig number":"B","Quantity":1}`),
		rec(t, `{"Minifig number":"M"}`),
	))

	vm.Sort("Quantity")
	assertIDs(t, vm.Items(), "B", "A", "N", "M")

	vm.Sort("Quantity")
	assertIDs(t, vm.Items(), "A", "B", "N", "M")
}

func TestCollectionViewModel_SortIsStable(t *testing.T) {
	vm := loaded(t, newFakeRemote(
		rec(t, `{"Minifig number":"x","Year":2020}`),
		rec(t, `{"Minifig number":"y","Year":2020}`),
		rec(t, `{"Minifig number":"z","Year":2020}`),
	))

	vm.Sort("Year")
	assertIDs(t, vm.Items(), "x", "y", "z")
	vm.Sort("Year")
	assertIDs(t, vm.Items(), "x", "y", "z")
}

func TestCollectionViewModel_SortComparisons(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		records []string
		want    []string
	}{
		{
			name: "text uses locale collation",
			key:  "Name",
			records: []string{
				`{"Minifig number":"z","Name":"Zebra"}`,
				`{"Minifig number":"e","Name":"éclair"}`,
				`{"Minifig number":"a","Name":"apple"}`,
			},
			want: []string{"a", "e", "z"},
		},
		{
			name: "numeric strings compare as numbers",
			key:  "Current value.used_price",
			records: []string{
				`{"Minifig number":"ten","Current value":{"used_price":"10"}}`,
				`{"Minifig number":"nine","Current value":{"used_price":"9.5"}}`,
			},
			want: []string{"nine", "ten"},
		},
		{
			name: "grouped thousands compare as numbers",
			key:  "Current value.new_price",
			records: []string{
				`{"Minifig number":"big","Current value":{"new_price":"1,234.56"}}`,
				`{"Minifig number":"small","Current value":{"new_price":"99.00"}}`,
			},
			want: []string{"small", "big"},
		},
		{
			name: "dotted path with missing parent",
			key:  "Current value.new_price",
			records: []string{
				`{"Minifig number":"none"}`,
				`{"Minifig number":"some","Current value":{"new_price":3}}`,
			},
			want: []string{"some", "none"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := make([]models.Record, len(tt.records))
			for i, raw := range tt.records {
				records[i] = rec(t, raw)
			}
			vm := loaded(t, newFakeRemote(records...))

			vm.Sort(tt.key)
			assertIDs(t, vm.Items(), tt.want...)
		})
	}
}

func TestCollectionViewModel_SortKeepsFilteredOrder(t *testing.T) {
	vm := loaded(t, newFakeRemote(
		rec(t, `{"Minifig number":"b","Name":"Red B"}`),
		rec(t, `{"Minifig number":"c","Name":"Blue"}`),
		rec(t, `{"Minifig number":"a","Name":"Red A"}`),
	))

	vm.Filter("red")
	vm.Sort("Name")
	assertIDs(t, vm.FilteredItems(), "a", "b")
}

func TestCollectionViewModel_Filter(t *testing.T) {
	vm := loaded(t, newFakeRemote(
		rec(t, `{"Minifig number":"r1","Name":"Red Brick","Current value":{"new_price":"4"}}`),
		rec(t, `{"Minifig number":"b1","Name":"Blue Brick","Current value":{"new_price":"6"}}`),
	))

	if len(vm.FilteredItems()) != 0 {
		t.Fatalf("FilteredItems should be empty before the first filter")
	}

	vm.Filter("red")
	assertIDs(t, vm.FilteredItems(), "r1")
	if vm.SearchTerm() != "red" {
		t.Errorf("SearchTerm = %q, want red", vm.SearchTerm())
	}

	totals := vm.Totals()
	if got := totals.FilteredNewPrice.StringFixed(2); got != "4.00" {
		t.Errorf("FilteredNewPrice = %s, want 4.00", got)
	}
	if got := totals.NewPrice.StringFixed(2); got != "10.00" {
		t.Errorf("NewPrice = %s, want 10.00", got)
	}

	vm.Filter("")
	assertIDs(t, vm.FilteredItems(), "r1", "b1")
}

func TestCollectionViewModel_FilterIgnoresNonStrings(t *testing.T) {
	vm := loaded(t, newFakeRemote(
		rec(t, `{"Minifig number":"sw1","Quantity":12,"Current value":{"new_price":"12"}}`),
		rec(t, `{"Minifig number":"sw2","Name":"Clone 12"}`),
	))

	vm.Filter("12")
	assertIDs(t, vm.FilteredItems(), "sw2")
}

func TestCollectionViewModel_EmptyFilterKeepsEveryRow(t *testing.T) {
	vm := loaded(t, newFakeRemote(
		rec(t, `{"Minifig number":"a","Name":"Boba"}`),
		rec(t, `{"Quantity":2,"Current value":{"new_price":"3"}}`),
		rec(t, `{}`),
	))

	vm.Filter("")
	if got := len(vm.FilteredItems()); got != 3 {
		t.Fatalf("empty term kept %d rows, want 3", got)
	}
	if got := vm.Totals().FilteredNewPrice.StringFixed(2); got != "6.00" {
		t.Errorf("FilteredNewPrice = %s, want 6.00", got)
	}

	vm.Filter("boba")
	assertIDs(t, vm.FilteredItems(), "a")
}

func TestCollectionViewModel_Loaded(t *testing.T) {
	remote := newFakeRemote()
	remote.listErr = errors.New("backend down")
	vm := NewCollectionViewModel(remote, "fr", nil)

	if vm.Loaded() {
		t.Fatal("new view model should not be loaded")
	}
	if err := vm.Load(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
	if vm.Loaded() {
		t.Error("a failed load should leave the view model unloaded")
	}

	remote.listErr = nil
	if err := vm.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !vm.Loaded() {
		t.Error("an empty collection that loaded should report loaded")
	}
}

func TestCollectionViewModel_FilterReappliedOnLoad(t *testing.T) {
	remote := newFakeRemote(rec(t, `{"Minifig number":"r1","Name":"Red"}`))
	vm := loaded(t, remote)
	vm.Filter("red")

	remote.records = append(remote.records, rec(t, `{"Minifig number":"r2","Name":"Dark Red"}`))
	if err := vm.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertIDs(t, vm.FilteredItems(), "r1", "r2")
}

func TestCollectionViewModel_Delete(t *testing.T) {
	remote := newFakeRemote(
		rec(t, `{"Minifig number":"A","Current value":{"used_price":"1"}}`),
		rec(t, `{"Minifig number":"B","Current value":{"used_price":"2"}}`),
		rec(t, `{"Minifig number":"C","Current value":{"used_price":"4"}}`),
	)
	vm := loaded(t, remote)

	if err := vm.Delete(context.Background(), 1, "B"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	assertIDs(t, vm.Items(), "A", "C")
	if got := vm.Totals().UsedPrice.StringFixed(2); got != "5.00" {
		t.Errorf("UsedPrice = %s, want 5.00", got)
	}
	if remote.called(OpDelete) != 1 {
		t.Errorf("expected one backend delete, got %d", remote.called(OpDelete))
	}
}

func TestCollectionViewModel_DeleteOutOfRange(t *testing.T) {
	remote := newFakeRemote(rec(t, `{"Minifig number":"A"}`))
	vm := loaded(t, remote)

	for _, index := range []int{-1, 1, 5} {
		err := vm.Delete(context.Background(), index, "A")
		if !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("Delete(%d) error = %v, want ErrIndexOutOfRange", index, err)
		}
	}
	if remote.called(OpDelete) != 0 {
		t.Errorf("out of range deletes must not reach the backend")
	}
	assertIDs(t, vm.Items(), "A")
}

func TestCollectionViewModel_DeleteFailureKeepsRow(t *testing.T) {
	remote := newFakeRemote(rec(t, `{"Minifig number":"A"}`))
	remote.deleteErr = &RemoteCallError{Op: OpDelete, StatusCode: 500, Err: errors.New("boom")}
	vm := loaded(t, remote)

	err := vm.Delete(context.Background(), 0, "A")
	if !IsRemote(err) {
		t.Fatalf("error = %v, want RemoteCallError", err)
	}
	assertIDs(t, vm.Items(), "A")
}

func TestCollectionViewModel_AddValidation(t *testing.T) {
	for _, id := range []string{"", "   ", "\t\n"} {
		remote := newFakeRemote()
		vm := NewCollectionViewModel(remote, "fr", nil)

		err := vm.Add(context.Background(), id)
		if !IsValidation(err) {
			t.Errorf("Add(%q) error = %v, want ValidationError", id, err)
		}
		if n := remote.called(OpAdd) + remote.called(OpList); n != 0 {
			t.Errorf("Add(%q) made %d backend calls, want 0", id, n)
		}
	}
}

func TestCollectionViewModel_AddReloads(t *testing.T) {
	remote := newFakeRemote(rec(t, `{"Minifig number":"A"}`))
	vm := loaded(t, remote)

	if err := vm.Add(context.Background(), "  sw0042 "); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	assertIDs(t, vm.Items(), "A", "sw0042")
	if remote.called(OpList) != 2 {
		t.Errorf("expected a reload after add, got %d list calls", remote.called(OpList))
	}
}

func TestCollectionViewModel_LoadFailureKeepsState(t *testing.T) {
	remote := newFakeRemote(rec(t, `{"Minifig number":"A","Current value":{"new_price":"3"}}`))
	vm := loaded(t, remote)

	remote.listErr = &RemoteCallError{Op: OpList, Err: errors.New("connection refused")}
	if err := vm.Load(context.Background()); err == nil {
		t.Fatal("expected load error")
	}
	assertIDs(t, vm.Items(), "A")
	if got := vm.Totals().NewPrice.StringFixed(2); got != "3.00" {
		t.Errorf("NewPrice = %s, want 3.00", got)
	}
}

func TestCollectionViewModel_RefreshAllSingleFlight(t *testing.T) {
	remote := newFakeRemote(rec(t, `{"Minifig number":"A"}`))
	remote.entered = make(chan struct{})
	remote.release = make(chan struct{})
	vm := NewCollectionViewModel(remote, "fr", nil)

	done := make(chan error, 1)
	go func() { done <- vm.RefreshAll(context.Background()) }()

	select {
	case <-remote.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh never reached the backend")
	}

	if !vm.IsRefreshing() {
		t.Error("IsRefreshing should be true while the refresh runs")
	}
	if err := vm.RefreshAll(context.Background()); !errors.Is(err, ErrRefreshInProgress) {
		t.Errorf("overlapping refresh error = %v, want ErrRefreshInProgress", err)
	}

	close(remote.release)
	if err := <-done; err != nil {
		t.Fatalf("RefreshAll failed: %v", err)
	}
	if vm.IsRefreshing() {
		t.Error("IsRefreshing should be false after the refresh")
	}
	assertIDs(t, vm.Items(), "A")
	if remote.called(OpRefreshAll) != 1 {
		t.Errorf("expected one backend refresh, got %d", remote.called(OpRefreshAll))
	}
}

func TestCollectionViewModel_RefreshItem(t *testing.T) {
	remote := newFakeRemote(
		rec(t, `{"Minifig number":"A","Current value":{"new_price":"1","used_price":"1"}}`),
		rec(t, `{"Minifig number":"B"}`),
	)
	vm := loaded(t, remote)

	if err := vm.RefreshItem(context.Background(), "A"); err != nil {
		t.Fatalf("RefreshItem failed: %v", err)
	}
	totals := vm.Totals()
	if got := totals.NewPrice.StringFixed(2); got != "20.00" {
		t.Errorf("NewPrice = %s, want 20.00", got)
	}
	if got := totals.UsedPrice.StringFixed(2); got != "12.50" {
		t.Errorf("UsedPrice = %s, want 12.50", got)
	}

	if err := vm.RefreshItem(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id error = %v, want ErrNotFound", err)
	}
	if remote.called(OpRefreshOne) != 1 {
		t.Errorf("unknown ids must not reach the backend")
	}
}

func TestCollectionViewModel_UpdateQuantity(t *testing.T) {
	remote := newFakeRemote(rec(t, `{"Minifig number":"A","Quantity":1,"Current value":{"used_price":"2.5"}}`))
	vm := loaded(t, remote)

	if err := vm.UpdateQuantity(context.Background(), "A", 4); err != nil {
		t.Fatalf("UpdateQuantity failed: %v", err)
	}
	if got := vm.Totals().UsedPrice.StringFixed(2); got != "10.00" {
		t.Errorf("UsedPrice = %s, want 10.00 after reload", got)
	}

	if err := vm.UpdateQuantity(context.Background(), "A", 0); err != nil {
		t.Fatalf("UpdateQuantity(0) failed: %v", err)
	}
	if !vm.Totals().UsedPrice.IsZero() {
		t.Errorf("quantity 0 should contribute nothing, got %s", vm.Totals().UsedPrice)
	}

	if err := vm.UpdateQuantity(context.Background(), "A", -1); !IsValidation(err) {
		t.Errorf("negative quantity error = %v, want ValidationError", err)
	}
}

func TestCollectionViewModel_ChartAndToggle(t *testing.T) {
	vm := loaded(t, newFakeRemote(rec(t, `{
		"Minifig number":"A",
		"Current value":{"new_price":"7","used_price":"Not available"},
		"Price History":[{"date":"2024-01-01","new_price_old":"5","used_price_old":"3"}]
	}`)))

	chart, err := vm.Chart("A")
	if err != nil {
		t.Fatalf("Chart failed: %v", err)
	}
	if len(chart.Labels) != 2 || chart.Labels[1] != models.NowLabel {
		t.Errorf("Labels = %v", chart.Labels)
	}
	if used := chart.Datasets[1].Data; used[1] != nil {
		t.Errorf("unavailable used price should be a gap, got %v", *used[1])
	}

	expanded, err := vm.ToggleChart("A")
	if err != nil || !expanded {
		t.Fatalf("ToggleChart = %v, %v; want true", expanded, err)
	}
	if v := vm.View(); len(v.Expanded) != 1 || v.Expanded[0] != "A" {
		t.Errorf("Expanded = %v, want [A]", v.Expanded)
	}
	if expanded, _ := vm.ToggleChart("A"); expanded {
		t.Error("second toggle should collapse")
	}

	if _, err := vm.Chart("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Chart(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := vm.ToggleChart("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ToggleChart(missing) error = %v, want ErrNotFound", err)
	}
}
