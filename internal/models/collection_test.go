package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSumPrices(t *testing.T) {
	tests := []struct {
		name     string
		records  []string
		wantNew  string
		wantUsed string
	}{
		{
			name:     "quantity multiplies",
			records:  []string{`{"Minifig number":"A","Quantity":2,"Current value":{"used_price":"5"}}`},
			wantNew:  "0.00",
			wantUsed: "10.00",
		},
		{
			name: "missing prices count as zero and quantity defaults to one",
			records: []string{
				`{"Current value":{"new_price":"3.10","used_price":"Not available"}}`,
				`{"Quantity":3}`,
				`{"Quantity":0,"Current value":{"new_price":"100","used_price":"100"}}`,
			},
			wantNew:  "3.10",
			wantUsed: "0.00",
		},
		{
			name: "decimal arithmetic",
			records: []string{
				`{"Current value":{"new_price":"0.1"}}`,
				`{"Current value":{"new_price":"0.2"}}`,
			},
			wantNew:  "0.30",
			wantUsed: "0.00",
		},
		{
			name:     "rounded to cents",
			records:  []string{`{"Quantity":3,"Current value":{"new_price":"1.005","used_price":"0.333"}}`},
			wantNew:  "3.02",
			wantUsed: "1.00",
		},
		{
			name: "grouped thousands",
			records: []string{
				`{"Current value":{"new_price":"1,234.56","used_price":"980.00"}}`,
				`{"Quantity":2,"Current value":{"new_price":"1,000.00","used_price":"1,500.5"}}`,
			},
			wantNew:  "3234.56",
			wantUsed: "3981.00",
		},
		{
			name:     "negative quantity contributes nothing",
			records:  []string{`{"Quantity":-2,"Current value":{"new_price":"10","used_price":"5"}}`},
			wantNew:  "0.00",
			wantUsed: "0.00",
		},
		{
			name:     "empty",
			wantNew:  "0.00",
			wantUsed: "0.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := make([]Record, len(tt.records))
			for i, raw := range tt.records {
				records[i] = mustRecord(t, raw)
			}

			newTotal, usedTotal := SumPrices(records)
			if got := newTotal.StringFixed(2); got != tt.wantNew {
				t.Errorf("new total = %s, want %s", got, tt.wantNew)
			}
			if got := usedTotal.StringFixed(2); got != tt.wantUsed {
				t.Errorf("used total = %s, want %s", got, tt.wantUsed)
			}
		})
	}
}

func TestSortDirection_Toggle(t *testing.T) {
	if SortAscending.Toggle() != SortDescending || SortDescending.Toggle() != SortAscending {
		t.Error("Toggle should flip between asc and desc")
	}
}

func TestTotals_MarshalJSON(t *testing.T) {
	totals := Totals{
		NewPrice:         decimal.RequireFromString("12.5"),
		UsedPrice:        decimal.Zero,
		FilteredNewPrice: decimal.RequireFromString("3"),
	}

	out, err := json.Marshal(totals)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"total_new_price":12.50,"total_used_price":0.00,"filtered_new_price":3.00,"filtered_used_price":0.00}`
	if string(out) != want {
		t.Errorf("got %s, want %s", out, want)
	}
}
