package models

import "github.com/shopspring/decimal"

// NowLabel marks the trailing point holding the current price
const NowLabel = "now"

// SeriesStyle is the static rendering configuration of one chart line
type SeriesStyle struct {
	Label       string `json:"label"`
	BorderColor string `json:"borderColor"`
	Fill        bool   `json:"fill"`
}

var (
	NewPriceSeries  = SeriesStyle{Label: "New price (€)", BorderColor: "blue", Fill: false}
	UsedPriceSeries = SeriesStyle{Label: "Used price (€)", BorderColor: "green", Fill: true}
)

// ChartDataset is one line of the chart. A nil point is a gap.
type ChartDataset struct {
	SeriesStyle
	Data []*float64 `json:"data"`
}

// PriceChart is chart-ready price history for a single record
type PriceChart struct {
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

// BuildPriceChart turns a chronological price history and the current
// price snapshot into chart labels and two series (new, used). The current
// snapshot is appended under NowLabel; a missing current price becomes a gap
// so every series stays exactly as long as Labels.
func BuildPriceChart(history []PriceHistoryPoint, current CurrentValue) PriceChart {
	labels := make([]string, 0, len(history)+1)
	newData := make([]*float64, 0, len(history)+1)
	usedData := make([]*float64, 0, len(history)+1)

	for _, p := range history {
		labels = append(labels, p.Date)
		newData = append(newData, point(p.NewPriceAtDate))
		usedData = append(usedData, point(p.UsedPriceAtDate))
	}

	labels = append(labels, NowLabel)
	newData = append(newData, nullPoint(current.NewPrice))
	usedData = append(usedData, nullPoint(current.UsedPrice))

	return PriceChart{
		Labels: labels,
		Datasets: []ChartDataset{
			{SeriesStyle: NewPriceSeries, Data: newData},
			{SeriesStyle: UsedPriceSeries, Data: usedData},
		},
	}
}

func point(d decimal.Decimal) *float64 {
	f := d.InexactFloat64()
	return &f
}

func nullPoint(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	return point(d.Decimal)
}
