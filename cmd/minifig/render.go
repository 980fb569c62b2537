package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"

	"github.com/codyseavey/minifig-tracker/internal/models"
)

// printMarkdown renders md for the terminal, falling back to the raw text
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Print(out)
			return
		}
	}
	fmt.Fprintf(os.Stderr, "Error rendering markdown: %v\n", err)
	fmt.Print(md)
}

// eur formats an amount in euros, rounded to the cent
func eur(d decimal.Decimal) string {
	return money.New(d.Shift(2).Round(0).IntPart(), money.EUR).Display()
}

func nullEUR(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return eur(d.Decimal)
}

// cell renders a scalar field for a table cell
func cell(r models.Record, key string) string {
	v, ok := r.Get(key)
	if !ok {
		return ""
	}
	if s, ok := v.Str(); ok {
		return escapeCell(s)
	}
	if n, ok := v.Num(); ok {
		return n.String()
	}
	if b, ok := v.Truth(); ok {
		return strconv.FormatBool(b)
	}
	return ""
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

// collectionMarkdown renders rows as a table followed by the totals
func collectionMarkdown(rows []models.Record, sortState models.SortState, totals models.Totals, filtered bool) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Minifigures (%d)\n\n", len(rows))
	fmt.Fprintf(&b, "Sorted by *%s* (%s)\n\n", sortState.Key, sortState.Direction)

	b.WriteString("| # | Number | Name | Qty | New | Used |\n")
	b.WriteString("|---|---|---|---:|---:|---:|\n")
	for i, r := range rows {
		cv := r.CurrentValue()
		fmt.Fprintf(&b, "| %d | %s | %s | %d | %s | %s |\n",
			i, escapeCell(r.ID()), cell(r, "Name"), r.Quantity(), nullEUR(cv.NewPrice), nullEUR(cv.UsedPrice))
	}

	b.WriteString("\n## Totals\n\n")
	if filtered {
		fmt.Fprintf(&b, "- Filtered: new %s, used %s\n", eur(totals.FilteredNewPrice), eur(totals.FilteredUsedPrice))
	}
	fmt.Fprintf(&b, "- Collection: new %s, used %s\n", eur(totals.NewPrice), eur(totals.UsedPrice))

	return b.String()
}

// chartMarkdown renders a price chart as a table, one row per label
func chartMarkdown(id string, chart models.PriceChart) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Price history of %s\n\n", escapeCell(id))
	b.WriteString("| Date |")
	for _, ds := range chart.Datasets {
		fmt.Fprintf(&b, " %s |", ds.Label)
	}
	b.WriteString("\n|---|")
	for range chart.Datasets {
		b.WriteString("---:|")
	}
	b.WriteString("\n")

	for i, label := range chart.Labels {
		fmt.Fprintf(&b, "| %s |", escapeCell(label))
		for _, ds := range chart.Datasets {
			p := ds.Data[i]
			if p == nil {
				b.WriteString(" - |")
				continue
			}
			fmt.Fprintf(&b, " %s |", eur(decimal.NewFromFloat(*p)))
		}
		b.WriteString("\n")
	}

	return b.String()
}
