package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/google/subcommands"

	"github.com/codyseavey/minifig-tracker/internal/models"
	"github.com/codyseavey/minifig-tracker/internal/services"
)

// fail reports err and picks the exit status for it
func fail(err error) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if services.IsValidation(err) {
		return subcommands.ExitUsageError
	}
	return subcommands.ExitFailure
}

type listCmd struct {
	search string
	sortBy string
	desc   bool
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "Show the collection with its total value." }
func (*listCmd) Usage() string {
	return `list [-q <text>] [-sort <field>] [-desc]:
  Loads the collection and prints it as a table. -q keeps the rows having
  a text field containing <text>; -sort orders by a field (dotted paths
  such as "Current value.used_price" work).
`
}

func (c *listCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.search, "q", "", "Only show rows matching this text")
	f.StringVar(&c.sortBy, "sort", "", "Field to sort by")
	f.BoolVar(&c.desc, "desc", false, "Sort descending")
}

func (c *listCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	vm := newCollection()
	if err := vm.Load(ctx); err != nil {
		return fail(err)
	}

	if c.sortBy != "" || c.desc {
		key := c.sortBy
		if key == "" {
			key = vm.SortState().Key
		}
		want := models.SortAscending
		if c.desc {
			want = models.SortDescending
		}
		// sorting by the current key flips the direction
		vm.Sort(key)
		if vm.SortState().Direction != want {
			vm.Sort(key)
		}
	}

	rows := vm.Items()
	filtered := c.search != ""
	if filtered {
		vm.Filter(c.search)
		rows = vm.FilteredItems()
	}

	printMarkdown(collectionMarkdown(rows, vm.SortState(), vm.Totals(), filtered))
	return subcommands.ExitSuccess
}

type addCmd struct{}

func (*addCmd) Name() string             { return "add" }
func (*addCmd) Synopsis() string         { return "Add a minifigure to the collection." }
func (*addCmd) Usage() string            { return "add <minifig number>\n" }
func (*addCmd) SetFlags(_ *flag.FlagSet) {}

func (*addCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}

	vm := newCollection()
	if err := vm.Add(ctx, f.Arg(0)); err != nil {
		return fail(err)
	}
	fmt.Printf("Added %s (%d minifigures)\n", f.Arg(0), len(vm.Items()))
	return subcommands.ExitSuccess
}

type deleteCmd struct{}

func (*deleteCmd) Name() string             { return "delete" }
func (*deleteCmd) Synopsis() string         { return "Remove a minifigure from the collection." }
func (*deleteCmd) Usage() string            { return "delete <minifig number>\n" }
func (*deleteCmd) SetFlags(_ *flag.FlagSet) {}

func (*deleteCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	id := f.Arg(0)

	vm := newCollection()
	if err := vm.Load(ctx); err != nil {
		return fail(err)
	}
	index := vm.IndexOf(id)
	if index < 0 {
		return fail(fmt.Errorf("%s: %w", id, services.ErrNotFound))
	}
	if err := vm.Delete(ctx, index, id); err != nil {
		return fail(err)
	}
	fmt.Printf("Deleted %s\n", id)
	return subcommands.ExitSuccess
}

type qtyCmd struct{}

func (*qtyCmd) Name() string             { return "qty" }
func (*qtyCmd) Synopsis() string         { return "Set the owned quantity of a minifigure." }
func (*qtyCmd) Usage() string            { return "qty <minifig number> <quantity>\n" }
func (*qtyCmd) SetFlags(_ *flag.FlagSet) {}

func (*qtyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 2 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	quantity, err := strconv.Atoi(f.Arg(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid quantity %q\n", f.Arg(1))
		return subcommands.ExitUsageError
	}

	vm := newCollection()
	if err := vm.UpdateQuantity(ctx, f.Arg(0), quantity); err != nil {
		return fail(err)
	}
	totals := vm.Totals()
	fmt.Printf("Quantity of %s set to %d. Collection value: new %s, used %s\n",
		f.Arg(0), quantity, eur(totals.NewPrice), eur(totals.UsedPrice))
	return subcommands.ExitSuccess
}

type refreshCmd struct{}

func (*refreshCmd) Name() string             { return "refresh" }
func (*refreshCmd) Synopsis() string         { return "Refresh current prices." }
func (*refreshCmd) SetFlags(_ *flag.FlagSet) {}
func (*refreshCmd) Usage() string {
	return `refresh [<minifig number>]:
  Without an argument every price is refreshed, which can take a while.
`
}

func (*refreshCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	vm := newCollection()

	switch f.NArg() {
	case 0:
		if err := vm.RefreshAll(ctx); err != nil {
			return fail(err)
		}
	case 1:
		if err := vm.Load(ctx); err != nil {
			return fail(err)
		}
		if err := vm.RefreshItem(ctx, f.Arg(0)); err != nil {
			return fail(err)
		}
	default:
		f.Usage()
		return subcommands.ExitUsageError
	}

	printMarkdown(collectionMarkdown(vm.Items(), vm.SortState(), vm.Totals(), false))
	return subcommands.ExitSuccess
}

type chartCmd struct{}

func (*chartCmd) Name() string             { return "chart" }
func (*chartCmd) Synopsis() string         { return "Show the price history of a minifigure." }
func (*chartCmd) Usage() string            { return "chart <minifig number>\n" }
func (*chartCmd) SetFlags(_ *flag.FlagSet) {}

func (*chartCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	id := f.Arg(0)

	vm := newCollection()
	if err := vm.Load(ctx); err != nil {
		return fail(err)
	}
	chart, err := vm.Chart(id)
	if errors.Is(err, services.ErrNotFound) {
		fmt.Fprintf(os.Stderr, "%s is not in the collection\n", id)
		return subcommands.ExitFailure
	}
	if err != nil {
		return fail(err)
	}

	printMarkdown(chartMarkdown(id, chart))
	return subcommands.ExitSuccess
}
