// Command minifig is a terminal client for the minifigure collection.
// It talks to the same backend as the web front-end and shares its view
// model, so filtering, sorting and totals behave identically.
package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"path"

	"github.com/google/subcommands"

	"github.com/codyseavey/minifig-tracker/internal/config"
	"github.com/codyseavey/minifig-tracker/internal/services"
)

var (
	apiURL  = flag.String("api", "", "Base URL of the minifigure backend (default $MINIFIG_API_URL or http://127.0.0.1:5000)")
	locale  = flag.String("locale", "", "Collation locale for sorting text columns (default $SORT_LOCALE or fr)")
	verbose = flag.Bool("v", false, "Log backend calls to stderr")
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	commander.Register(&listCmd{}, "collection")
	commander.Register(&chartCmd{}, "collection")
	commander.Register(&addCmd{}, "changes")
	commander.Register(&deleteCmd{}, "changes")
	commander.Register(&qtyCmd{}, "changes")
	commander.Register(&refreshCmd{}, "prices")

	flag.Parse()
	if !*verbose {
		log.SetOutput(io.Discard)
	}
	os.Exit(int(commander.Execute(context.Background())))
}

// newCollection builds a view model against the configured backend
func newCollection() *services.CollectionViewModel {
	cfg := config.Load()
	if *apiURL != "" {
		cfg.APIURL = *apiURL
	}
	if *locale != "" {
		cfg.SortLocale = *locale
	}

	api := services.NewMinifigAPI(cfg.APIURL, cfg.APITimeout, cfg.RefreshTimeout, cfg.APIRequestsPerS)
	return services.NewCollectionViewModel(api, cfg.SortLocale, nil)
}
