package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codyseavey/minifig-tracker/internal/api"
	"github.com/codyseavey/minifig-tracker/internal/config"
	"github.com/codyseavey/minifig-tracker/internal/database"
	"github.com/codyseavey/minifig-tracker/internal/logger"
	"github.com/codyseavey/minifig-tracker/internal/services"
)

func main() {
	cfg := config.Load()
	logFile := logger.Setup(cfg.LogFile, cfg.LogMaxSizeMB, cfg.LogMaxBackups)
	defer logFile.Close()

	// Snapshot database (collection value history only)
	if err := database.Initialize(cfg.DBPath); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Backend client and the collection view model on top of it
	minifigAPI := services.NewMinifigAPI(cfg.APIURL, cfg.APITimeout, cfg.RefreshTimeout, cfg.APIRequestsPerS)
	chartCache := services.NewChartCache(cfg.ChartCacheSize)
	collection := services.NewCollectionViewModel(minifigAPI, cfg.SortLocale, chartCache)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initial load; the view stays usable (empty) if the backend is down
	loadCtx, loadCancel := context.WithTimeout(ctx, cfg.APITimeout)
	if err := collection.Load(loadCtx); err != nil {
		log.Printf("Initial collection load failed, starting with an empty collection: %v", err)
	}
	loadCancel()

	snapshotService := services.NewSnapshotService(database.GetDB(), collection, cfg.SnapshotHour)
	refreshWorker := services.NewRefreshWorker(collection, cfg.AutoRefresh)

	// Start refresh worker in background with panic recovery
	go func() {
		for {
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.Printf("PANIC in refresh worker: %v - restarting in 30 seconds", r)
					}
				}()
				refreshWorker.Start(ctx)
			}()

			select {
			case <-ctx.Done():
				return
			case <-time.After(30 * time.Second):
				if cfg.AutoRefresh <= 0 {
					return
				}
				log.Println("Refresh worker restarting after panic recovery...")
			}
		}
	}()

	go snapshotService.Start(ctx)

	router := api.SetupRouter(collection, refreshWorker, snapshotService, api.RouterOptions{
		CORSOrigins:      cfg.CORSOrigins,
		FrontendDistPath: cfg.FrontendDistPath,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Starting server on port %s (backend %s)", cfg.Port, cfg.APIURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	cancel()

	// Give outstanding requests a deadline to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
