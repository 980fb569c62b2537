package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/codyseavey/minifig-tracker/internal/api/handlers"
	"github.com/codyseavey/minifig-tracker/internal/metrics"
	"github.com/codyseavey/minifig-tracker/internal/services"
)

// RouterOptions carries the presentation settings of the router
type RouterOptions struct {
	CORSOrigins      []string
	FrontendDistPath string
}

func SetupRouter(collection *services.CollectionViewModel, refreshWorker *services.RefreshWorker, snapshotService *services.SnapshotService, opts RouterOptions) *gin.Engine {
	router := gin.Default()
	router.Use(metrics.GinMiddleware())

	serveFrontend := opts.FrontendDistPath != "" && dirExists(opts.FrontendDistPath)

	// CORS configuration - the Angular dev server and any configured origins
	config := cors.DefaultConfig()
	if len(opts.CORSOrigins) > 0 {
		config.AllowOrigins = opts.CORSOrigins
	} else {
		config.AllowAllOrigins = true
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	config.AllowCredentials = false
	router.Use(cors.New(config))

	collectionHandler := handlers.NewCollectionHandler(collection, snapshotService)
	priceHandler := handlers.NewPriceHandler(collection, refreshWorker)

	api := router.Group("/api")
	{
		coll := api.Group("/collection")
		{
			coll.GET("", collectionHandler.GetCollection)
			coll.POST("", collectionHandler.AddToCollection)
			coll.POST("/load", collectionHandler.LoadCollection)
			coll.POST("/filter", collectionHandler.Filter)
			coll.POST("/sort", collectionHandler.Sort)
			coll.POST("/refresh-prices", collectionHandler.RefreshPrices)
			coll.GET("/history", collectionHandler.GetValueHistory)
			coll.POST("/history/snapshot", collectionHandler.TakeValueSnapshot)
			coll.DELETE("/:id", collectionHandler.DeleteCollectionItem)
			coll.PUT("/:id/quantity", collectionHandler.UpdateQuantity)
			coll.POST("/:id/refresh-price", priceHandler.RefreshMinifigurePrice)
			coll.GET("/:id/chart", collectionHandler.GetChart)
			coll.POST("/:id/chart/toggle", collectionHandler.ToggleChart)
		}

		prices := api.Group("/prices")
		{
			prices.GET("/status", priceHandler.GetPriceStatus)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if serveFrontend {
		indexPath := filepath.Join(opts.FrontendDistPath, "index.html")

		router.StaticFile("/favicon.ico", filepath.Join(opts.FrontendDistPath, "favicon.ico"))
		router.GET("/", func(c *gin.Context) {
			c.File(indexPath)
		})

		// SPA fallback: real files first, index.html for client side routes
		router.NoRoute(func(c *gin.Context) {
			path := c.Request.URL.Path
			if strings.HasPrefix(path, "/api") {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}

			file := filepath.Join(opts.FrontendDistPath, filepath.Clean("/"+path))
			if info, err := os.Stat(file); err == nil && !info.IsDir() {
				c.File(file)
				return
			}
			c.File(indexPath)
		})
	}

	return router
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
