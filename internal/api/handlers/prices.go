package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/minifig-tracker/internal/services"
)

type PriceHandler struct {
	collection    *services.CollectionViewModel
	refreshWorker *services.RefreshWorker
}

func NewPriceHandler(collection *services.CollectionViewModel, refreshWorker *services.RefreshWorker) *PriceHandler {
	return &PriceHandler{
		collection:    collection,
		refreshWorker: refreshWorker,
	}
}

// GetPriceStatus returns the automatic refresh schedule and whether a refresh is running
func (h *PriceHandler) GetPriceStatus(c *gin.Context) {
	if h.refreshWorker == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false, "is_refreshing": h.collection.IsRefreshing()})
		return
	}
	c.JSON(http.StatusOK, h.refreshWorker.GetStatus())
}

// RefreshMinifigurePrice manually refreshes a single minifigure's price
func (h *PriceHandler) RefreshMinifigurePrice(c *gin.Context) {
	id := c.Param("id")

	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "minifigure id is required"})
		return
	}

	if err := h.collection.RefreshItem(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, h.collection.View())
}
