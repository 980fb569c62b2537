package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/minifig-tracker/internal/models"
	"github.com/codyseavey/minifig-tracker/internal/services"
)

type CollectionHandler struct {
	collection      *services.CollectionViewModel
	snapshotService *services.SnapshotService
}

func NewCollectionHandler(collection *services.CollectionViewModel, snapshot *services.SnapshotService) *CollectionHandler {
	return &CollectionHandler{
		collection:      collection,
		snapshotService: snapshot,
	}
}

func (h *CollectionHandler) GetCollection(c *gin.Context) {
	c.JSON(http.StatusOK, h.collection.View())
}

// LoadCollection re-fetches the collection from the backend
func (h *CollectionHandler) LoadCollection(c *gin.Context) {
	if err := h.collection.Load(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.collection.View())
}

func (h *CollectionHandler) AddToCollection(c *gin.Context) {
	var req models.AddMinifigureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.collection.Add(c.Request.Context(), req.ID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.collection.View())
}

// DeleteCollectionItem removes a minifigure. The row index the client saw
// is passed as ?index=; without it the current row of the id is used.
func (h *CollectionHandler) DeleteCollectionItem(c *gin.Context) {
	id := c.Param("id")

	index := h.collection.IndexOf(id)
	if raw, ok := c.GetQuery("index"); ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid index"})
			return
		}
		index = n
	} else if index < 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "minifigure not found"})
		return
	}

	if err := h.collection.Delete(c.Request.Context(), index, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.collection.View())
}

// RefreshPrices runs the bulk price refresh (MAJ)
func (h *CollectionHandler) RefreshPrices(c *gin.Context) {
	if err := h.collection.RefreshAll(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.collection.View())
}

func (h *CollectionHandler) UpdateQuantity(c *gin.Context) {
	var req models.UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.collection.UpdateQuantity(c.Request.Context(), c.Param("id"), *req.Quantity); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.collection.View())
}

func (h *CollectionHandler) Filter(c *gin.Context) {
	var req models.FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.collection.Filter(req.Search)
	c.JSON(http.StatusOK, h.collection.View())
}

func (h *CollectionHandler) Sort(c *gin.Context) {
	var req models.SortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.collection.Sort(req.Key)
	c.JSON(http.StatusOK, h.collection.View())
}

// GetChart returns chart data for one row's price history
func (h *CollectionHandler) GetChart(c *gin.Context) {
	chart, err := h.collection.Chart(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, chart)
}

// ToggleChart expands or collapses a row's chart
func (h *CollectionHandler) ToggleChart(c *gin.Context) {
	id := c.Param("id")
	expanded, err := h.collection.ToggleChart(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "expanded": expanded})
}

// GetValueHistory returns collection value snapshots for charting
func (h *CollectionHandler) GetValueHistory(c *gin.Context) {
	if h.snapshotService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "snapshot service not available"})
		return
	}

	period := c.DefaultQuery("period", "month")

	snapshots, err := h.snapshotService.GetHistory(period)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.ValueHistoryResponse{
		Snapshots: snapshots,
		Period:    period,
	})
}

// TakeValueSnapshot records today's collection value now instead of at the
// scheduled hour; an earlier snapshot of the same day is overwritten.
func (h *CollectionHandler) TakeValueSnapshot(c *gin.Context) {
	if h.snapshotService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "snapshot service not available"})
		return
	}

	if !h.collection.Loaded() {
		c.JSON(http.StatusConflict, gin.H{"error": "collection not loaded yet, nothing recorded"})
		return
	}

	if err := h.snapshotService.TakeSnapshot(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, h.snapshotService.GetLastSnapshot())
}

// respondError maps view model errors to HTTP statuses
func respondError(c *gin.Context, err error) {
	var validation *services.ValidationError
	var remote *services.RemoteCallError

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": validation.Message, "field": validation.Field})
	case errors.Is(err, services.ErrRefreshInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrIndexOutOfRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &remote):
		c.JSON(http.StatusBadGateway, gin.H{"error": remote.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
