package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BrowseStore lists remote catalog entries
func (h *Handlers) BrowseStore(c *gin.Context) {
	listings, err := h.store.Browse(
		c.Request.Context(),
		c.Query("category"),
		c.Query("featured") == "true",
	)
	if err != nil {
		h.metrics.StoreFailures.Inc()
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": listings})
}

// SearchStore queries the remote catalog
func (h *Handlers) SearchStore(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q parameter is required"})
		return
	}

	listings, err := h.store.Search(c.Request.Context(), query)
	if err != nil {
		h.metrics.StoreFailures.Inc()
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listings": listings})
}

// InstallFromStore downloads a catalog listing and installs it
func (h *Handlers) InstallFromStore(c *gin.Context) {
	listingID := c.Param("listing_id")

	b, err := h.store.Download(c.Request.Context(), listingID)
	if err != nil {
		h.metrics.StoreFailures.Inc()
		fail(c, err)
		return
	}
	h.metrics.StoreDownloads.Inc()

	p, err := h.lifecycle.InstallBundle(c.Request.Context(), b)
	if err != nil {
		fail(c, err)
		return
	}

	h.log.Info("plugin installed from catalog",
		zap.String("listing_id", listingID),
		zap.String("plugin_id", p.Manifest.ID))
	c.JSON(http.StatusCreated, gin.H{"plugin": p})
}
