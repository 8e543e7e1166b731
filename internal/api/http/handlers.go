package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/loomworks/worldloom/backend/internal/domain/world"
	"github.com/loomworks/worldloom/backend/internal/infrastructure/logging"
	"github.com/loomworks/worldloom/backend/internal/infrastructure/monitoring"
	"github.com/loomworks/worldloom/backend/internal/plugins/lifecycle"
	"github.com/loomworks/worldloom/backend/internal/plugins/registry"
	"github.com/loomworks/worldloom/backend/internal/plugins/store"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	lifecycle *lifecycle.Manager
	registry  *registry.Manager
	store     *store.Client
	worlds    *world.Manager
	metrics   *monitoring.Metrics
	log       *logging.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(
	lc *lifecycle.Manager,
	reg *registry.Manager,
	storeClient *store.Client,
	worlds *world.Manager,
	metrics *monitoring.Metrics,
	log *logging.Logger,
) *Handlers {
	return &Handlers{
		lifecycle: lc,
		registry:  reg,
		store:     storeClient,
		worlds:    worlds,
		metrics:   metrics,
		log:       log.Named("http"),
	}
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "WorldLoom Backend",
	})
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"plugins": h.registry.Stats(),
	})
}

// Metrics serves the JSON snapshot for dashboards without a scraper
func (h *Handlers) Metrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.GetSnapshot())
}
