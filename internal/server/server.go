package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/loomworks/worldloom/backend/internal/api/http"
	"github.com/loomworks/worldloom/backend/internal/api/middleware"
	"github.com/loomworks/worldloom/backend/internal/domain/world"
	"github.com/loomworks/worldloom/backend/internal/infrastructure/config"
	"github.com/loomworks/worldloom/backend/internal/infrastructure/logging"
	"github.com/loomworks/worldloom/backend/internal/infrastructure/monitoring"
	"github.com/loomworks/worldloom/backend/internal/infrastructure/tracing"
	"github.com/loomworks/worldloom/backend/internal/kv"
	"github.com/loomworks/worldloom/backend/internal/plugins/events"
	"github.com/loomworks/worldloom/backend/internal/plugins/lifecycle"
	"github.com/loomworks/worldloom/backend/internal/plugins/manifest"
	"github.com/loomworks/worldloom/backend/internal/plugins/registry"
	"github.com/loomworks/worldloom/backend/internal/plugins/store"
	"github.com/loomworks/worldloom/backend/internal/ws"
)

// Server wires the plugin runtime behind the HTTP surface
type Server struct {
	cfg    *config.Config
	log    *logging.Logger
	router *gin.Engine
	http   *http.Server
	kv     kv.Store
}

// New builds the full runtime: storage, registry, event bus, lifecycle
// manager, catalog client and routes.
func New(cfg *config.Config, log *logging.Logger) (*Server, error) {
	ctx := context.Background()

	store_, err := openStore(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	reg, err := registry.NewManager(ctx, store_)
	if err != nil {
		return nil, fmt.Errorf("hydrate registry: %w", err)
	}

	metrics := monitoring.NewMetrics()
	bus := events.NewBus(log)
	worlds := world.NewManager(bus)
	hub := ws.NewHub(bus, metrics, log)
	validator := manifest.NewValidator(cfg.Plugins.APIVersion, cfg.Plugins.AppVersion)

	lc := lifecycle.NewManager(reg, validator, bus, store_, worlds, hub, metrics, cfg.Plugins, log)
	catalog := store.NewClient(cfg.Store, validator, log)
	handlers := apihttp.NewHandlers(lc, reg, catalog, worlds, metrics, log)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	router.Use(middleware.RateLimit(cfg.RateLimit))
	router.Use(tracing.Middleware(log))
	router.Use(monitoring.Middleware(metrics))

	registerRoutes(router, handlers, hub, cfg.RateLimit)

	s := &Server{
		cfg:    cfg,
		log:    log.Named("server"),
		router: router,
		kv:     store_,
	}
	s.http = &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func registerRoutes(router *gin.Engine, h *apihttp.Handlers, hub *ws.Hub, rl config.RateLimitConfig) {
	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	router.GET("/metrics", h.Metrics)
	router.GET("/metrics/prometheus", gin.WrapH(promhttp.Handler()))
	router.GET("/ws", hub.HandleConnection)

	// Imports deserialize and install whole archives, so they share one
	// global bucket instead of the per-IP one.
	importLimit := middleware.GlobalRateLimit(rl)

	// Installed plugins
	router.GET("/plugins", h.ListPlugins)
	router.POST("/plugins", h.InstallPlugin)
	router.GET("/plugins/search", h.SearchPlugins)
	router.POST("/plugins/import", importLimit, h.ImportPlugin)
	router.GET("/plugins/:id", h.GetPlugin)
	router.DELETE("/plugins/:id", h.UninstallPlugin)
	router.POST("/plugins/:id/load", h.LoadPlugin)
	router.POST("/plugins/:id/activate", h.ActivatePlugin)
	router.POST("/plugins/:id/deactivate", h.DeactivatePlugin)
	router.POST("/plugins/:id/reload", h.ReloadPlugin)
	router.PUT("/plugins/:id/enabled", h.SetPluginEnabled)
	router.GET("/plugins/:id/export", h.ExportPlugin)

	// Whole-registry snapshots
	router.GET("/registry/export", h.ExportRegistry)
	router.POST("/registry/import", importLimit, h.ImportRegistry)

	// Remote catalog
	router.GET("/store/plugins", h.BrowseStore)
	router.GET("/store/search", h.SearchStore)
	router.POST("/store/plugins/:listing_id/install", h.InstallFromStore)

	// Worldbuilding data
	router.GET("/worlds", h.ListWorlds)
	router.POST("/worlds", h.CreateWorld)
	router.POST("/worlds/:id/switch", h.SwitchWorld)
	router.GET("/characters", h.ListCharacters)
	router.POST("/characters", h.CreateCharacter)
	router.GET("/notes", h.ListNotes)
	router.POST("/notes", h.CreateNote)
}

// openStore selects the kv backend from configuration
func openStore(ctx context.Context, cfg config.StorageConfig) (kv.Store, error) {
	switch cfg.Backend {
	case "memory":
		return kv.NewMemory(), nil
	case "redis":
		return kv.NewRedis(ctx, cfg.RedisAddr)
	case "file", "":
		return kv.NewFile(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Run serves HTTP until the listener fails or Shutdown is called
func (s *Server) Run() error {
	s.log.Info("listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and closes the kv store
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.http.Shutdown(ctx); err != nil {
		return err
	}
	return s.kv.Close()
}
