package ws

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/loomworks/worldloom/backend/internal/infrastructure/logging"
	"github.com/loomworks/worldloom/backend/internal/infrastructure/monitoring"
	"github.com/loomworks/worldloom/backend/internal/plugins/events"
	"github.com/loomworks/worldloom/backend/internal/shared/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The frontend is a local app shell, not a fixed origin
		return true
	},
}

// hubSubscriber is the reserved bus identity for the frontend fanout.
// It never matches a registry record, so handler failures here are not
// charged to any plugin.
const hubSubscriber = "host.ws"

// forwardedEvents are the host events pushed to connected frontends
var forwardedEvents = []string{
	types.EventWorldCreated,
	types.EventWorldSwitched,
	types.EventCharacterCreated,
	types.EventCharacterUpdated,
	types.EventNoteCreated,
	types.EventPluginActivated,
	types.EventPluginDeactivated,
}

// Hub fans host events and plugin UI contributions out to every
// connected frontend. It implements the UI sink the plugin api surface
// writes into.
type Hub struct {
	metrics *monitoring.Metrics
	log     *logging.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

// NewHub creates a hub and subscribes it to the host event stream
func NewHub(bus *events.Bus, metrics *monitoring.Metrics, log *logging.Logger) *Hub {
	h := &Hub{
		metrics: metrics,
		log:     log.Named("ws"),
		conns:   make(map[*websocket.Conn]bool),
	}
	for _, name := range forwardedEvents {
		bus.Subscribe(hubSubscriber, name, func(event types.Event) error {
			h.broadcast(types.WSMessage{Type: "event", Payload: event})
			return nil
		})
	}
	return h
}

// HandleConnection upgrades the request and serves the connection until
// the client goes away.
func (h *Hub) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.register(conn)
	defer h.unregister(conn)

	h.send(conn, types.WSMessage{Type: "system", Payload: gin.H{"message": "connected"}})

	for {
		var msg types.WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case "ping":
			h.send(conn, types.WSMessage{Type: "pong"})
		default:
			h.send(conn, types.WSMessage{Type: "error", Payload: gin.H{"message": "unknown message type"}})
		}
	}
}

// ShowNotification pushes a plugin notification to every frontend
func (h *Hub) ShowNotification(n types.Notification) {
	h.broadcast(types.WSMessage{Type: "notification", Payload: n})
}

// ShowModal pushes a plugin modal request
func (h *Hub) ShowModal(pluginID string, spec map[string]interface{}) {
	h.broadcast(types.WSMessage{Type: "modal", Payload: gin.H{
		"plugin_id": pluginID,
		"spec":      spec,
	}})
}

// AddMenuItem pushes a plugin menu contribution
func (h *Hub) AddMenuItem(item types.MenuItem) {
	h.broadcast(types.WSMessage{Type: "menu_item", Payload: item})
}

// AddToolbarButton pushes a plugin toolbar contribution
func (h *Hub) AddToolbarButton(btn types.ToolbarButton) {
	h.broadcast(types.WSMessage{Type: "toolbar_button", Payload: btn})
}

func (h *Hub) register(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = true
	h.mu.Unlock()
	h.metrics.WSConnections.Inc()
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	h.metrics.WSConnections.Dec()
	conn.Close()
}

// broadcast writes to every connection under the hub lock; a failed
// write just drops that connection on its next read.
func (h *Hub) broadcast(msg types.WSMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteJSON(msg); err != nil {
			h.log.Debug("websocket write failed", zap.Error(err))
		}
	}
}

func (h *Hub) send(conn *websocket.Conn, msg types.WSMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := conn.WriteJSON(msg); err != nil {
		h.log.Debug("websocket write failed", zap.Error(err))
	}
}
