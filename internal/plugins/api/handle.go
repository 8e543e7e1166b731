package api

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dop251/goja"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/loomworks/worldloom/backend/internal/infrastructure/logging"
	"github.com/loomworks/worldloom/backend/internal/kv"
	"github.com/loomworks/worldloom/backend/internal/plugins/events"
	"github.com/loomworks/worldloom/backend/internal/plugins/sandbox"
	"github.com/loomworks/worldloom/backend/internal/shared/errs"
	"github.com/loomworks/worldloom/backend/internal/shared/types"
)

// HostData is the thin adapter over the host's own CRUD services the
// data namespace exposes. Writes are synchronous and immediately visible
// to subsequent reads.
type HostData interface {
	Worlds() []map[string]interface{}
	CurrentWorld() (map[string]interface{}, bool)
	SwitchWorld(id string) error
	Characters() []map[string]interface{}
	CreateCharacter(name string, fields map[string]interface{}) (map[string]interface{}, error)
	Notes() []map[string]interface{}
	CreateNote(title, body string) (map[string]interface{}, error)
}

// UISink receives plugin UI contributions for delivery to the frontend
type UISink interface {
	ShowNotification(n types.Notification)
	ShowModal(pluginID string, spec map[string]interface{})
	AddMenuItem(item types.MenuItem)
	AddToolbarButton(btn types.ToolbarButton)
}

// BindConfig carries everything a handle needs from the lifecycle manager
type BindConfig struct {
	PluginID string
	Runtime  *sandbox.Runtime
	Store    kv.Store
	Data     HostData
	Bus      *events.Bus
	UI       UISink
	Logger   *logging.Logger

	// Granted reports whether the plugin currently holds a permission.
	// Evaluated on every call, so mid-session revocation takes effect
	// immediately.
	Granted func(types.PermissionType) bool

	// Active reports whether the plugin is still in the active state
	Active func() bool

	// WrapHandler serializes an event handler invocation with the
	// plugin's lifecycle lock before it enters the VM
	WrapHandler func(fn goja.Callable) events.Handler

	// RecordError tracks a failure against the plugin's error count
	RecordError func(err error)

	// DataCallBudget / DataCallWindow bound data namespace usage
	DataCallBudget int
	DataCallWindow rate.Limit // tokens per second, precomputed by caller
}

// Handle is the capability-scoped object tree bound once per activation.
// Every namespace method re-checks grants at call time; after
// Invalidate, every call fails with a HandleInvalid condition.
type Handle struct {
	cfg       BindConfig
	invalid   atomic.Bool
	limiter   *rate.Limiter
	sanitizer *bluemonday.Policy
	log       *logging.Logger

	mu       sync.Mutex
	selfSubs map[string][]goja.Callable // emitter-side handlers, run inline
}

// Bind constructs a fresh api handle for one activation
func Bind(cfg BindConfig) *Handle {
	return &Handle{
		cfg:       cfg,
		limiter:   rate.NewLimiter(cfg.DataCallWindow, cfg.DataCallBudget),
		sanitizer: bluemonday.StrictPolicy(),
		log:       cfg.Logger.Named("api").With(zap.String("plugin_id", cfg.PluginID)),
		selfSubs:  make(map[string][]goja.Callable),
	}
}

// Invalidate marks the handle stale. Called by the lifecycle manager
// after unsubscribing the plugin from the bus during deactivation.
func (h *Handle) Invalidate() {
	h.invalid.Store(true)
}

// Object builds the JS-facing namespace tree injected as activate's
// argument. Methods returning a non-nil error throw inside the VM, so
// an ungranted call is a catchable exception, never a silent no-op.
func (h *Handle) Object() map[string]interface{} {
	return map[string]interface{}{
		"storage": map[string]interface{}{
			"get":    h.storageGet,
			"set":    h.storageSet,
			"remove": h.storageRemove,
			"clear":  h.storageClear,
		},
		"ui": map[string]interface{}{
			"showNotification": h.showNotification,
			"showModal":        h.showModal,
			"addMenuItem":      h.addMenuItem,
			"addToolbarButton": h.addToolbarButton,
		},
		"data": map[string]interface{}{
			"getWorlds":       h.getWorlds,
			"getCurrentWorld": h.getCurrentWorld,
			"switchWorld":     h.switchWorld,
			"getCharacters":   h.getCharacters,
			"createCharacter": h.createCharacter,
			"getNotes":        h.getNotes,
			"createNote":      h.createNote,
		},
		"events": map[string]interface{}{
			"on":                 h.on,
			"emit":               h.emit,
			"onCharacterCreated": h.onCharacterCreated,
			"onWorldChanged":     h.onWorldChanged,
			"onNoteCreated":      h.onNoteCreated,
		},
	}
}

// guard is the single permission check every namespace method funnels
// through. Table-driven callers just name their governing permission.
func (h *Handle) guard(perm types.PermissionType) error {
	if h.invalid.Load() {
		return errs.New(errs.KindHandleInvalid, h.cfg.PluginID, "api handle used after deactivation")
	}
	if perm != "" && !h.cfg.Granted(perm) {
		return errs.New(errs.KindPermissionDenied, h.cfg.PluginID, "permission %q not granted", perm)
	}
	return nil
}

func (h *Handle) recordError(err error) {
	if h.cfg.RecordError != nil {
		h.cfg.RecordError(err)
	}
}

func ctx() context.Context {
	return context.Background()
}
