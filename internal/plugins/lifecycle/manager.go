package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/loomworks/worldloom/backend/internal/infrastructure/config"
	"github.com/loomworks/worldloom/backend/internal/infrastructure/logging"
	"github.com/loomworks/worldloom/backend/internal/infrastructure/monitoring"
	"github.com/loomworks/worldloom/backend/internal/kv"
	"github.com/loomworks/worldloom/backend/internal/plugins/api"
	"github.com/loomworks/worldloom/backend/internal/plugins/events"
	"github.com/loomworks/worldloom/backend/internal/plugins/manifest"
	"github.com/loomworks/worldloom/backend/internal/plugins/registry"
	"github.com/loomworks/worldloom/backend/internal/plugins/sandbox"
	"github.com/loomworks/worldloom/backend/internal/shared/errs"
	"github.com/loomworks/worldloom/backend/internal/shared/types"
)

// entry is the in-memory runtime half of one plugin. The lock serializes
// every entry into the plugin's VM: activate, deactivate and event
// handler invocations all take it, so at most one logical caller is
// inside a plugin's code at a time.
type entry struct {
	lock    sync.Mutex
	runtime *sandbox.Runtime
	handle  *api.Handle
}

// Manager drives plugins through their state machine: install, load,
// activate, deactivate, uninstall, reload. Registry records are the
// durable source of truth; entries hold the live VMs.
type Manager struct {
	registry  *registry.Manager
	validator *manifest.Validator
	bus       *events.Bus
	store     kv.Store
	data      api.HostData
	ui        api.UISink
	metrics   *monitoring.Metrics
	cfg       config.PluginConfig
	log       *logging.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

// NewManager wires a lifecycle manager over the registry and bus. It
// registers itself as the bus error sink so handler failures count
// against the owning plugin.
func NewManager(
	reg *registry.Manager,
	validator *manifest.Validator,
	bus *events.Bus,
	store kv.Store,
	data api.HostData,
	ui api.UISink,
	metrics *monitoring.Metrics,
	cfg config.PluginConfig,
	log *logging.Logger,
) *Manager {
	m := &Manager{
		registry:  reg,
		validator: validator,
		bus:       bus,
		store:     store,
		data:      data,
		ui:        ui,
		metrics:   metrics,
		cfg:       cfg,
		log:       log.Named("lifecycle"),
		entries:   make(map[string]*entry),
	}
	bus.SetErrorSink(m)
	return m
}

// entryFor returns the live entry for a plugin, creating it if needed
func (m *Manager) entryFor(id string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		e = &entry{}
		m.entries[id] = e
	}
	return e
}

func (m *Manager) dropEntry(id string) {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
}

// Install validates a raw manifest and persists the plugin in the
// installed state. Reinstalling over an active plugin deactivates the
// running instance first; usage stats survive the replacement.
func (m *Manager) Install(ctx context.Context, rawManifest []byte, code string) (*types.Plugin, error) {
	man, verrs := m.validator.Validate(rawManifest)
	if len(verrs) > 0 {
		return nil, errs.Wrap(errs.KindValidation, idOf(man), manifest.Errors(verrs), "manifest rejected")
	}
	return m.install(ctx, man, code)
}

// InstallBundle installs an already-decoded bundle, re-validating its
// manifest. Used by the store download and import paths.
func (m *Manager) InstallBundle(ctx context.Context, b *types.Bundle) (*types.Plugin, error) {
	man := b.Manifest
	if verrs := m.validator.ValidateManifest(&man); len(verrs) > 0 {
		return nil, errs.Wrap(errs.KindValidation, man.ID, manifest.Errors(verrs), "manifest rejected")
	}
	return m.install(ctx, &man, b.Code)
}

func (m *Manager) install(ctx context.Context, man *types.Manifest, code string) (*types.Plugin, error) {
	if prior, ok := m.registry.Get(man.ID); ok && prior.IsActive() {
		if err := m.Deactivate(ctx, man.ID); err != nil {
			m.log.Warn("deactivate before reinstall failed",
				zap.String("plugin_id", man.ID), zap.Error(err))
		}
	}
	m.dropEntry(man.ID)

	manifest.Stamp(man)
	p := &types.Plugin{
		Manifest: *man,
		Code:     code,
		Enabled:  true,
		State:    types.StateInstalled,
	}
	if err := m.registry.Upsert(ctx, p); err != nil {
		return nil, err
	}

	m.metrics.Installs.Inc()
	m.metrics.PluginsInstalled.Set(float64(m.registry.Stats().TotalPlugins))
	m.log.Info("plugin installed",
		zap.String("plugin_id", man.ID),
		zap.String("version", man.Version))
	out, _ := m.registry.Get(man.ID)
	return out, nil
}

// Load parses the plugin's code in a fresh VM and resolves its entry
// points. A parse or resolution failure moves the plugin to failed and
// bumps its error count; the record stays visible so it can be removed.
func (m *Manager) Load(ctx context.Context, id string) error {
	p, ok := m.registry.Get(id)
	if !ok {
		return errs.New(errs.KindNotFound, id, "not installed")
	}

	e := m.entryFor(id)
	e.lock.Lock()
	defer e.lock.Unlock()

	start := time.Now()
	rt := sandbox.New(id, m.log)
	if err := rt.Load(p.Code); err != nil {
		p.State = types.StateFailed
		p.ErrorCount++
		if uerr := m.registry.Update(ctx, p); uerr != nil {
			m.log.Error("failed to persist load failure", zap.String("plugin_id", id), zap.Error(uerr))
		}
		m.metrics.RecordPluginError(string(errs.KindLoad))
		return errs.Wrap(errs.KindLoad, id, err, "code failed to load")
	}

	e.runtime = rt
	p.State = types.StateLoaded
	p.LoadTime = time.Since(start)
	if err := m.registry.Update(ctx, p); err != nil {
		return err
	}

	m.log.Info("plugin loaded",
		zap.String("plugin_id", id),
		zap.Duration("load_time", p.LoadTime))
	return nil
}

// Activate binds a fresh api handle and runs the plugin's activate()
// under the configured timeout. On failure every subscription made
// during the partial run is removed and the handle invalidated, so a
// failed activation leaves no reachable capabilities behind.
func (m *Manager) Activate(ctx context.Context, id string) error {
	p, ok := m.registry.Get(id)
	if !ok {
		return errs.New(errs.KindNotFound, id, "not installed")
	}
	if !p.Enabled {
		return errs.New(errs.KindInvalidState, id, "plugin is disabled")
	}

	e := m.entryFor(id)
	e.lock.Lock()
	defer e.lock.Unlock()

	// Re-read under the lock; a concurrent call may have won the race
	p, _ = m.registry.Get(id)
	switch p.State {
	case types.StateActive:
		return errs.New(errs.KindInvalidState, id, "already active")
	case types.StateLoaded, types.StateInactive:
	default:
		return errs.New(errs.KindInvalidState, id, "cannot activate from state %q", p.State)
	}
	if e.runtime == nil {
		return errs.New(errs.KindInvalidState, id, "code not loaded")
	}

	handle := api.Bind(api.BindConfig{
		PluginID:       id,
		Runtime:        e.runtime,
		Store:          m.store,
		Data:           m.data,
		Bus:            m.bus,
		UI:             m.ui,
		Logger:         m.log,
		Granted:        m.grantedFunc(id),
		Active:         m.activeFunc(id),
		WrapHandler:    m.wrapHandler(id, e),
		RecordError:    func(err error) { m.RecordHandlerError(id, err) },
		DataCallBudget: m.cfg.DataCallBudget,
		DataCallWindow: rate.Limit(float64(m.cfg.DataCallBudget) / m.cfg.DataCallWindow.Seconds()),
	})

	start := time.Now()
	if err := e.runtime.RunActivate(ctx, m.cfg.ActivateTimeout, handle.Object()); err != nil {
		m.bus.UnsubscribeAll(id)
		handle.Invalidate()
		p.ErrorCount++
		if uerr := m.registry.Update(ctx, p); uerr != nil {
			m.log.Error("failed to persist activation failure", zap.String("plugin_id", id), zap.Error(uerr))
		}
		m.metrics.RecordActivation("failure", time.Since(start))
		m.metrics.RecordPluginError(string(errs.KindActivation))
		return errs.Wrap(errs.KindActivation, id, err, "activate failed")
	}

	e.handle = handle
	now := time.Now()
	p.State = types.StateActive
	p.UsageStats.Activations++
	p.UsageStats.LastUsed = &now
	if err := m.registry.Update(ctx, p); err != nil {
		return err
	}

	m.metrics.RecordActivation("success", time.Since(start))
	m.metrics.PluginsActive.Set(float64(m.registry.Stats().ActivePlugins))
	m.log.Info("plugin activated", zap.String("plugin_id", id))

	go m.bus.Publish(types.Event{Name: types.EventPluginActivated, Payload: map[string]interface{}{"plugin_id": id}})
	return nil
}

// Deactivate runs the plugin's deactivate() best-effort, then removes
// every subscription and invalidates the api handle regardless of its
// outcome. Deactivating a plugin that is not active is a no-op.
// Blocks until any in-flight activate for the same plugin completes.
func (m *Manager) Deactivate(ctx context.Context, id string) error {
	p, ok := m.registry.Get(id)
	if !ok {
		return errs.New(errs.KindNotFound, id, "not installed")
	}

	e := m.entryFor(id)
	e.lock.Lock()
	defer e.lock.Unlock()

	p, _ = m.registry.Get(id)
	if p.State != types.StateActive {
		return nil
	}

	if e.runtime != nil {
		if err := e.runtime.RunDeactivate(ctx, m.cfg.ActivateTimeout); err != nil {
			m.log.Warn("deactivate raised",
				zap.String("plugin_id", id), zap.Error(err))
			m.RecordHandlerError(id, err)
		}
	}

	m.bus.UnsubscribeAll(id)
	if e.handle != nil {
		e.handle.Invalidate()
		e.handle = nil
	}

	p, _ = m.registry.Get(id) // RecordHandlerError may have bumped the count
	p.State = types.StateInactive
	if err := m.registry.Update(ctx, p); err != nil {
		return err
	}

	m.metrics.PluginsActive.Set(float64(m.registry.Stats().ActivePlugins))
	m.log.Info("plugin deactivated", zap.String("plugin_id", id))

	go m.bus.Publish(types.Event{Name: types.EventPluginDeactivated, Payload: map[string]interface{}{"plugin_id": id}})
	return nil
}

// Uninstall deactivates if needed, removes the registry record and
// purges the plugin's namespaced storage.
func (m *Manager) Uninstall(ctx context.Context, id string) error {
	p, ok := m.registry.Get(id)
	if !ok {
		return errs.New(errs.KindNotFound, id, "not installed")
	}
	if p.IsActive() {
		if err := m.Deactivate(ctx, id); err != nil {
			return err
		}
	}

	m.dropEntry(id)
	if err := m.registry.Remove(ctx, id); err != nil {
		return err
	}
	if err := api.ClearStorage(m.store, id); err != nil {
		m.log.Warn("failed to clear plugin storage",
			zap.String("plugin_id", id), zap.Error(err))
	}

	m.metrics.PluginsInstalled.Set(float64(m.registry.Stats().TotalPlugins))
	m.log.Info("plugin uninstalled", zap.String("plugin_id", id))
	return nil
}

// Reload deactivates the plugin if active, discards its VM, resets the
// error count and loads the code fresh. The one path that forgives past
// failures.
func (m *Manager) Reload(ctx context.Context, id string) error {
	p, ok := m.registry.Get(id)
	if !ok {
		return errs.New(errs.KindNotFound, id, "not installed")
	}
	if p.IsActive() {
		if err := m.Deactivate(ctx, id); err != nil {
			return err
		}
	}
	m.dropEntry(id)

	p, _ = m.registry.Get(id)
	p.ErrorCount = 0
	p.State = types.StateInstalled
	if err := m.registry.Update(ctx, p); err != nil {
		return err
	}
	return m.Load(ctx, id)
}

// SetEnabled toggles a plugin. Disabling an active plugin deactivates
// it; grant checks read Enabled live, so revocation is immediate either
// way.
func (m *Manager) SetEnabled(ctx context.Context, id string, enabled bool) error {
	p, ok := m.registry.Get(id)
	if !ok {
		return errs.New(errs.KindNotFound, id, "not installed")
	}
	if !enabled && p.IsActive() {
		if err := m.Deactivate(ctx, id); err != nil {
			return err
		}
	}

	p, _ = m.registry.Get(id)
	p.Enabled = enabled
	return m.registry.Update(ctx, p)
}

// RecordHandlerError implements events.ErrorSink: a failing handler
// counts against the owning plugin but never disturbs other
// subscribers or the publisher.
func (m *Manager) RecordHandlerError(pluginID string, err error) {
	p, ok := m.registry.Get(pluginID)
	if !ok {
		return
	}
	p.ErrorCount++
	if uerr := m.registry.Update(context.Background(), p); uerr != nil {
		m.log.Error("failed to persist error count",
			zap.String("plugin_id", pluginID), zap.Error(uerr))
	}
	m.metrics.RecordPluginError("handler_error")
	m.log.Warn("plugin handler failed",
		zap.String("plugin_id", pluginID), zap.Error(err))
}

// grantedFunc builds the live permission check the api handle calls on
// every namespace method.
func (m *Manager) grantedFunc(id string) func(types.PermissionType) bool {
	return func(t types.PermissionType) bool {
		p, ok := m.registry.Get(id)
		return ok && p.Enabled && p.Manifest.HasPermission(t)
	}
}

func (m *Manager) activeFunc(id string) func() bool {
	return func() bool {
		p, ok := m.registry.Get(id)
		return ok && p.IsActive()
	}
}

// wrapHandler serializes handler delivery with the plugin's lifecycle
// lock and skips delivery once the plugin is no longer active. Handlers
// therefore never run concurrently with activate or deactivate.
func (m *Manager) wrapHandler(id string, e *entry) func(fn goja.Callable) events.Handler {
	return func(fn goja.Callable) events.Handler {
		return func(event types.Event) error {
			e.lock.Lock()
			defer e.lock.Unlock()

			p, ok := m.registry.Get(id)
			if !ok || !p.IsActive() || e.runtime == nil {
				return nil
			}
			m.metrics.EventDeliveries.Inc()
			return e.runtime.CallHandler(fn, event)
		}
	}
}

func idOf(m *types.Manifest) string {
	if m == nil {
		return ""
	}
	return m.ID
}
