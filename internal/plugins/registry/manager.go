package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/loomworks/worldloom/backend/internal/kv"
	"github.com/loomworks/worldloom/backend/internal/shared/errs"
	"github.com/loomworks/worldloom/backend/internal/shared/types"
)

const keyPrefix = "plugin:"

// Manager is the durable record of installed plugins. Records are cached
// in memory and written through to the kv collaborator, so the registry
// survives process restarts. All mutations are synchronous with respect
// to the caller; this is a single-process, single-writer store.
type Manager struct {
	plugins sync.Map // id -> *types.Plugin
	store   kv.Store
	mu      sync.Mutex // serializes upsert/remove write-through
}

// NewManager creates a registry over the given store and hydrates the
// cache from any previously persisted records.
func NewManager(ctx context.Context, store kv.Store) (*Manager, error) {
	m := &Manager{store: store}

	keys, err := store.Keys(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to scan registry: %w", err)
	}
	for _, key := range keys {
		data, found, err := store.Get(ctx, key)
		if err != nil || !found {
			continue
		}
		var p types.Plugin
		if err := sonic.Unmarshal(data, &p); err != nil {
			continue
		}
		// Runtime state never survives a restart; code must be reloaded
		if p.State == types.StateLoaded || p.State == types.StateActive || p.State == types.StateInactive {
			p.State = types.StateInstalled
		}
		m.plugins.Store(p.Manifest.ID, &p)
	}
	return m, nil
}

// Get retrieves a plugin by manifest id
func (m *Manager) Get(id string) (*types.Plugin, bool) {
	val, ok := m.plugins.Load(id)
	if !ok {
		return nil, false
	}
	p := val.(*types.Plugin)
	// Return a copy to prevent external modifications
	cp := *p
	return &cp, true
}

// List returns all registered plugins sorted by id
func (m *Manager) List() []*types.Plugin {
	var out []*types.Plugin
	m.plugins.Range(func(_, value interface{}) bool {
		p := *value.(*types.Plugin)
		out = append(out, &p)
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].Manifest.ID < out[j].Manifest.ID
	})
	return out
}

// Upsert persists a plugin record, replacing any prior record with the
// same id. On replacement the previous usage statistics and error count
// carry over: activation history survives upgrades, and the error count
// only ever resets through an explicit reload.
func (m *Manager) Upsert(ctx context.Context, p *types.Plugin) error {
	if p.Manifest.ID == "" {
		return fmt.Errorf("plugin id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.plugins.Load(p.Manifest.ID); ok {
		old := prev.(*types.Plugin)
		p.UsageStats = old.UsageStats
		p.ErrorCount = old.ErrorCount
		p.InstalledAt = old.InstalledAt
	}
	if p.InstalledAt.IsZero() {
		p.InstalledAt = time.Now()
	}
	p.UpdatedAt = time.Now()

	return m.persist(ctx, p)
}

// Update persists in-place changes to an existing record without the
// replacement semantics of Upsert (state transitions, stats, counters).
func (m *Manager) Update(ctx context.Context, p *types.Plugin) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.plugins.Load(p.Manifest.ID); !ok {
		return errs.New(errs.KindNotFound, p.Manifest.ID, "not installed")
	}
	p.UpdatedAt = time.Now()
	return m.persist(ctx, p)
}

// Remove deletes a plugin record
func (m *Manager) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.plugins.Load(id); !ok {
		return errs.New(errs.KindNotFound, id, "not installed")
	}
	if err := m.store.Remove(ctx, keyPrefix+id); err != nil {
		return fmt.Errorf("failed to remove plugin record: %w", err)
	}
	m.plugins.Delete(id)
	return nil
}

// Search matches the query against name, description and keywords,
// case-insensitive substring.
func (m *Manager) Search(query string) []*types.Plugin {
	q := strings.ToLower(query)

	var out []*types.Plugin
	m.plugins.Range(func(_, value interface{}) bool {
		p := value.(*types.Plugin)
		if matches(&p.Manifest, q) {
			cp := *p
			out = append(out, &cp)
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].Manifest.ID < out[j].Manifest.ID
	})
	return out
}

// Stats summarizes registry contents
func (m *Manager) Stats() types.PluginStats {
	stats := types.PluginStats{States: make(map[string]int)}
	m.plugins.Range(func(_, value interface{}) bool {
		p := value.(*types.Plugin)
		stats.TotalPlugins++
		stats.States[string(p.State)]++
		switch p.State {
		case types.StateActive:
			stats.ActivePlugins++
		case types.StateFailed:
			stats.FailedPlugins++
		}
		return true
	})
	return stats
}

func (m *Manager) persist(ctx context.Context, p *types.Plugin) error {
	data, err := sonic.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal plugin record: %w", err)
	}
	if err := m.store.Set(ctx, keyPrefix+p.Manifest.ID, data); err != nil {
		return fmt.Errorf("failed to persist plugin record: %w", err)
	}

	cp := *p
	m.plugins.Store(p.Manifest.ID, &cp)
	return nil
}

func matches(m *types.Manifest, q string) bool {
	if strings.Contains(strings.ToLower(m.Name), q) {
		return true
	}
	if strings.Contains(strings.ToLower(m.Description), q) {
		return true
	}
	for _, kw := range m.Keywords {
		if strings.Contains(strings.ToLower(kw), q) {
			return true
		}
	}
	return false
}
