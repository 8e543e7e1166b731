package registry

import (
	"context"
	"testing"
	"time"

	"github.com/loomworks/worldloom/backend/internal/kv"
	"github.com/loomworks/worldloom/backend/internal/shared/types"
)

func plugin(id, version string) *types.Plugin {
	return &types.Plugin{
		Manifest: types.Manifest{
			ID:         id,
			Name:       "Plugin " + id,
			Version:    version,
			APIVersion: "1.0.0",
			Keywords:   []string{"maps", "overlay"},
		},
		Code:    `function activate(api) {} function deactivate() {}`,
		Enabled: true,
		State:   types.StateInstalled,
	}
}

func TestUpsertAndGet(t *testing.T) {
	ctx := context.Background()
	m, err := NewManager(ctx, kv.NewMemory())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	if err := m.Upsert(ctx, plugin("demo.a", "1.0.0")); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, ok := m.Get("demo.a")
	if !ok || got.Manifest.Version != "1.0.0" {
		t.Fatalf("Get returned %v, %v", got, ok)
	}
}

func TestReinstallPreservesUsageStats(t *testing.T) {
	ctx := context.Background()
	m, _ := NewManager(ctx, kv.NewMemory())

	first := plugin("dup.plugin", "1.0.0")
	m.Upsert(ctx, first)

	// Simulate runtime bookkeeping
	rec, _ := m.Get("dup.plugin")
	now := time.Now()
	rec.UsageStats = types.UsageStats{Activations: 7, LastUsed: &now}
	rec.ErrorCount = 2
	m.Update(ctx, rec)

	// Second install of the same id replaces manifest and code
	m.Upsert(ctx, plugin("dup.plugin", "2.0.0"))

	got, _ := m.Get("dup.plugin")
	if got.Manifest.Version != "2.0.0" {
		t.Errorf("Expected replaced version 2.0.0, got %s", got.Manifest.Version)
	}
	if got.UsageStats.Activations != 7 {
		t.Errorf("Usage stats must survive replacement, got %d", got.UsageStats.Activations)
	}
	if got.ErrorCount != 2 {
		t.Errorf("Error count resets only on explicit reload, got %d", got.ErrorCount)
	}

	if n := len(m.List()); n != 1 {
		t.Errorf("Expected exactly one record for dup.plugin, got %d", n)
	}
}

func TestSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()

	m1, _ := NewManager(ctx, store)
	p := plugin("demo.persist", "1.0.0")
	p.State = types.StateActive
	m1.Upsert(ctx, p)

	// New manager over the same store sees the record, state downgraded
	m2, err := NewManager(ctx, store)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	got, ok := m2.Get("demo.persist")
	if !ok {
		t.Fatal("Record should survive restart")
	}
	if got.State != types.StateInstalled {
		t.Errorf("Runtime state must not survive restart, got %s", got.State)
	}
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	m, _ := NewManager(ctx, kv.NewMemory())
	m.Upsert(ctx, plugin("demo.a", "1.0.0"))

	if err := m.Remove(ctx, "demo.a"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, ok := m.Get("demo.a"); ok {
		t.Error("Removed plugin should be gone")
	}
	if err := m.Remove(ctx, "demo.a"); err == nil {
		t.Error("Removing an absent plugin should fail")
	}
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	m, _ := NewManager(ctx, kv.NewMemory())

	a := plugin("demo.maps", "1.0.0")
	a.Manifest.Name = "Hex Mapper"
	a.Manifest.Description = "Draws hex grids"
	b := plugin("demo.dice", "1.0.0")
	b.Manifest.Name = "Dice Roller"
	b.Manifest.Description = "Rolls dice"
	b.Manifest.Keywords = []string{"random"}
	m.Upsert(ctx, a)
	m.Upsert(ctx, b)

	if got := m.Search("HEX"); len(got) != 1 || got[0].Manifest.ID != "demo.maps" {
		t.Errorf("Name search failed: %v", got)
	}
	if got := m.Search("random"); len(got) != 1 || got[0].Manifest.ID != "demo.dice" {
		t.Errorf("Keyword search failed: %v", got)
	}
	if got := m.Search("nothing"); len(got) != 0 {
		t.Errorf("Unexpected search hits: %v", got)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m, _ := NewManager(ctx, kv.NewMemory())
	m.Upsert(ctx, plugin("demo.a", "1.0.0"))

	got, _ := m.Get("demo.a")
	got.ErrorCount = 99

	again, _ := m.Get("demo.a")
	if again.ErrorCount != 0 {
		t.Error("Mutating a returned record must not affect the registry")
	}
}
