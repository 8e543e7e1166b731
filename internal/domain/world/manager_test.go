package world

import (
	"testing"

	"github.com/loomworks/worldloom/backend/internal/infrastructure/logging"
	"github.com/loomworks/worldloom/backend/internal/plugins/events"
	"github.com/loomworks/worldloom/backend/internal/shared/types"
)

func newManager() (*Manager, *events.Bus) {
	bus := events.NewBus(logging.NewNop())
	return NewManager(bus), bus
}

func TestFirstWorldBecomesCurrent(t *testing.T) {
	m, _ := newManager()

	w := m.CreateWorld("Eldoria")
	current, ok := m.CurrentWorld()
	if !ok || current["id"] != w.ID {
		t.Fatalf("First world should be current, got %v", current)
	}
}

func TestSwitchWorld(t *testing.T) {
	m, bus := newManager()
	m.CreateWorld("Eldoria")
	second := m.CreateWorld("Umbra")

	var switched interface{}
	bus.Subscribe("host", types.EventWorldSwitched, func(e types.Event) error {
		switched = e.Payload
		return nil
	})

	if err := m.SwitchWorld(second.ID); err != nil {
		t.Fatalf("SwitchWorld failed: %v", err)
	}
	current, _ := m.CurrentWorld()
	if current["id"] != second.ID {
		t.Error("Current world should change")
	}
	if switched == nil {
		t.Error("Switch should publish an event")
	}

	if err := m.SwitchWorld("missing"); err == nil {
		t.Error("Switching to unknown world should fail")
	}
}

func TestCharacterScopedToWorld(t *testing.T) {
	m, _ := newManager()
	first := m.CreateWorld("Eldoria")
	m.CreateCharacter("Tamsin", map[string]interface{}{"class": "ranger"})

	second := m.CreateWorld("Umbra")
	m.SwitchWorld(second.ID)
	if chars := m.Characters(); len(chars) != 0 {
		t.Errorf("Characters should be scoped to current world, got %v", chars)
	}

	m.SwitchWorld(first.ID)
	chars := m.Characters()
	if len(chars) != 1 || chars[0]["name"] != "Tamsin" {
		t.Errorf("Expected Tamsin in first world, got %v", chars)
	}
}

func TestCreateWithoutWorld(t *testing.T) {
	m, _ := newManager()

	if _, err := m.CreateCharacter("Nobody", nil); err == nil {
		t.Error("Character creation without a world should fail")
	}
	if _, err := m.CreateNote("Orphan", ""); err == nil {
		t.Error("Note creation without a world should fail")
	}
}

func TestWriteVisibleToSubsequentRead(t *testing.T) {
	m, _ := newManager()
	m.CreateWorld("Eldoria")

	created, err := m.CreateNote("Session 0", "Meet at the tavern")
	if err != nil {
		t.Fatalf("CreateNote failed: %v", err)
	}

	notes := m.Notes()
	if len(notes) != 1 || notes[0]["id"] != created["id"] {
		t.Error("Write must be immediately visible to reads")
	}
}
