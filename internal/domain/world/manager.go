package world

import (
	"fmt"
	"sync"
	"time"

	"github.com/loomworks/worldloom/backend/internal/plugins/events"
	"github.com/loomworks/worldloom/backend/internal/shared/id"
	"github.com/loomworks/worldloom/backend/internal/shared/types"
)

// World is a top-level campaign setting
type World struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Character is a person or creature belonging to a world
type Character struct {
	ID        string                 `json:"id"`
	WorldID   string                 `json:"world_id"`
	Name      string                 `json:"name"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// Note is a free-form record attached to a world
type Note struct {
	ID        string    `json:"id"`
	WorldID   string    `json:"world_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Manager owns the host's domain records. Writes are synchronous and
// immediately visible to subsequent reads; every mutation publishes the
// matching host event so subscribed plugins observe it.
type Manager struct {
	mu         sync.RWMutex
	worlds     map[string]*World
	characters map[string]*Character
	notes      map[string]*Note
	currentID  string

	bus *events.Bus
}

// NewManager creates a domain manager publishing onto the given bus
func NewManager(bus *events.Bus) *Manager {
	return &Manager{
		worlds:     make(map[string]*World),
		characters: make(map[string]*Character),
		notes:      make(map[string]*Note),
		bus:        bus,
	}
}

// CreateWorld adds a world; the first world becomes current
func (m *Manager) CreateWorld(name string) *World {
	w := &World{
		ID:        id.NewWorldID(),
		Name:      name,
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	m.worlds[w.ID] = w
	if m.currentID == "" {
		m.currentID = w.ID
	}
	m.mu.Unlock()

	m.bus.Publish(types.Event{Name: types.EventWorldCreated, Payload: worldMap(w)})
	return w
}

// SwitchWorld changes the current world
func (m *Manager) SwitchWorld(id string) error {
	m.mu.Lock()
	w, ok := m.worlds[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("world not found: %s", id)
	}
	m.currentID = id
	m.mu.Unlock()

	m.bus.Publish(types.Event{Name: types.EventWorldSwitched, Payload: worldMap(w)})
	return nil
}

// CreateCharacter adds a character to the current world
func (m *Manager) CreateCharacter(name string, fields map[string]interface{}) (map[string]interface{}, error) {
	m.mu.Lock()
	if m.currentID == "" {
		m.mu.Unlock()
		return nil, fmt.Errorf("no current world")
	}
	c := &Character{
		ID:        id.NewCharacterID(),
		WorldID:   m.currentID,
		Name:      name,
		Fields:    fields,
		CreatedAt: time.Now(),
	}
	m.characters[c.ID] = c
	m.mu.Unlock()

	out := characterMap(c)
	m.bus.Publish(types.Event{Name: types.EventCharacterCreated, Payload: out})
	return out, nil
}

// CreateNote adds a note to the current world
func (m *Manager) CreateNote(title, body string) (map[string]interface{}, error) {
	m.mu.Lock()
	if m.currentID == "" {
		m.mu.Unlock()
		return nil, fmt.Errorf("no current world")
	}
	n := &Note{
		ID:        id.NewNoteID(),
		WorldID:   m.currentID,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now(),
	}
	m.notes[n.ID] = n
	m.mu.Unlock()

	out := noteMap(n)
	m.bus.Publish(types.Event{Name: types.EventNoteCreated, Payload: out})
	return out, nil
}

// Worlds lists all worlds as plain records
func (m *Manager) Worlds() []map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]map[string]interface{}, 0, len(m.worlds))
	for _, w := range m.worlds {
		out = append(out, worldMap(w))
	}
	return out
}

// CurrentWorld returns the current world, if any
func (m *Manager) CurrentWorld() (map[string]interface{}, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.worlds[m.currentID]
	if !ok {
		return nil, false
	}
	return worldMap(w), true
}

// Characters lists characters in the current world
func (m *Manager) Characters() []map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []map[string]interface{}
	for _, c := range m.characters {
		if c.WorldID == m.currentID {
			out = append(out, characterMap(c))
		}
	}
	return out
}

// Notes lists notes in the current world
func (m *Manager) Notes() []map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []map[string]interface{}
	for _, n := range m.notes {
		if n.WorldID == m.currentID {
			out = append(out, noteMap(n))
		}
	}
	return out
}

func worldMap(w *World) map[string]interface{} {
	return map[string]interface{}{
		"id":         w.ID,
		"name":       w.Name,
		"created_at": w.CreatedAt,
	}
}

func characterMap(c *Character) map[string]interface{} {
	return map[string]interface{}{
		"id":         c.ID,
		"world_id":   c.WorldID,
		"name":       c.Name,
		"fields":     c.Fields,
		"created_at": c.CreatedAt,
	}
}

func noteMap(n *Note) map[string]interface{} {
	return map[string]interface{}{
		"id":         n.ID,
		"world_id":   n.WorldID,
		"title":      n.Title,
		"body":       n.Body,
		"created_at": n.CreatedAt,
	}
}
