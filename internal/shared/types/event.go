package types

// Event is an ephemeral host-domain event carried by the bus
type Event struct {
	Name    string      `json:"name"`
	Payload interface{} `json:"payload,omitempty"`
}

// Well-known host event names
const (
	EventWorldCreated     = "world.created"
	EventWorldSwitched    = "world.switched"
	EventCharacterCreated = "character.created"
	EventCharacterUpdated = "character.updated"
	EventNoteCreated      = "note.created"
	EventPluginActivated  = "plugin.activated"
	EventPluginDeactivated = "plugin.deactivated"
)

// Notification is a UI message raised by a plugin through the api surface
type Notification struct {
	PluginID string `json:"plugin_id"`
	Message  string `json:"message"`
	Level    string `json:"level"`
}

// MenuItem is a plugin-contributed menu entry
type MenuItem struct {
	PluginID string `json:"plugin_id"`
	ID       string `json:"id"`
	Label    string `json:"label"`
	Parent   string `json:"parent,omitempty"`
}

// ToolbarButton is a plugin-contributed toolbar entry
type ToolbarButton struct {
	PluginID string `json:"plugin_id"`
	ID       string `json:"id"`
	Label    string `json:"label"`
	Icon     string `json:"icon,omitempty"`
	Tooltip  string `json:"tooltip,omitempty"`
}

// WSMessage is the websocket envelope pushed to the frontend
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}
