package types

import "time"

// PluginState represents plugin lifecycle states
type PluginState string

const (
	StateInstalled PluginState = "installed" // manifest persisted, code never parsed
	StateLoaded    PluginState = "loaded"    // code parsed, entry points resolved
	StateActive    PluginState = "active"    // activate() has run
	StateInactive  PluginState = "inactive"  // deactivated after having been active
	StateFailed    PluginState = "failed"    // code failed to parse; kept visible for removal
)

// PermissionType is the closed set of grantable capability classes
type PermissionType string

const (
	PermStorage       PermissionType = "storage"
	PermNetwork       PermissionType = "network"
	PermFilesystem    PermissionType = "filesystem"
	PermNotifications PermissionType = "notifications"
	PermClipboard     PermissionType = "clipboard"
)

// PermissionTypes lists every valid permission type
func PermissionTypes() []PermissionType {
	return []PermissionType{
		PermStorage,
		PermNetwork,
		PermFilesystem,
		PermNotifications,
		PermClipboard,
	}
}

// Permission is a single capability request declared by a manifest
type Permission struct {
	Type        PermissionType `json:"type"`
	Description string         `json:"description,omitempty"`
	Required    bool           `json:"required"`
}

// ExtensionPoint declares a host location a plugin attaches behavior to
type ExtensionPoint struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Target   string `json:"target"`
	Priority int    `json:"priority"`
}

// ManifestConfig holds author-supplied configuration defaults
type ManifestConfig struct {
	Defaults map[string]interface{} `json:"defaults,omitempty"`
}

// Manifest is the immutable descriptor supplied by a plugin author
type Manifest struct {
	ID              string                 `json:"id"`
	Name            string                 `json:"name"`
	Version         string                 `json:"version"`
	Description     string                 `json:"description,omitempty"`
	Author          string                 `json:"author,omitempty"`
	APIVersion      string                 `json:"api_version"`
	MinAppVersion   string                 `json:"min_app_version,omitempty"`
	Keywords        []string               `json:"keywords,omitempty"`
	ExtensionPoints []ExtensionPoint       `json:"extension_points,omitempty"`
	Permissions     []Permission           `json:"permissions,omitempty"`
	Config          ManifestConfig         `json:"config,omitempty"`
	CreatedAt       time.Time              `json:"created_at,omitempty"`
	UpdatedAt       time.Time              `json:"updated_at,omitempty"`
}

// HasPermission reports whether the manifest declares the given type.
// The effective grant set is exactly the declared set; Required only
// affects install-time UX, never enforcement.
func (m *Manifest) HasPermission(t PermissionType) bool {
	for _, p := range m.Permissions {
		if p.Type == t {
			return true
		}
	}
	return false
}

// UsageStats tracks plugin usage across activations and upgrades
type UsageStats struct {
	Activations int        `json:"activations"`
	LastUsed    *time.Time `json:"last_used,omitempty"`
}

// Plugin is the registry record wrapping a manifest with runtime state
type Plugin struct {
	Manifest   Manifest      `json:"manifest"`
	Code       string        `json:"code"`
	Enabled    bool          `json:"enabled"`
	State      PluginState   `json:"state"`
	ErrorCount int           `json:"error_count"`
	LoadTime   time.Duration `json:"load_time"`
	UsageStats UsageStats    `json:"usage_stats"`
	InstalledAt time.Time    `json:"installed_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// IsLoaded reports whether code parsed and entry points resolved
func (p *Plugin) IsLoaded() bool {
	return p.State == StateLoaded || p.State == StateActive || p.State == StateInactive
}

// IsActive reports whether activate() has run and deactivate() has not
func (p *Plugin) IsActive() bool {
	return p.State == StateActive
}

// Bundle is the two-part install/export unit exchanged with the store
// and the import path: a manifest plus a code payload.
type Bundle struct {
	Manifest Manifest `json:"manifest"`
	Code     string   `json:"code"`
}

// PluginStats contains runtime manager statistics
type PluginStats struct {
	TotalPlugins  int            `json:"total_plugins"`
	ActivePlugins int            `json:"active_plugins"`
	FailedPlugins int            `json:"failed_plugins"`
	States        map[string]int `json:"states"`
}
