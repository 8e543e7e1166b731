package manifest

import (
	"fmt"
	"regexp"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/mod/semver"

	"github.com/loomworks/worldloom/backend/internal/shared/types"
)

// ValidationError describes a single manifest defect
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Errors aggregates validation defects into a single error value
type Errors []ValidationError

func (e Errors) Error() string {
	if len(e) == 0 {
		return "manifest invalid"
	}
	msg := e[0].Error()
	if len(e) > 1 {
		msg = fmt.Sprintf("%s (and %d more)", msg, len(e)-1)
	}
	return msg
}

// idPattern restricts plugin ids to a filesystem- and key-safe charset.
// No path separators and no control characters, so ids can never collide
// with or escape storage key prefixes.
var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{1,63}$`)

// knownTargets are the extension point targets the host recognizes
var knownTargets = map[string]bool{
	"sidebar":             true,
	"toolbar":             true,
	"statusbar":           true,
	"editor.context-menu": true,
	"character.sheet":     true,
	"world.dashboard":     true,
	"note.footer":         true,
}

// Validator checks plugin manifests against the host's schema and
// version constraints. It is stateless and side-effect free.
type Validator struct {
	hostAPIVersion string
	hostAppVersion string
}

// NewValidator creates a validator for the given host versions
func NewValidator(apiVersion, appVersion string) *Validator {
	return &Validator{
		hostAPIVersion: apiVersion,
		hostAppVersion: appVersion,
	}
}

// Validate parses raw manifest JSON and runs every check, collecting all
// errors rather than stopping at the first so callers can show a complete
// report. A nil error slice means the manifest is valid.
func (v *Validator) Validate(raw []byte) (*types.Manifest, []ValidationError) {
	var m types.Manifest
	if err := sonic.Unmarshal(raw, &m); err != nil {
		return nil, []ValidationError{{Field: "manifest", Message: fmt.Sprintf("malformed JSON: %v", err)}}
	}
	if errs := v.ValidateManifest(&m); len(errs) > 0 {
		return nil, errs
	}
	return &m, nil
}

// ValidateManifest runs every check against an already-decoded manifest.
func (v *Validator) ValidateManifest(m *types.Manifest) []ValidationError {
	var errs []ValidationError
	add := func(field, format string, args ...interface{}) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// Required fields
	if m.ID == "" {
		add("id", "required field is missing")
	} else if !idPattern.MatchString(m.ID) {
		add("id", "must match %s", idPattern.String())
	}
	if m.Name == "" {
		add("name", "required field is missing")
	}
	if m.Version == "" {
		add("version", "required field is missing")
	} else if !semver.IsValid(canon(m.Version)) {
		add("version", "%q is not a valid semantic version", m.Version)
	}
	if m.APIVersion == "" {
		add("api_version", "required field is missing")
	} else if !semver.IsValid(canon(m.APIVersion)) {
		add("api_version", "%q is not a valid semantic version", m.APIVersion)
	} else if semver.Major(canon(m.APIVersion)) != semver.Major(canon(v.hostAPIVersion)) {
		add("api_version", "requires API %s, host provides %s", m.APIVersion, v.hostAPIVersion)
	}

	// Host version gate: reject manifests demanding a newer app than this one
	if m.MinAppVersion != "" {
		if !semver.IsValid(canon(m.MinAppVersion)) {
			add("min_app_version", "%q is not a valid semantic version", m.MinAppVersion)
		} else if semver.Compare(canon(m.MinAppVersion), canon(v.hostAppVersion)) > 0 {
			add("min_app_version", "requires app %s or newer, host is %s", m.MinAppVersion, v.hostAppVersion)
		}
	}

	// Permissions must come from the closed enum
	valid := make(map[types.PermissionType]bool)
	for _, t := range types.PermissionTypes() {
		valid[t] = true
	}
	for i, p := range m.Permissions {
		if !valid[p.Type] {
			add(fmt.Sprintf("permissions[%d].type", i), "unknown permission type %q", p.Type)
		}
	}

	// Extension points must reference targets the host recognizes
	for i, ep := range m.ExtensionPoints {
		if ep.ID == "" {
			add(fmt.Sprintf("extension_points[%d].id", i), "required field is missing")
		}
		if !knownTargets[ep.Target] {
			add(fmt.Sprintf("extension_points[%d].target", i), "unknown target %q", ep.Target)
		}
	}

	return errs
}

// Stamp fills manifest timestamps for a fresh install
func Stamp(m *types.Manifest) {
	now := time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
}

// canon prefixes a bare version with "v" for x/mod/semver
func canon(version string) string {
	if version == "" || version[0] == 'v' {
		return version
	}
	return "v" + version
}
