package api

import (
	"go.uber.org/zap"

	"github.com/loomworks/worldloom/backend/internal/shared/types"
)

// showNotification requires the notifications grant because it reaches
// the user directly. Messages are sanitized before leaving the runtime.
func (h *Handle) showNotification(message, level string) error {
	if err := h.guard(types.PermNotifications); err != nil {
		return err
	}
	if !h.cfg.Active() {
		h.log.Warn("showNotification after deactivation ignored")
		return nil
	}

	switch level {
	case "info", "warning", "error":
	default:
		level = "info"
	}

	h.cfg.UI.ShowNotification(types.Notification{
		PluginID: h.cfg.PluginID,
		Message:  h.sanitizer.Sanitize(message),
		Level:    level,
	})
	return nil
}

func (h *Handle) showModal(spec map[string]interface{}) error {
	if err := h.guard(""); err != nil {
		return err
	}
	if !h.cfg.Active() {
		h.log.Warn("showModal after deactivation ignored")
		return nil
	}
	h.cfg.UI.ShowModal(h.cfg.PluginID, spec)
	return nil
}

// Structural UI calls carry no user data, so they need no permission.
// They are only honored while the plugin is active; afterwards they are
// logged no-ops rather than errors.
func (h *Handle) addMenuItem(spec map[string]interface{}) error {
	if err := h.guard(""); err != nil {
		return err
	}
	if !h.cfg.Active() {
		h.log.Warn("addMenuItem after deactivation ignored")
		return nil
	}

	id, _ := spec["id"].(string)
	label, _ := spec["label"].(string)
	parent, _ := spec["parent"].(string)
	h.cfg.UI.AddMenuItem(types.MenuItem{
		PluginID: h.cfg.PluginID,
		ID:       id,
		Label:    h.sanitizer.Sanitize(label),
		Parent:   parent,
	})
	h.log.Debug("menu item added", zap.String("item_id", id))
	return nil
}

func (h *Handle) addToolbarButton(spec map[string]interface{}) error {
	if err := h.guard(""); err != nil {
		return err
	}
	if !h.cfg.Active() {
		h.log.Warn("addToolbarButton after deactivation ignored")
		return nil
	}

	id, _ := spec["id"].(string)
	label, _ := spec["label"].(string)
	icon, _ := spec["icon"].(string)
	tooltip, _ := spec["tooltip"].(string)
	h.cfg.UI.AddToolbarButton(types.ToolbarButton{
		PluginID: h.cfg.PluginID,
		ID:       id,
		Label:    h.sanitizer.Sanitize(label),
		Icon:     icon,
		Tooltip:  h.sanitizer.Sanitize(tooltip),
	})
	return nil
}
