package api

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/loomworks/worldloom/backend/internal/kv"
	"github.com/loomworks/worldloom/backend/internal/shared/types"
)

// StoragePrefix returns the kv key space reserved for one plugin. Every
// storage namespace operation is scoped under it, so plugins can never
// read or overwrite each other's state even with identical literal keys.
func StoragePrefix(pluginID string) string {
	return "plugindata:" + pluginID + ":"
}

// ClearStorage removes every stored value for a plugin. The lifecycle
// manager calls this on uninstall.
func ClearStorage(store kv.Store, pluginID string) error {
	return kv.RemovePrefix(ctx(), store, StoragePrefix(pluginID))
}

func (h *Handle) storageKey(key string) string {
	return StoragePrefix(h.cfg.PluginID) + key
}

func (h *Handle) storageGet(key string) (interface{}, error) {
	if err := h.guard(types.PermStorage); err != nil {
		return nil, err
	}

	data, found, err := h.cfg.Store.Get(ctx(), h.storageKey(key))
	if err != nil {
		return nil, fmt.Errorf("storage read failed: %w", err)
	}
	if !found {
		return nil, nil
	}

	var value interface{}
	if err := sonic.Unmarshal(data, &value); err != nil {
		return nil, fmt.Errorf("stored value is corrupt: %w", err)
	}
	return value, nil
}

func (h *Handle) storageSet(key string, value interface{}) error {
	if err := h.guard(types.PermStorage); err != nil {
		return err
	}

	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("value is not serializable: %w", err)
	}
	if err := h.cfg.Store.Set(ctx(), h.storageKey(key), data); err != nil {
		return fmt.Errorf("storage write failed: %w", err)
	}
	return nil
}

func (h *Handle) storageRemove(key string) error {
	if err := h.guard(types.PermStorage); err != nil {
		return err
	}
	if err := h.cfg.Store.Remove(ctx(), h.storageKey(key)); err != nil {
		return fmt.Errorf("storage remove failed: %w", err)
	}
	return nil
}

func (h *Handle) storageClear() error {
	if err := h.guard(types.PermStorage); err != nil {
		return err
	}
	if err := ClearStorage(h.cfg.Store, h.cfg.PluginID); err != nil {
		return fmt.Errorf("storage clear failed: %w", err)
	}
	return nil
}
