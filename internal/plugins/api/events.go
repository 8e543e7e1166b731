package api

import (
	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/loomworks/worldloom/backend/internal/shared/errs"
	"github.com/loomworks/worldloom/backend/internal/shared/types"
)

// on subscribes a plugin handler to a host event. The bus-side handler
// goes through the lifecycle wrapper so cross-goroutine deliveries take
// the plugin's lock before entering the VM; a second, raw reference is
// kept for inline self-delivery on emit.
func (h *Handle) on(eventName string, handler goja.Value) error {
	if err := h.guard(""); err != nil {
		return err
	}

	fn, ok := h.cfg.Runtime.AssertCallable(handler)
	if !ok {
		return errs.New(errs.KindActivation, h.cfg.PluginID, "event handler for %q is not a function", eventName)
	}

	h.cfg.Bus.Subscribe(h.cfg.PluginID, eventName, h.cfg.WrapHandler(fn))

	h.mu.Lock()
	h.selfSubs[eventName] = append(h.selfSubs[eventName], fn)
	h.mu.Unlock()
	return nil
}

// emit publishes a plugin-originated event. The emitter's own handlers
// run inline, inside its current execution context, so the per-plugin
// lock held by the surrounding call is never re-entered; every other
// subscriber is reached through the bus.
func (h *Handle) emit(eventName string, payload interface{}) error {
	if err := h.guard(""); err != nil {
		return err
	}

	event := types.Event{Name: eventName, Payload: payload}

	h.mu.Lock()
	own := append([]goja.Callable(nil), h.selfSubs[eventName]...)
	h.mu.Unlock()

	for _, fn := range own {
		if err := h.cfg.Runtime.CallHandler(fn, event); err != nil {
			h.log.Warn("self-delivered handler failed", zap.String("event", eventName), zap.Error(err))
			h.recordError(errs.Wrap(errs.KindActivation, h.cfg.PluginID, err, "event handler failed"))
		}
	}

	h.cfg.Bus.PublishExcept(h.cfg.PluginID, event)
	return nil
}

// Convenience subscriptions, thin wrappers over on

func (h *Handle) onCharacterCreated(handler goja.Value) error {
	return h.on(types.EventCharacterCreated, handler)
}

func (h *Handle) onWorldChanged(handler goja.Value) error {
	return h.on(types.EventWorldSwitched, handler)
}

func (h *Handle) onNoteCreated(handler goja.Value) error {
	return h.on(types.EventNoteCreated, handler)
}
