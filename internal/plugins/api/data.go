package api

import (
	"github.com/loomworks/worldloom/backend/internal/shared/errs"
)

// dataGuard admits a data namespace call. Host data is first-party, so
// no permission applies, but each call consumes budget from a sliding
// window; an exhausted budget fails with RateExceeded instead of
// letting one plugin starve the host.
func (h *Handle) dataGuard() error {
	if err := h.guard(""); err != nil {
		return err
	}
	if !h.limiter.Allow() {
		return errs.New(errs.KindRateExceeded, h.cfg.PluginID, "data call budget exhausted")
	}
	return nil
}

func (h *Handle) getWorlds() ([]map[string]interface{}, error) {
	if err := h.dataGuard(); err != nil {
		return nil, err
	}
	return h.cfg.Data.Worlds(), nil
}

func (h *Handle) getCurrentWorld() (map[string]interface{}, error) {
	if err := h.dataGuard(); err != nil {
		return nil, err
	}
	world, ok := h.cfg.Data.CurrentWorld()
	if !ok {
		return nil, nil
	}
	return world, nil
}

func (h *Handle) switchWorld(id string) error {
	if err := h.dataGuard(); err != nil {
		return err
	}
	return h.cfg.Data.SwitchWorld(id)
}

func (h *Handle) getCharacters() ([]map[string]interface{}, error) {
	if err := h.dataGuard(); err != nil {
		return nil, err
	}
	return h.cfg.Data.Characters(), nil
}

func (h *Handle) createCharacter(name string, fields map[string]interface{}) (map[string]interface{}, error) {
	if err := h.dataGuard(); err != nil {
		return nil, err
	}
	return h.cfg.Data.CreateCharacter(name, fields)
}

func (h *Handle) getNotes() ([]map[string]interface{}, error) {
	if err := h.dataGuard(); err != nil {
		return nil, err
	}
	return h.cfg.Data.Notes(), nil
}

func (h *Handle) createNote(title, body string) (map[string]interface{}, error) {
	if err := h.dataGuard(); err != nil {
		return nil, err
	}
	return h.cfg.Data.CreateNote(title, body)
}
