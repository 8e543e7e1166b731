package http

import (
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/loomworks/worldloom/backend/internal/plugins/bundle"
	"github.com/loomworks/worldloom/backend/internal/shared/errs"
	"github.com/loomworks/worldloom/backend/internal/shared/types"
)

// ListPlugins lists every installed plugin
func (h *Handlers) ListPlugins(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"plugins": h.registry.List(),
		"stats":   h.registry.Stats(),
	})
}

// GetPlugin returns one registry record
func (h *Handlers) GetPlugin(c *gin.Context) {
	p, ok := h.registry.Get(c.Param("id"))
	if !ok {
		fail(c, errs.New(errs.KindNotFound, c.Param("id"), "not installed"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"plugin": p})
}

// SearchPlugins searches installed plugins by name, description or keyword
func (h *Handlers) SearchPlugins(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q parameter is required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"plugins": h.registry.Search(query)})
}

// InstallPlugin validates and installs a manifest + code pair
func (h *Handlers) InstallPlugin(c *gin.Context) {
	var req types.InstallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	raw, err := sonic.Marshal(req.Manifest)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.lifecycle.Install(c.Request.Context(), raw, req.Code)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"plugin": p})
}

// UninstallPlugin removes a plugin and its stored data
func (h *Handlers) UninstallPlugin(c *gin.Context) {
	if err := h.lifecycle.Uninstall(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"uninstalled": true})
}

// LoadPlugin parses the plugin's code and resolves entry points
func (h *Handlers) LoadPlugin(c *gin.Context) {
	if err := h.lifecycle.Load(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"loaded": true})
}

// ActivatePlugin runs the plugin's activate entry point
func (h *Handlers) ActivatePlugin(c *gin.Context) {
	if err := h.lifecycle.Activate(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activated": true})
}

// DeactivatePlugin tears the plugin down
func (h *Handlers) DeactivatePlugin(c *gin.Context) {
	if err := h.lifecycle.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deactivated": true})
}

// ReloadPlugin reloads the plugin's code, forgiving past failures
func (h *Handlers) ReloadPlugin(c *gin.Context) {
	if err := h.lifecycle.Reload(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reloaded": true})
}

// SetPluginEnabled toggles a plugin on or off
func (h *Handlers) SetPluginEnabled(c *gin.Context) {
	var req struct {
		Enabled *bool `json:"enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.lifecycle.SetEnabled(c.Request.Context(), c.Param("id"), *req.Enabled); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": *req.Enabled})
}

// ExportPlugin streams a plugin as a portable archive
func (h *Handlers) ExportPlugin(c *gin.Context) {
	id := c.Param("id")
	p, ok := h.registry.Get(id)
	if !ok {
		fail(c, errs.New(errs.KindNotFound, id, "not installed"))
		return
	}

	data, err := bundle.Export(p)
	if err != nil {
		fail(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s-%s.wlplugin", p.Manifest.ID, p.Manifest.Version))
	c.Data(http.StatusOK, "application/gzip", data)
}

// ImportPlugin installs a previously exported archive, restoring the
// usage stats that traveled with it.
func (h *Handlers) ImportPlugin(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil || len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "archive body is required"})
		return
	}

	b, stats, err := bundle.Import(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.lifecycle.InstallBundle(c.Request.Context(), b)
	if err != nil {
		fail(c, err)
		return
	}

	// Imported archives carry their history with them
	p.UsageStats = *stats
	if err := h.registry.Update(c.Request.Context(), p); err != nil {
		fail(c, err)
		return
	}

	h.log.Info("plugin imported",
		zap.String("plugin_id", p.Manifest.ID),
		zap.String("version", p.Manifest.Version))
	c.JSON(http.StatusCreated, gin.H{"plugin": p})
}

// ExportRegistry streams every installed plugin as one archive
func (h *Handlers) ExportRegistry(c *gin.Context) {
	data, err := bundle.ExportAll(h.registry.List())
	if err != nil {
		fail(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=worldloom-plugins.wlregistry")
	c.Data(http.StatusOK, "application/gzip", data)
}

// ImportRegistry installs every plugin from a registry-wide archive.
// Each entry passes through manifest validation; the first rejected
// entry aborts the import with entries before it already installed.
func (h *Handlers) ImportRegistry(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil || len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "archive body is required"})
		return
	}

	entries, err := bundle.ImportAll(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	imported := make([]*types.Plugin, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		p, err := h.lifecycle.InstallBundle(c.Request.Context(), &e.Bundle)
		if err != nil {
			fail(c, err)
			return
		}
		p.UsageStats = e.UsageStats
		if err := h.registry.Update(c.Request.Context(), p); err != nil {
			fail(c, err)
			return
		}
		imported = append(imported, p)
	}

	h.log.Info("registry imported", zap.Int("plugins", len(imported)))
	c.JSON(http.StatusCreated, gin.H{"plugins": imported, "imported": len(imported)})
}
