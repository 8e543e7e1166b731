package bundle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomworks/worldloom/backend/internal/shared/types"
)

func TestRoundTrip(t *testing.T) {
	lastUsed := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	p := &types.Plugin{
		Manifest: types.Manifest{
			ID:         "com.example.timeline",
			Name:       "Timeline View",
			Version:    "1.4.0",
			APIVersion: "1.2.0",
		},
		Code: "function activate(api) {} function deactivate() {}",
		UsageStats: types.UsageStats{
			Activations: 7,
			LastUsed:    &lastUsed,
		},
	}

	data, err := Export(p)
	require.NoError(t, err)

	b, stats, err := Import(data)
	require.NoError(t, err)
	assert.Equal(t, p.Manifest.ID, b.Manifest.ID)
	assert.Equal(t, p.Manifest.Version, b.Manifest.Version)
	assert.Equal(t, p.Code, b.Code)
	assert.Equal(t, 7, stats.Activations)
	require.NotNil(t, stats.LastUsed)
	assert.True(t, lastUsed.Equal(*stats.LastUsed))
}

func TestExportAllRoundTrip(t *testing.T) {
	lastUsed := time.Date(2026, 5, 2, 18, 0, 0, 0, time.UTC)
	plugins := []*types.Plugin{
		{
			Manifest:   types.Manifest{ID: "com.example.timeline", Name: "Timeline View", Version: "1.4.0", APIVersion: "1.2.0"},
			Code:       "function activate(api) {} function deactivate() {}",
			UsageStats: types.UsageStats{Activations: 7, LastUsed: &lastUsed},
		},
		{
			Manifest: types.Manifest{ID: "com.example.namegen", Name: "Name Generator", Version: "0.3.1", APIVersion: "1.0.0"},
			Code:     "function activate(api) {} function deactivate() {}",
		},
	}

	data, err := ExportAll(plugins)
	require.NoError(t, err)

	entries, err := ImportAll(data)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "com.example.timeline", entries[0].Bundle.Manifest.ID)
	assert.Equal(t, "com.example.namegen", entries[1].Bundle.Manifest.ID)
	assert.Equal(t, plugins[0].Code, entries[0].Bundle.Code)
	assert.Equal(t, 7, entries[0].UsageStats.Activations)
	require.NotNil(t, entries[0].UsageStats.LastUsed)
	assert.True(t, lastUsed.Equal(*entries[0].UsageStats.LastUsed))
	assert.Equal(t, 0, entries[1].UsageStats.Activations)
}

func TestExportAllEmptyRegistry(t *testing.T) {
	data, err := ExportAll(nil)
	require.NoError(t, err)

	entries, err := ImportAll(data)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestImportAllRejectsSinglePluginArchive(t *testing.T) {
	p := &types.Plugin{
		Manifest: types.Manifest{ID: "com.example.a", Name: "A", Version: "1.0.0", APIVersion: "1.2.0"},
		Code:     "function activate(api) {} function deactivate() {}",
	}
	data, err := Export(p)
	require.NoError(t, err)

	_, err = ImportAll(data)
	require.Error(t, err)
}

func TestImportAllRejectsGarbage(t *testing.T) {
	_, err := ImportAll([]byte("not gzip at all"))
	require.Error(t, err)
}

func TestImportRejectsGarbage(t *testing.T) {
	_, _, err := Import([]byte("not gzip at all"))
	require.Error(t, err)
}

func TestImportRejectsTruncated(t *testing.T) {
	p := &types.Plugin{
		Manifest: types.Manifest{ID: "com.example.a", Name: "A", Version: "1.0.0", APIVersion: "1.2.0"},
		Code:     "function activate(api) {} function deactivate() {}",
	}
	data, err := Export(p)
	require.NoError(t, err)

	_, _, err = Import(data[:len(data)/2])
	require.Error(t, err)
}
