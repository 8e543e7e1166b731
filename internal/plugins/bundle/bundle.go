package bundle

import (
	"bytes"
	"fmt"
	"io"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/gzip"

	"github.com/loomworks/worldloom/backend/internal/shared/types"
)

// FormatVersion tags exported archives so future readers can detect
// incompatible layouts instead of misparsing them.
const FormatVersion = 1

// archive is the on-disk envelope around a plugin bundle
type archive struct {
	FormatVersion int              `json:"format_version"`
	Bundle        types.Bundle     `json:"bundle"`
	UsageStats    types.UsageStats `json:"usage_stats"`
}

// Entry is one plugin inside a registry-wide archive.
type Entry struct {
	Bundle     types.Bundle     `json:"bundle"`
	UsageStats types.UsageStats `json:"usage_stats"`
}

// registryArchive is the envelope around a full-registry export
type registryArchive struct {
	FormatVersion int     `json:"format_version"`
	Plugins       []Entry `json:"plugins"`
}

// Export serializes a plugin into a gzip-compressed archive. Usage
// stats travel with the export so a reimport restores them.
func Export(p *types.Plugin) ([]byte, error) {
	return compress(archive{
		FormatVersion: FormatVersion,
		Bundle:        types.Bundle{Manifest: p.Manifest, Code: p.Code},
		UsageStats:    p.UsageStats,
	})
}

// Import decodes an exported archive. The caller still runs the result
// through manifest validation before installing it.
func Import(data []byte) (*types.Bundle, *types.UsageStats, error) {
	var a archive
	if err := decompress(data, &a); err != nil {
		return nil, nil, err
	}
	if a.FormatVersion != FormatVersion {
		return nil, nil, fmt.Errorf("unsupported archive format %d", a.FormatVersion)
	}

	stats := a.UsageStats
	return &a.Bundle, &stats, nil
}

// ExportAll serializes every given plugin into one registry-wide
// archive, each entry carrying its manifest, code and usage stats.
func ExportAll(plugins []*types.Plugin) ([]byte, error) {
	entries := make([]Entry, 0, len(plugins))
	for _, p := range plugins {
		entries = append(entries, Entry{
			Bundle:     types.Bundle{Manifest: p.Manifest, Code: p.Code},
			UsageStats: p.UsageStats,
		})
	}
	return compress(registryArchive{
		FormatVersion: FormatVersion,
		Plugins:       entries,
	})
}

// ImportAll decodes a registry-wide archive into its entries. Each
// entry still goes through manifest validation before installing.
func ImportAll(data []byte) ([]Entry, error) {
	var a registryArchive
	if err := decompress(data, &a); err != nil {
		return nil, err
	}
	if a.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("unsupported archive format %d", a.FormatVersion)
	}
	// A single-plugin archive decodes cleanly but carries no plugins
	// key at all. An empty registry export carries an empty list.
	if a.Plugins == nil {
		return nil, fmt.Errorf("not a registry archive")
	}
	return a.Plugins, nil
}

func compress(v any) ([]byte, error) {
	raw, err := sonic.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode bundle: %w", err)
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("compress bundle: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress bundle: %w", err)
	}
	return buf.Bytes(), nil
}

func decompress(data []byte, v any) error {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("not a plugin archive: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return fmt.Errorf("corrupt plugin archive: %w", err)
	}
	if err := sonic.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("corrupt plugin archive: %w", err)
	}
	return nil
}
