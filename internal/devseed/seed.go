// Package devseed loads JSON fixtures used to pre-populate the in-memory
// appliance for local development and tests.
package devseed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// ConfigEntry is a single configuration path and its JSON value.
type ConfigEntry struct {
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value"`
}

// LoadConfigSeed reads a seed file from fsys. Two layouts are accepted: a
// list of {"path": ..., "value": ...} entries, or an object keyed by path.
// Entries from the object layout are returned sorted by path.
func LoadConfigSeed(fsys afero.Fs, path string) ([]ConfigEntry, error) {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("devseed: read %s: %w", path, err)
	}
	entries, err := ParseConfigSeed(data)
	if err != nil {
		return nil, fmt.Errorf("devseed: %s: %w", path, err)
	}
	return entries, nil
}

// ParseConfigSeed decodes seed data held in memory.
func ParseConfigSeed(data []byte) ([]ConfigEntry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var entries []ConfigEntry
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("decode entry list: %w", err)
		}
	case '{':
		var byPath map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &byPath); err != nil {
			return nil, fmt.Errorf("decode path map: %w", err)
		}
		entries = make([]ConfigEntry, 0, len(byPath))
		for p, v := range byPath {
			entries = append(entries, ConfigEntry{Path: p, Value: v})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	default:
		return nil, fmt.Errorf("unsupported seed layout")
	}

	for i, e := range entries {
		if strings.TrimSpace(e.Path) == "" {
			return nil, fmt.Errorf("entry %d: path is required", i)
		}
		if !strings.HasPrefix(e.Path, "/") {
			return nil, fmt.Errorf("entry %d: path %q must be absolute", i, e.Path)
		}
	}
	return entries, nil
}
