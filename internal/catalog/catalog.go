// Package catalog loads device and model catalog files, normalizes their
// heterogeneous field names into the sizing descriptor shapes, and serves
// the device catalog as atomic read-only snapshots.
package catalog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"

	"github.com/gpusizer/gpusizer/internal/sizing"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SkipDiagnostic records a catalog entry dropped during normalization.
type SkipDiagnostic struct {
	Index  int    `json:"index"`
	Name   string `json:"name,omitempty"`
	Reason string `json:"reason"`
}

// Snapshot is one immutable, fully-normalized device catalog.
type Snapshot struct {
	Devices  []sizing.DeviceDescriptor `json:"devices"`
	Skipped  []SkipDiagnostic          `json:"skipped,omitempty"`
	Source   string                    `json:"source"`
	LoadedAt time.Time                 `json:"loaded_at"`
}

// Store serves the current device catalog snapshot. Reload swaps whole
// snapshots, so a selection pass never observes a half-updated catalog.
type Store struct {
	path string
	snap atomic.Pointer[Snapshot]
}

// NewStore returns a store reading from the given catalog file. Call Load
// before serving snapshots.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads, normalizes, and atomically publishes the catalog file.
func (s *Store) Load() error {
	snap, err := LoadDevices(s.path)
	if err != nil {
		return err
	}
	s.snap.Store(snap)
	return nil
}

// Snapshot returns the current catalog. Before the first successful Load
// it returns an empty snapshot rather than nil.
func (s *Store) Snapshot() *Snapshot {
	if snap := s.snap.Load(); snap != nil {
		return snap
	}
	return &Snapshot{Devices: []sizing.DeviceDescriptor{}, Source: s.path}
}

// Devices returns the devices of the current snapshot.
func (s *Store) Devices() []sizing.DeviceDescriptor {
	return s.Snapshot().Devices
}

// LoadDevices reads a device catalog from a JSON or CSV file. Malformed
// entries are skipped with a diagnostic, never failing the whole load.
func LoadDevices(path string) (*Snapshot, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, fmt.Errorf("load device catalog: %w", err)
	}
	snap := &Snapshot{
		Devices:  make([]sizing.DeviceDescriptor, 0, len(rows)),
		Source:   path,
		LoadedAt: time.Now().UTC(),
	}
	for i, row := range rows {
		dev, err := NormalizeDevice(row)
		if err != nil {
			diag := SkipDiagnostic{Index: i, Name: dev.Name, Reason: err.Error()}
			snap.Skipped = append(snap.Skipped, diag)
			log.Warn().Int("index", i).Str("name", dev.Name).Str("reason", diag.Reason).
				Msg("skipping malformed device catalog entry")
			continue
		}
		snap.Devices = append(snap.Devices, dev)
	}
	return snap, nil
}

// readRows decodes a catalog file into generic rows, keyed by the JSON
// field names or the CSV header.
func readRows(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		var rows []map[string]any
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return rows, nil
	case ".csv":
		return csvRows(data)
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", filepath.Ext(path))
	}
}

// csvRows maps CSV records onto the header row.
func csvRows(data []byte) ([]map[string]any, error) {
	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) < 1 {
		return nil, nil
	}
	header := records[0]
	rows := make([]map[string]any, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]any, len(header))
		for i, key := range header {
			if i < len(record) {
				row[strings.TrimSpace(key)] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
