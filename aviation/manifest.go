// aviation/manifest.go
// Copyright(c) 2024-2026 aptdb contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"fmt"
	"io"
	"time"

	"github.com/google/renameio/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// ManifestFilename is the standard filename for a store's build manifest.
const ManifestFilename = "manifest.msgpack.zst"

// Manifest describes one build of the airport store: which source it was
// built from, what it contains, and which runway ends had to be matched
// to their runways heuristically.
type Manifest struct {
	Cycle        string // publication cycle of the source data, e.g. "2025-01-23"
	Built        time.Time
	Source       string
	SourceSHA256 string
	Store        string
	StoreSHA256  string
	Stats        StoreStats
	Ingest       IngestStats

	// Runway end ids that were joined to their runway by designator
	// prefix/suffix matching rather than the explicit join table.
	HeuristicJoins []string
	// Problems found by VerifyAirports; they do not stop a build unless
	// it is run in strict mode.
	IntegrityErrors []string
}

// LoadManifest reads a manifest written by Save: msgpack, compressed with
// zstd.
func LoadManifest(r io.Reader) (*Manifest, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer zr.Close()

	var m Manifest
	if err := msgpack.NewDecoder(zr).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	return &m, nil
}

// Save writes the manifest to an io.Writer in the standard format
// (msgpack + zstd compression)
func (m *Manifest) Save(w io.Writer) error {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	defer zw.Close()

	if err := msgpack.NewEncoder(zw).Encode(m); err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to close zstd writer: %w", err)
	}

	return nil
}

// SaveFile atomically replaces the manifest at path.
func (m *Manifest) SaveFile(path string) error {
	pf, err := renameio.NewPendingFile(path)
	if err != nil {
		return err
	}
	defer pf.Cleanup()

	if err := m.Save(pf); err != nil {
		return err
	}
	return pf.CloseAtomicallyReplace()
}
