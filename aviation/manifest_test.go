// aviation/manifest_test.go
// Copyright(c) 2024-2026 aptdb contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package aviation

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-test/deep"
)

func TestManifestSaveLoad(t *testing.T) {
	m := &Manifest{
		Cycle:          "2025-01-23",
		Built:          time.Date(2025, 1, 20, 12, 0, 0, 0, time.UTC),
		Source:         "APT_AIXM.xml",
		SourceSHA256:   "abc123",
		Store:          "airports.db.zst",
		StoreSHA256:    "def456",
		Stats:          StoreStats{Airports: 19000, Heliports: 6000, Runways: 23000, Directions: 45000, Bytes: 1 << 22},
		Ingest:         IngestStats{Airports: 19000, HeuristicJoins: 2, UnmatchedAnnotations: 1},
		HeuristicJoins: []string{"RWY_BASE_END_1", "RWY_RECIPROCAL_END_2"},
	}

	var buf bytes.Buffer
	if err := m.Save(&buf); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := LoadManifest(&buf)
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}
	if diff := deep.Equal(got, m); diff != nil {
		t.Errorf("manifest mismatch: %v", diff)
	}

	path := filepath.Join(t.TempDir(), ManifestFilename)
	if err := m.SaveFile(path); err != nil {
		t.Fatalf("SaveFile() error = %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if got, err = LoadManifest(f); err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}
	if got.Cycle != m.Cycle || !got.Built.Equal(m.Built) {
		t.Errorf("LoadManifest() = %+v", got)
	}
}

func TestLoadManifestGarbage(t *testing.T) {
	if _, err := LoadManifest(bytes.NewReader([]byte("not a manifest"))); err == nil {
		t.Errorf("LoadManifest() of garbage succeeded")
	}
}
