package cluster

import (
	"math"
	"path/filepath"
	"testing"
)

func sampleQuakes() []*Quake {
	mag := 4.2
	return []*Quake{
		{
			ID:        "ci40123456",
			Magnitude: &mag,
			Latitude:  35.6892,
			Longitude: -117.5311,
			Depth:     8.3,
			Time:      1700001234567,
			Place:     "12km SW of Searles Valley, CA",
		},
		{
			ID:        "nc73999999",
			Latitude:  38.8012,
			Longitude: -122.7683,
			Depth:     2.1,
			Time:      1700005678901,
			Place:     "The Geysers, CA",
		},
	}
}

func assertQuakesEqual(t *testing.T, want, got []*Quake) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("Expected %d quakes, got %d", len(want), len(got))
	}
	for i := range want {
		w, g := want[i], got[i]
		if w.ID != g.ID || w.Latitude != g.Latitude || w.Longitude != g.Longitude ||
			w.Depth != g.Depth || w.Time != g.Time || w.Place != g.Place {
			t.Errorf("Quake %d mismatch: want %+v, got %+v", i, w, g)
		}
		switch {
		case w.Magnitude == nil && g.Magnitude != nil:
			t.Errorf("Quake %d: expected nil magnitude, got %f", i, *g.Magnitude)
		case w.Magnitude != nil && g.Magnitude == nil:
			t.Errorf("Quake %d: lost magnitude %f", i, *w.Magnitude)
		case w.Magnitude != nil && g.Magnitude != nil && *w.Magnitude != *g.Magnitude:
			t.Errorf("Quake %d: magnitude %f became %f", i, *w.Magnitude, *g.Magnitude)
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.zst")
	quakes := sampleQuakes()

	if err := SaveSnapshot(quakes, path); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	assertQuakesEqual(t, quakes, loaded)
}

func TestSnapshotRoundTripEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.zst")

	if err := SaveSnapshot(nil, path); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("Expected empty snapshot, got %d quakes", len(loaded))
	}
}

func TestSnapshotPreservesNonFiniteCoordinates(t *testing.T) {
	// Snapshots store what was fetched; filtering happens at index build.
	path := filepath.Join(t.TempDir(), "nan.zst")
	quakes := []*Quake{{ID: "broken", Latitude: math.NaN(), Longitude: math.NaN()}}

	if err := SaveSnapshot(quakes, path); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if len(loaded) != 1 || !math.IsNaN(loaded[0].Latitude) {
		t.Error("Expected NaN coordinates to survive the round trip")
	}
}

func TestLoadSnapshotMissingFile(t *testing.T) {
	if _, err := LoadSnapshot(filepath.Join(t.TempDir(), "nope.zst")); err == nil {
		t.Error("Expected error for missing snapshot file")
	}
}

func TestMMapSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.mmap")
	quakes := sampleQuakes()

	if err := SaveSnapshotMMap(quakes, path); err != nil {
		t.Fatalf("SaveSnapshotMMap failed: %v", err)
	}
	loaded, err := LoadSnapshotMMap(path)
	if err != nil {
		t.Fatalf("LoadSnapshotMMap failed: %v", err)
	}
	assertQuakesEqual(t, quakes, loaded)
}

func TestCompressedMMapSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.mmap.zst")
	quakes := GenerateTestQuakesSeeded(250, testBounds, 5)

	if err := SaveSnapshotCompressedMMap(quakes, path); err != nil {
		t.Fatalf("SaveSnapshotCompressedMMap failed: %v", err)
	}
	loaded, err := LoadSnapshotCompressedMMap(path)
	if err != nil {
		t.Fatalf("LoadSnapshotCompressedMMap failed: %v", err)
	}
	assertQuakesEqual(t, quakes, loaded)
}
