package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/unklstewy/ivao-tracker/pkg/geo"
)

// TestNormalizeICAO tests code validation.
func TestNormalizeICAO(t *testing.T) {
	tests := []struct {
		in       string
		expected string
		valid    bool
	}{
		{"OJAI", "OJAI", true},
		{"ojai", "OJAI", true},
		{"  orbi ", "ORBI", true},
		{"K1G4", "K1G4", true},
		{"", "", false},
		{"JFK", "", false},
		{"KJFKX", "", false},
		{"OJ-I", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeICAO(tt.in)
			if tt.valid {
				if err != nil {
					t.Fatalf("Expected no error, got: %v", err)
				}
				if got != tt.expected {
					t.Errorf("Expected %s, got %s", tt.expected, got)
				}
				return
			}
			if !errors.Is(err, ErrInvalidICAO) {
				t.Errorf("Expected ErrInvalidICAO, got: %v", err)
			}
		})
	}
}

// TestMemoryRegistry tests the in-memory registry contract.
func TestMemoryRegistry(t *testing.T) {
	ctx := context.Background()
	reg := NewMemory(
		Airport{ICAO: "ojai", Coordinate: geo.Coordinate{Latitude: 31.7226, Longitude: 35.9932}},
		Airport{ICAO: "bad"}, // skipped
	)

	t.Run("Seeded", func(t *testing.T) {
		codes, err := reg.ListICAOCodes(ctx)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if len(codes) != 1 {
			t.Fatalf("Expected 1 code, got %d", len(codes))
		}
		if _, ok := codes["OJAI"]; !ok {
			t.Error("Expected OJAI to be registered")
		}
	})

	t.Run("Insert", func(t *testing.T) {
		a, err := reg.Insert(ctx, Airport{ICAO: "orbi", Coordinate: geo.Coordinate{Latitude: 33.2625, Longitude: 44.2346}})
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if a.ICAO != "ORBI" {
			t.Errorf("Expected ORBI, got %s", a.ICAO)
		}
		if a.ID == 0 {
			t.Error("Expected ID to be assigned")
		}
		if a.CreatedAt.IsZero() {
			t.Error("Expected CreatedAt to be set")
		}
	})

	t.Run("Duplicate", func(t *testing.T) {
		_, err := reg.Insert(ctx, Airport{ICAO: "ORBI"})
		if !errors.Is(err, ErrDuplicate) {
			t.Errorf("Expected ErrDuplicate, got: %v", err)
		}
	})

	t.Run("Lookup", func(t *testing.T) {
		c, ok, err := reg.LookupCoordinate(ctx, "orbi")
		if err != nil || !ok {
			t.Fatalf("Expected ORBI to be found, got ok=%v err=%v", ok, err)
		}
		if c.Latitude != 33.2625 {
			t.Errorf("Expected latitude 33.2625, got %f", c.Latitude)
		}

		_, ok, err = reg.LookupCoordinate(ctx, "LLBG")
		if err != nil || ok {
			t.Errorf("Expected LLBG to be missing, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("List sorted", func(t *testing.T) {
		list, err := reg.List(ctx)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if len(list) != 2 || list[0].ICAO != "OJAI" || list[1].ICAO != "ORBI" {
			t.Errorf("Unexpected list: %+v", list)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := reg.Delete(ctx, "ojai"); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if err := reg.Delete(ctx, "OJAI"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got: %v", err)
		}
	})
}

// TestTakeSnapshot tests building an immutable snapshot from a reader.
func TestTakeSnapshot(t *testing.T) {
	ctx := context.Background()
	reg := NewMemory(
		Airport{ICAO: "OJAI", Coordinate: geo.Coordinate{Latitude: 31.7226, Longitude: 35.9932}},
		Airport{ICAO: "ORBI", Coordinate: geo.Coordinate{Latitude: 33.2625, Longitude: 44.2346}},
	)

	snap, err := TakeSnapshot(ctx, reg)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if snap.Len() != 2 {
		t.Errorf("Expected 2 airports, got %d", snap.Len())
	}
	if !snap.Contains("OJAI") || !snap.Contains("orbi") {
		t.Error("Expected snapshot to contain OJAI and ORBI")
	}
	if snap.Contains("") {
		t.Error("Empty code must never match")
	}
	if c, ok := snap.Coordinate("OJAI"); !ok || c.Longitude != 35.9932 {
		t.Errorf("Expected OJAI coordinate, got %v ok=%v", c, ok)
	}

	// Later registry changes do not leak into an existing snapshot
	if err := reg.Delete(ctx, "OJAI"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !snap.Contains("OJAI") {
		t.Error("Snapshot changed after registry mutation")
	}

	codes := snap.Codes()
	if len(codes) != 2 || codes[0] != "OJAI" || codes[1] != "ORBI" {
		t.Errorf("Unexpected codes: %v", codes)
	}
}

type failingReader struct{}

func (failingReader) ListICAOCodes(ctx context.Context) (map[string]struct{}, error) {
	return nil, errors.New("connection refused")
}

func (failingReader) LookupCoordinate(ctx context.Context, icao string) (geo.Coordinate, bool, error) {
	return geo.Coordinate{}, false, nil
}

// TestTakeSnapshotError tests that reader errors are wrapped.
func TestTakeSnapshotError(t *testing.T) {
	_, err := TakeSnapshot(context.Background(), failingReader{})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
}

// TestSnapshotOf tests code-only snapshots.
func TestSnapshotOf(t *testing.T) {
	snap := SnapshotOf("ojai", "", "ORBI")
	if snap.Len() != 2 {
		t.Errorf("Expected 2 codes, got %d", snap.Len())
	}
	if _, ok := snap.Coordinate("OJAI"); ok {
		t.Error("Expected no coordinates in a code-only snapshot")
	}

	var zero Snapshot
	if zero.Contains("OJAI") {
		t.Error("Zero snapshot must be empty")
	}
}

// TestSeed tests idempotent seeding.
func TestSeed(t *testing.T) {
	ctx := context.Background()
	reg := NewMemory(Airport{ICAO: "OJAI"})

	added, err := Seed(ctx, reg, []Airport{{ICAO: "OJAI"}, {ICAO: "ORBI"}})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if added != 1 {
		t.Errorf("Expected 1 airport added, got %d", added)
	}

	_, err = Seed(ctx, reg, []Airport{{ICAO: "BAD"}})
	if !errors.Is(err, ErrInvalidICAO) {
		t.Errorf("Expected ErrInvalidICAO, got: %v", err)
	}
}
