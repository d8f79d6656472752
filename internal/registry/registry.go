// Package registry defines the set of tracked airports.
//
// The tracker only reads the registry: once per refresh cycle it takes an
// immutable Snapshot. Mutations (Insert/Delete) come from the host's admin
// surface and become visible on the next cycle.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/unklstewy/ivao-tracker/pkg/geo"
)

var (
	// ErrNotFound is returned when an airport is not registered
	ErrNotFound = errors.New("airport not found")

	// ErrDuplicate is returned when inserting an already registered ICAO code
	ErrDuplicate = errors.New("airport already registered")

	// ErrInvalidICAO is returned for codes that are not four letters
	ErrInvalidICAO = errors.New("invalid ICAO code")
)

// Airport is a registered airport.
type Airport struct {
	ID         int            `json:"id"`
	ICAO       string         `json:"icao"`
	Coordinate geo.Coordinate `json:"coordinate"`
	CreatedAt  time.Time      `json:"createdAt"`
}

// Reader is the view of the registry consumed by the tracker.
type Reader interface {
	// ListICAOCodes returns the set of tracked ICAO codes.
	ListICAOCodes(ctx context.Context) (map[string]struct{}, error)

	// LookupCoordinate returns the coordinate of a registered airport.
	// The boolean is false when the code is not registered.
	LookupCoordinate(ctx context.Context, icao string) (geo.Coordinate, bool, error)
}

// Registry is the full airport store used by admin surfaces.
type Registry interface {
	Reader

	// List returns all airports ordered by ICAO code.
	List(ctx context.Context) ([]Airport, error)

	// Insert registers an airport. The ICAO code is normalized first.
	Insert(ctx context.Context, airport Airport) (Airport, error)

	// Delete removes an airport by ICAO code.
	Delete(ctx context.Context, icao string) error
}

// NormalizeICAO upper-cases and validates an ICAO code.
func NormalizeICAO(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 4 {
		return "", fmt.Errorf("%w: %q must be 4 letters", ErrInvalidICAO, code)
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return "", fmt.Errorf("%w: %q contains %q", ErrInvalidICAO, code, r)
		}
	}
	return code, nil
}

// Snapshot is an immutable per-cycle view of the registry.
type Snapshot struct {
	codes       map[string]struct{}
	coordinates map[string]geo.Coordinate
}

// NewSnapshot builds a snapshot from airport records.
// Codes are upper-cased; empty codes are ignored.
func NewSnapshot(airports []Airport) Snapshot {
	snap := Snapshot{
		codes:       make(map[string]struct{}, len(airports)),
		coordinates: make(map[string]geo.Coordinate, len(airports)),
	}
	for _, a := range airports {
		code := strings.ToUpper(strings.TrimSpace(a.ICAO))
		if code == "" {
			continue
		}
		snap.codes[code] = struct{}{}
		snap.coordinates[code] = a.Coordinate
	}
	return snap
}

// SnapshotOf builds a snapshot holding only codes, without coordinates.
func SnapshotOf(codes ...string) Snapshot {
	airports := make([]Airport, 0, len(codes))
	for _, c := range codes {
		airports = append(airports, Airport{ICAO: c})
	}
	snap := NewSnapshot(airports)
	snap.coordinates = map[string]geo.Coordinate{}
	return snap
}

// TakeSnapshot reads the tracked codes and their coordinates from r.
// A code whose coordinate cannot be found is still tracked; only distance
// based estimates are affected.
func TakeSnapshot(ctx context.Context, r Reader) (Snapshot, error) {
	codes, err := r.ListICAOCodes(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to list airports: %w", err)
	}

	snap := Snapshot{
		codes:       make(map[string]struct{}, len(codes)),
		coordinates: make(map[string]geo.Coordinate, len(codes)),
	}
	for code := range codes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		snap.codes[code] = struct{}{}

		coord, ok, err := r.LookupCoordinate(ctx, code)
		if err != nil {
			return Snapshot{}, fmt.Errorf("failed to look up %s: %w", code, err)
		}
		if ok {
			snap.coordinates[code] = coord
		}
	}

	return snap, nil
}

// Contains reports whether a code is tracked. The empty code never matches.
func (s Snapshot) Contains(icao string) bool {
	if icao == "" {
		return false
	}
	_, ok := s.codes[strings.ToUpper(icao)]
	return ok
}

// Coordinate returns the registered coordinate of a tracked airport.
func (s Snapshot) Coordinate(icao string) (geo.Coordinate, bool) {
	c, ok := s.coordinates[strings.ToUpper(icao)]
	return c, ok
}

// Len returns the number of tracked airports.
func (s Snapshot) Len() int {
	return len(s.codes)
}

// Codes returns the tracked codes in sorted order.
func (s Snapshot) Codes() []string {
	codes := make([]string, 0, len(s.codes))
	for c := range s.codes {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// Seed inserts airports that are not yet registered and returns how many
// were added. Already registered codes are skipped.
func Seed(ctx context.Context, reg Registry, airports []Airport) (int, error) {
	added := 0
	for _, a := range airports {
		_, err := reg.Insert(ctx, a)
		switch {
		case errors.Is(err, ErrDuplicate):
			continue
		case err != nil:
			return added, fmt.Errorf("failed to seed %s: %w", a.ICAO, err)
		}
		added++
	}
	return added, nil
}
