package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/unklstewy/ivao-tracker/pkg/geo"
)

// Memory is an in-process Registry, used when no database is configured and
// in tests.
type Memory struct {
	mu       sync.RWMutex
	airports map[string]Airport
	nextID   int
}

// NewMemory creates a registry seeded with airports. Invalid codes are skipped.
func NewMemory(seed ...Airport) *Memory {
	m := &Memory{
		airports: make(map[string]Airport),
		nextID:   1,
	}
	for _, a := range seed {
		_, _ = m.Insert(context.Background(), a)
	}
	return m
}

// ListICAOCodes implements Reader.
func (m *Memory) ListICAOCodes(ctx context.Context) (map[string]struct{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	codes := make(map[string]struct{}, len(m.airports))
	for code := range m.airports {
		codes[code] = struct{}{}
	}
	return codes, nil
}

// LookupCoordinate implements Reader.
func (m *Memory) LookupCoordinate(ctx context.Context, icao string) (geo.Coordinate, bool, error) {
	code, err := NormalizeICAO(icao)
	if err != nil {
		return geo.Coordinate{}, false, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.airports[code]
	return a.Coordinate, ok, nil
}

// List implements Registry.
func (m *Memory) List(ctx context.Context) ([]Airport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	airports := make([]Airport, 0, len(m.airports))
	for _, a := range m.airports {
		airports = append(airports, a)
	}
	sort.Slice(airports, func(i, j int) bool {
		return airports[i].ICAO < airports[j].ICAO
	})
	return airports, nil
}

// Insert implements Registry.
func (m *Memory) Insert(ctx context.Context, airport Airport) (Airport, error) {
	code, err := NormalizeICAO(airport.ICAO)
	if err != nil {
		return Airport{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.airports[code]; exists {
		return Airport{}, ErrDuplicate
	}

	airport.ICAO = code
	airport.ID = m.nextID
	airport.CreatedAt = time.Now().UTC()
	m.nextID++
	m.airports[code] = airport

	return airport, nil
}

// Delete implements Registry.
func (m *Memory) Delete(ctx context.Context, icao string) error {
	code, err := NormalizeICAO(icao)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.airports[code]; !exists {
		return ErrNotFound
	}
	delete(m.airports, code)
	return nil
}
