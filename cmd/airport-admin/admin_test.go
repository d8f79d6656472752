package main

import (
	"errors"
	"strings"
	"testing"

	"github.com/unklstewy/ivao-tracker/internal/registry"
	"github.com/unklstewy/ivao-tracker/pkg/geo"
)

func newTestAdmin(t *testing.T, seed ...registry.Airport) *Admin {
	t.Helper()
	a := NewAdmin(registry.NewMemory(seed...))
	if err := a.reload(); err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	return a
}

func TestReloadFillsTable(t *testing.T) {
	a := newTestAdmin(t,
		registry.Airport{ICAO: "OJAI", Coordinate: geo.Coordinate{Latitude: 31.7226, Longitude: 35.9932}},
		registry.Airport{ICAO: "ORBI", Coordinate: geo.Coordinate{Latitude: 33.2625, Longitude: 44.2346}},
	)

	if got := a.table.GetRowCount(); got != 3 {
		t.Fatalf("Expected 3 rows (header + 2), got %d", got)
	}
	if got := a.table.GetCell(1, 0).Text; got != "OJAI" {
		t.Errorf("Expected first airport OJAI, got %s", got)
	}

	ap, ok := a.selected()
	if !ok || ap.ICAO != "OJAI" {
		t.Errorf("Expected OJAI selected, got %+v (ok=%v)", ap, ok)
	}
}

func TestAddAirport(t *testing.T) {
	tests := []struct {
		name    string
		icao    string
		lat     string
		lon     string
		wantErr string
	}{
		{name: "valid", icao: " ojai ", lat: "31.7226", lon: "35.9932"},
		{name: "bad latitude", icao: "ORBI", lat: "north", lon: "44.2", wantErr: "invalid latitude"},
		{name: "bad longitude", icao: "ORBI", lat: "33.2", lon: "", wantErr: "invalid longitude"},
		{name: "out of range", icao: "ORBI", lat: "95", lon: "44.2", wantErr: "out of range"},
		{name: "bad icao", icao: "OJ", lat: "33.2", lon: "44.2", wantErr: "invalid ICAO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAdmin(t)
			airport, err := a.addAirport(tt.icao, tt.lat, tt.lon)

			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if airport.ICAO != "OJAI" {
				t.Errorf("Expected ICAO OJAI, got %s", airport.ICAO)
			}
			if len(a.airports) != 1 {
				t.Errorf("Expected 1 airport after add, got %d", len(a.airports))
			}
		})
	}
}

func TestAddDuplicateAirport(t *testing.T) {
	a := newTestAdmin(t, registry.Airport{ICAO: "OJAI", Coordinate: geo.Coordinate{Latitude: 31.7, Longitude: 35.9}})

	_, err := a.addAirport("ojai", "31.7", "35.9")
	if err == nil || !strings.Contains(err.Error(), "already tracked") {
		t.Errorf("Expected duplicate error, got %v", err)
	}
}

func TestDeleteAirport(t *testing.T) {
	a := newTestAdmin(t, registry.Airport{ICAO: "OJAI", Coordinate: geo.Coordinate{Latitude: 31.7, Longitude: 35.9}})

	if err := a.deleteAirport("OJAI"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(a.airports) != 0 {
		t.Errorf("Expected empty registry, got %d airports", len(a.airports))
	}
	if err := a.deleteAirport("OJAI"); !errors.Is(err, registry.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDetailsTextOrdersByDistance(t *testing.T) {
	ojai := registry.Airport{ICAO: "OJAI", Coordinate: geo.Coordinate{Latitude: 31.7226, Longitude: 35.9932}}
	airports := []registry.Airport{
		ojai,
		{ICAO: "ORBI", Coordinate: geo.Coordinate{Latitude: 33.2625, Longitude: 44.2346}},
		{ICAO: "OJAM", Coordinate: geo.Coordinate{Latitude: 31.9726, Longitude: 35.9916}},
	}

	text := detailsText(ojai, airports)

	near := strings.Index(text, "OJAM")
	far := strings.Index(text, "ORBI")
	if near < 0 || far < 0 {
		t.Fatalf("Expected both legs in details, got %q", text)
	}
	if near > far {
		t.Errorf("Expected OJAM listed before ORBI")
	}
}

func TestActivityLogLimit(t *testing.T) {
	l := NewActivityLog(2)
	l.Info("one")
	l.Warn("two")
	l.Error("three")

	entries := l.Entries()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Message != "two" || entries[1].Severity != SeverityError {
		t.Errorf("Unexpected entries: %+v", entries)
	}
}
