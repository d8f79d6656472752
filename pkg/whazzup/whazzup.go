// Package whazzup reads the IVAO whazzup tracker feed.
//
// The feed is a single JSON document describing every connected client. Only
// the pilot list is decoded. Every nested field is optional and upstream types
// drift between releases, so leaf values are decoded leniently: a value that
// cannot be read is treated as absent instead of failing the whole snapshot.
package whazzup

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/unklstewy/ivao-tracker/pkg/estimate"
)

// Snapshot is the top level whazzup document.
type Snapshot struct {
	UpdatedAt *Timestamp `json:"updatedAt"`
	Clients   Clients    `json:"clients"`
}

// Clients holds the connected clients by kind.
type Clients struct {
	Pilots []Pilot `json:"pilots"`
}

// Pilot is one connected pilot as reported by the feed.
type Pilot struct {
	// Callsign is the flight callsign (e.g., "RJA123")
	Callsign String `json:"callsign"`

	// FlightPlan is nil when the pilot has not filed one
	FlightPlan *FlightPlan `json:"flightPlan"`

	// LastTrack is nil before the first position report
	LastTrack *LastTrack `json:"lastTrack"`
}

// FlightPlan is the filed flight plan of a pilot.
type FlightPlan struct {
	// DepartureID is the departure aerodrome ICAO code
	DepartureID String `json:"departureId"`

	// ArrivalID is the arrival aerodrome ICAO code
	ArrivalID String `json:"arrivalId"`

	// DepartureTime is UTC seconds (epoch or seconds since midnight)
	DepartureTime Number `json:"departureTime"`

	// ArrivalTime is UTC seconds, when the feed provides it
	ArrivalTime Number `json:"arrivalTime"`

	// EET is the filed enroute time in seconds
	EET Number `json:"eet"`
}

// LastTrack is the most recent position report of a pilot.
type LastTrack struct {
	// State is the flight phase (e.g., "Boarding", "En Route", "Landed")
	State String `json:"state"`

	// GroundSpeed in knots
	GroundSpeed Number `json:"groundSpeed"`

	// ArrivalDistance is the remaining distance to the arrival airport in nautical miles
	ArrivalDistance Number `json:"arrivalDistance"`

	// Timestamp is when the position was reported
	Timestamp *Timestamp `json:"timestamp"`
}

// Flight converts the raw payload into the estimator's input. Missing plan or
// track data leaves the matching fields empty.
func (p Pilot) Flight() estimate.Flight {
	f := estimate.Flight{
		Callsign: strings.TrimSpace(string(p.Callsign)),
	}

	if fp := p.FlightPlan; fp != nil {
		f.DepartureID = normalizeICAO(string(fp.DepartureID))
		f.ArrivalID = normalizeICAO(string(fp.ArrivalID))
		f.DepartureTime = fp.DepartureTime.Ptr()
		f.DeclaredEET = fp.EET.Ptr()
	}

	if lt := p.LastTrack; lt != nil {
		f.LastTrackState = strings.TrimSpace(string(lt.State))
		f.GroundSpeed = lt.GroundSpeed.Ptr()
		f.DistanceToArrival = lt.ArrivalDistance.Ptr()
		if lt.Timestamp != nil && lt.Timestamp.Valid() {
			ts := lt.Timestamp.Time
			f.LastTrackTime = &ts
		}
	}

	return f
}

func normalizeICAO(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// String is an optional text leaf. Anything other than a JSON string decodes
// as empty.
type String string

// UnmarshalJSON implements json.Unmarshaler.
func (s *String) UnmarshalJSON(data []byte) error {
	*s = ""

	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '"' {
		return nil
	}

	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	*s = String(v)
	return nil
}

// Number is an optional numeric leaf. It accepts a JSON number, a numeric
// string, or null; anything else decodes as absent.
type Number struct {
	Value float64
	Set   bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}

	n.Value = v
	n.Set = true
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Set {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Ptr returns a pointer to the value, or nil when absent.
func (n Number) Ptr() *float64 {
	if !n.Set {
		return nil
	}
	v := n.Value
	return &v
}

// Timestamp is an optional point in time. It accepts an RFC 3339 string or
// Unix seconds; anything else decodes as the zero time.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	t.Time = time.Time{}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		if parsed, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s)); err == nil {
			t.Time = parsed.UTC()
		}
		return nil
	}

	if secs, err := strconv.ParseFloat(string(data), 64); err == nil && secs > 0 &&
		!math.IsInf(secs, 0) {
		whole, frac := math.Modf(secs)
		t.Time = time.Unix(int64(whole), int64(frac*1e9)).UTC()
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// Valid reports whether a timestamp was decoded.
func (t Timestamp) Valid() bool {
	return !t.IsZero()
}
