// Package estimate derives ETD, EET and ETA strings for a single flight from
// the partially populated fields the whazzup feed reports.
//
// Time base: departure times are UTC seconds and only their time of day is
// used (value modulo 86400), so a Unix epoch and a seconds-since-midnight
// value format identically. Enroute times are durations in seconds. Every
// clock value is rendered in UTC.
package estimate

import (
	"fmt"
	"math"
	"time"

	"github.com/unklstewy/ivao-tracker/pkg/geo"
)

const (
	// NotAvailable is rendered for any estimate that cannot be derived.
	NotAvailable = "N/A"

	// UnknownState is the last-track state used when the feed omits one.
	UnknownState = "Unknown"

	secondsPerDay = 24 * 60 * 60

	// maxEETSeconds caps displayed enroute times at 23:59.
	maxEETSeconds = 23*60*60 + 59*60
)

// Flight is the per-cycle view of one pilot that the estimator works from.
// Optional values are pointers; nil means the feed did not report them.
type Flight struct {
	Callsign    string
	DepartureID string
	ArrivalID   string

	// DepartureTime is UTC seconds (epoch or seconds of day).
	DepartureTime *float64

	// DeclaredEET is the filed enroute time in seconds. A value <= 0 counts
	// as not filed, so live track data is used instead.
	DeclaredEET *float64

	// GroundSpeed in knots from the last track.
	GroundSpeed *float64

	// DistanceToArrival in nautical miles from the last track.
	DistanceToArrival *float64

	// LastTrackTime is when the last track was reported.
	LastTrackTime *time.Time

	// LastTrackState, e.g. "En Route" or "Boarding". Empty means unknown.
	LastTrackState string
}

// State returns the last-track state, defaulting to "Unknown".
func (f Flight) State() string {
	if f.LastTrackState == "" {
		return UnknownState
	}
	return f.LastTrackState
}

// Result holds the three formatted estimates. Each field is either a
// formatted value or NotAvailable.
type Result struct {
	ETD string `json:"etd"`
	EET string `json:"eet"`
	ETA string `json:"eta"`
}

// CoordinateLookup resolves an ICAO code to airport coordinates.
// It is only consulted when FallbackSpeedKnots is set.
type CoordinateLookup func(icao string) (geo.Coordinate, bool)

// Estimator computes Results. The zero value is usable and reads the system
// clock; tests inject Clock.
type Estimator struct {
	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time

	// FallbackSpeedKnots enables an airport-to-airport great-circle EET at
	// this average speed when neither a declared EET nor live track data is
	// available. 0 disables it.
	FallbackSpeedKnots float64

	// Coordinates looks up airport positions for the fallback.
	Coordinates CoordinateLookup
}

// Estimate derives ETD, EET and ETA for a flight.
//
// EET precedence: declared EET, then live distance/ground speed, then the
// optional great-circle fallback. ETA is ETD+EET when both are known,
// otherwise now plus the live-track EET.
func (e *Estimator) Estimate(f Flight) Result {
	res := Result{ETD: NotAvailable, EET: NotAvailable, ETA: NotAvailable}

	depSec, hasDep := departureSecondOfDay(f.DepartureTime)
	if hasDep {
		res.ETD = FormatClock(depSec)
	}

	liveEET, hasLive := liveEnrouteSeconds(f)

	var eet float64
	hasEET := false
	switch {
	case positive(f.DeclaredEET):
		eet, hasEET = *f.DeclaredEET, true
	case hasLive:
		eet, hasEET = liveEET, true
	default:
		eet, hasEET = e.fallbackEnrouteSeconds(f)
	}
	if hasEET {
		res.EET = FormatDuration(eet)
	}

	switch {
	case hasDep && hasEET:
		res.ETA = FormatClock(depSec + eet)
	case hasLive:
		arrival := e.now().Add(time.Duration(math.Round(liveEET)) * time.Second)
		res.ETA = FormatClock(float64(arrival.Unix()))
	}

	return res
}

func (e *Estimator) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}

// fallbackEnrouteSeconds estimates EET from the great-circle distance between
// the departure and arrival airports at FallbackSpeedKnots.
func (e *Estimator) fallbackEnrouteSeconds(f Flight) (float64, bool) {
	if e.FallbackSpeedKnots <= 0 || e.Coordinates == nil {
		return 0, false
	}
	if f.DepartureID == "" || f.ArrivalID == "" {
		return 0, false
	}

	from, ok := e.Coordinates(f.DepartureID)
	if !ok || !from.Valid() {
		return 0, false
	}
	to, ok := e.Coordinates(f.ArrivalID)
	if !ok || !to.Valid() {
		return 0, false
	}

	distance := geo.DistanceNM(from, to)
	if !finitePositive(distance) {
		return 0, false
	}
	return distance / e.FallbackSpeedKnots * 3600, true
}

// liveEnrouteSeconds derives the remaining enroute time from the last track.
// All of ground speed, distance to arrival and the track timestamp must be
// present and positive.
func liveEnrouteSeconds(f Flight) (float64, bool) {
	if !positive(f.GroundSpeed) || !positive(f.DistanceToArrival) {
		return 0, false
	}
	if f.LastTrackTime == nil || f.LastTrackTime.IsZero() {
		return 0, false
	}

	// nm / kt is hours; converting both to km first gives the same value
	seconds := *f.DistanceToArrival / *f.GroundSpeed * 3600
	if !finitePositive(seconds) {
		return 0, false
	}
	return seconds, true
}

// departureSecondOfDay reduces a departure time to seconds since UTC midnight.
func departureSecondOfDay(v *float64) (float64, bool) {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		return 0, false
	}
	return math.Mod(math.Floor(*v), secondsPerDay), true
}

// FormatClock renders seconds (any magnitude, wrapped at midnight) as "HH:MM UTC".
func FormatClock(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return NotAvailable
	}
	wrapped := math.Mod(math.Floor(seconds), secondsPerDay)
	if wrapped < 0 {
		wrapped += secondsPerDay
	}
	s := int64(wrapped)
	return fmt.Sprintf("%02d:%02d UTC", s/3600, (s%3600)/60)
}

// FormatDuration renders a duration in seconds as "HH:MM", capped at 23:59.
func FormatDuration(seconds float64) string {
	if math.IsNaN(seconds) {
		return NotAvailable
	}
	clamped := math.Min(math.Max(math.Floor(seconds), 0), maxEETSeconds)
	s := int64(clamped)
	return fmt.Sprintf("%02d:%02d", s/3600, (s%3600)/60)
}

func positive(v *float64) bool {
	return v != nil && finitePositive(*v)
}

func finitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
