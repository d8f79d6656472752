// Package tracker turns whazzup snapshots into departure and arrival boards
// for the registered airports and keeps the latest board published.
package tracker

import (
	"time"

	"github.com/unklstewy/ivao-tracker/pkg/estimate"
)

// Upstream states reported on a Board.
const (
	UpstreamOK          = "ok"
	UpstreamUnavailable = "unavailable"

	// UpstreamPending marks the empty board published before the first cycle.
	UpstreamPending = "pending"
)

// Direction selects which list a row belongs to.
type Direction string

const (
	Departure Direction = "departure"
	Arrival   Direction = "arrival"
)

// Row is one tracked flight in one direction. From is always the departure
// aerodrome and To the arrival aerodrome; only the column order shown to
// viewers depends on the direction.
type Row struct {
	Direction      Direction `json:"direction"`
	Callsign       string    `json:"callsign"`
	From           string    `json:"from"`
	To             string    `json:"to"`
	ETD            string    `json:"etd"`
	EET            string    `json:"eet"`
	ETA            string    `json:"eta"`
	LastTrackState string    `json:"lastTrackState"`
}

// Board is the published result of one refresh cycle. A published Board is
// never modified.
type Board struct {
	Departures  []Row     `json:"departures"`
	Arrivals    []Row     `json:"arrivals"`
	GeneratedAt time.Time `json:"generatedAt"`
	Upstream    string    `json:"upstream"`
}

// emptyBoard returns a board with non-nil lists so it encodes as [] in JSON.
func emptyBoard(at time.Time, upstream string) Board {
	return Board{
		Departures:  []Row{},
		Arrivals:    []Row{},
		GeneratedAt: at,
		Upstream:    upstream,
	}
}

// buildRow is the only row constructor for both directions.
func buildRow(f estimate.Flight, est estimate.Result, dir Direction) Row {
	return Row{
		Direction:      dir,
		Callsign:       f.Callsign,
		From:           f.DepartureID,
		To:             f.ArrivalID,
		ETD:            est.ETD,
		EET:            est.EET,
		ETA:            est.ETA,
		LastTrackState: f.State(),
	}
}

// Headers returns the column titles for a direction.
//
// Departures: CALLSIGN FROM ETD TO LAST TRACK
// Arrivals:   CALLSIGN TO EET FROM LAST TRACK
func Headers(dir Direction) []string {
	if dir == Arrival {
		return []string{"CALLSIGN", "TO", "EET", "FROM", "LAST TRACK"}
	}
	return []string{"CALLSIGN", "FROM", "ETD", "TO", "LAST TRACK"}
}

// Cells returns the row values in the column order of Headers.
func (r Row) Cells() []string {
	if r.Direction == Arrival {
		return []string{r.Callsign, r.To, r.EET, r.From, r.LastTrackState}
	}
	return []string{r.Callsign, r.From, r.ETD, r.To, r.LastTrackState}
}
