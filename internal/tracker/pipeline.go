package tracker

import (
	"context"
	"log"
	"time"

	"github.com/unklstewy/ivao-tracker/internal/metrics"
	"github.com/unklstewy/ivao-tracker/internal/registry"
	"github.com/unklstewy/ivao-tracker/pkg/estimate"
	"github.com/unklstewy/ivao-tracker/pkg/whazzup"
)

// PilotSource provides the current pilot list. *whazzup.Client implements it.
type PilotSource interface {
	FetchPilots(ctx context.Context) ([]whazzup.Pilot, error)
}

// Options configures a Pipeline.
type Options struct {
	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time

	// FallbackSpeedKnots enables the airport-to-airport EET estimate.
	// 0 disables it.
	FallbackSpeedKnots float64
}

// Pipeline runs one refresh: fetch, filter by the registry snapshot, estimate.
type Pipeline struct {
	source PilotSource
	opts   Options
}

// NewPipeline creates a pipeline reading from source.
func NewPipeline(source PilotSource, opts Options) *Pipeline {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Pipeline{source: source, opts: opts}
}

// Refresh builds a Board for the airports in snap. A feed failure is not an
// error: it yields empty lists with Upstream set to "unavailable".
func (p *Pipeline) Refresh(ctx context.Context, snap registry.Snapshot) Board {
	now := p.opts.Clock().UTC()

	pilots, err := p.source.FetchPilots(ctx)
	if err != nil {
		log.Printf("✗ Whazzup feed unavailable: %v (empty board this cycle)", err)
		return emptyBoard(now, UpstreamUnavailable)
	}
	metrics.SetFeedPilots(len(pilots))

	estimator := &estimate.Estimator{
		Clock:              func() time.Time { return now },
		FallbackSpeedKnots: p.opts.FallbackSpeedKnots,
		Coordinates:        snap.Coordinate,
	}

	board := emptyBoard(now, UpstreamOK)
	for _, pilot := range pilots {
		flight := pilot.Flight()

		depTracked := snap.Contains(flight.DepartureID)
		arrTracked := snap.Contains(flight.ArrivalID)
		if !depTracked && !arrTracked {
			continue
		}

		est := estimator.Estimate(flight)
		if depTracked {
			board.Departures = append(board.Departures, buildRow(flight, est, Departure))
		}
		if arrTracked {
			board.Arrivals = append(board.Arrivals, buildRow(flight, est, Arrival))
		}
	}

	return board
}
