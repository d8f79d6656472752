package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/unklstewy/ivao-tracker/internal/app"
	"github.com/unklstewy/ivao-tracker/internal/registry"
	"github.com/unklstewy/ivao-tracker/internal/tracker"
	"github.com/unklstewy/ivao-tracker/pkg/config"
	"github.com/unklstewy/ivao-tracker/pkg/geo"
	"github.com/unklstewy/ivao-tracker/pkg/whazzup"
)

// main is a test program to verify the whazzup feed integration.
// It fetches one snapshot, runs a single tracker pass over it and prints the
// resulting board.
func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	airports := flag.String("airports", "", "Comma-separated ICAO codes to track instead of the registry")
	limit := flag.Int("limit", 10, "Maximum rows to print per direction")
	flag.Parse()

	log.Println("IVAO Whazzup Feed Test")
	log.Println("=====================================")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("Warning: %v; using defaults", err)
		cfg = config.DefaultConfig()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snap, err := loadSnapshot(ctx, cfg, *airports)
	if err != nil {
		log.Fatalf("Failed to load tracked airports: %v", err)
	}
	log.Printf("Tracking %d airports: %s", snap.Len(), strings.Join(snap.Codes(), ", "))

	client := app.NewFeedClient(cfg, "ivao-tracker-check/1.0")
	log.Printf("Fetching %s ...", client.URL())

	start := time.Now()
	feed, err := client.FetchSnapshot(ctx)
	if err != nil {
		if rl, ok := whazzup.IsRateLimitError(err); ok {
			log.Fatalf("Rate limited by feed, retry after %v", rl.RetryAfter)
		}
		log.Fatalf("Failed to fetch feed: %v", err)
	}
	log.Printf("✓ Fetched in %v", time.Since(start).Round(time.Millisecond))
	if feed.UpdatedAt != nil && feed.UpdatedAt.Valid() {
		log.Printf("  Feed updated: %s (%.0fs ago)",
			feed.UpdatedAt.Format("15:04:05 UTC"), time.Since(feed.UpdatedAt.Time).Seconds())
	}

	pilots := feed.Clients.Pilots
	withPlan := 0
	for _, p := range pilots {
		if p.FlightPlan != nil {
			withPlan++
		}
	}
	log.Printf("  Pilots online: %d (%d with flight plan)", len(pilots), withPlan)

	// Reuse the fetched pilots so the pass does not hit the feed again
	pipeline := app.NewPipeline(cfg, staticPilots(pilots))
	board := pipeline.Refresh(ctx, snap)

	log.Println("=====================================")
	printRows(os.Stdout, tracker.Departure, board.Departures, *limit)
	printRows(os.Stdout, tracker.Arrival, board.Arrivals, *limit)
	printLegs(snap, board, *limit)

	log.Println("=====================================")
	log.Println("Test complete!")
}

// staticPilots serves an already fetched pilot list.
type staticPilots []whazzup.Pilot

func (s staticPilots) FetchPilots(ctx context.Context) ([]whazzup.Pilot, error) {
	return s, nil
}

func loadSnapshot(ctx context.Context, cfg *config.Config, codes string) (registry.Snapshot, error) {
	if codes != "" {
		return registry.SnapshotOf(strings.Split(codes, ",")...), nil
	}

	reg, err := app.OpenRegistry(ctx, cfg)
	if err != nil {
		return registry.Snapshot{}, err
	}
	defer reg.Close()

	return registry.TakeSnapshot(ctx, reg)
}

// printRows writes up to limit rows as aligned columns.
func printRows(out io.Writer, dir tracker.Direction, rows []tracker.Row, limit int) {
	log.Printf("%s: %d", strings.ToUpper(string(dir)), len(rows))
	if len(rows) == 0 {
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, strings.Join(tracker.Headers(dir), "\t"))
	for i, row := range rows {
		if i >= limit {
			log.Printf("... and %d more", len(rows)-limit)
			break
		}
		fmt.Fprintln(w, strings.Join(row.Cells(), "\t"))
	}
}

// printLegs shows the great-circle route of flights between two tracked
// airports with known coordinates.
func printLegs(snap registry.Snapshot, board tracker.Board, limit int) {
	printed := 0
	for _, row := range board.Departures {
		from, okFrom := snap.Coordinate(row.From)
		to, okTo := snap.Coordinate(row.To)
		if !okFrom || !okTo {
			continue
		}
		if printed == 0 {
			log.Println("ROUTES BETWEEN TRACKED AIRPORTS:")
		}
		course := geo.Bearing(from, to)
		log.Printf("  %-8s %s → %s  %.0f nm  %03.0f° (%s)",
			row.Callsign, row.From, row.To, geo.DistanceNM(from, to), course, bearingToCardinal(course))
		printed++
		if printed >= limit {
			break
		}
	}
}

// bearingToCardinal converts a course in degrees to a compass point.
func bearingToCardinal(bearing float64) string {
	directions := []string{"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
		"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW"}
	index := int((bearing + 11.25) / 22.5)
	return directions[index%16]
}
