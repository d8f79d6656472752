// Package app wires configuration into the tracker components shared by the
// command line tools.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/unklstewy/ivao-tracker/internal/db"
	"github.com/unklstewy/ivao-tracker/internal/registry"
	"github.com/unklstewy/ivao-tracker/internal/tracker"
	"github.com/unklstewy/ivao-tracker/pkg/config"
	"github.com/unklstewy/ivao-tracker/pkg/geo"
	"github.com/unklstewy/ivao-tracker/pkg/whazzup"
)

// connectAttempts bounds the startup connection retries to PostgreSQL.
const connectAttempts = 5

// Registry is the configured airport registry plus its backing resources.
type Registry struct {
	registry.Registry
	database *db.DB
}

// OpenRegistry opens the configured registry backend, creates the schema
// when needed and inserts the configured seed airports.
func OpenRegistry(ctx context.Context, cfg *config.Config) (*Registry, error) {
	reg := &Registry{}

	switch cfg.Registry.Backend {
	case config.RegistryMemory:
		reg.Registry = registry.NewMemory()
		log.Println("✓ Using in-memory airport registry")

	case config.RegistryPostgres:
		database, err := db.ReconnectWithRetry(ctx, cfg.Database, connectAttempts, time.Second)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.InitSchema(ctx); err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
		reg.database = database
		reg.Registry = db.NewAirportRepository(database)
		log.Printf("✓ Database connected (%s@%s:%d/%s)",
			cfg.Database.Username, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)

	default:
		return nil, fmt.Errorf("unknown registry backend %q", cfg.Registry.Backend)
	}

	added, err := registry.Seed(ctx, reg, SeedAirports(cfg.Registry.Airports))
	if err != nil {
		reg.Close()
		return nil, err
	}
	if added > 0 {
		log.Printf("✓ Seeded %d airports", added)
	}

	return reg, nil
}

// Health reports whether the registry backend is reachable.
func (r *Registry) Health(ctx context.Context) error {
	if r.database == nil {
		return nil
	}
	if !db.HealthCheck(ctx, r.database) {
		return errors.New("database health check failed")
	}
	return nil
}

// Stats reports registry size and, for PostgreSQL, connection pool usage.
func (r *Registry) Stats(ctx context.Context) (map[string]interface{}, error) {
	if r.database != nil {
		return r.database.GetStats(ctx)
	}

	airports, err := r.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list airports: %w", err)
	}
	return map[string]interface{}{"tracked_airports": len(airports)}, nil
}

// Close releases the database connection, if any.
func (r *Registry) Close() error {
	if r.database == nil {
		return nil
	}
	return r.database.Close()
}

// SeedAirports converts configured seeds into registry records.
func SeedAirports(seeds []config.AirportSeed) []registry.Airport {
	airports := make([]registry.Airport, 0, len(seeds))
	for _, s := range seeds {
		airports = append(airports, registry.Airport{
			ICAO:       s.ICAO,
			Coordinate: geo.Coordinate{Latitude: s.Latitude, Longitude: s.Longitude},
		})
	}
	return airports
}

// NewFeedClient creates the whazzup client from the feed section.
func NewFeedClient(cfg *config.Config, userAgent string) *whazzup.Client {
	ua := cfg.Feed.UserAgent
	if ua == "" {
		ua = userAgent
	}
	return whazzup.NewClient(whazzup.Config{
		URL:         cfg.Feed.URL,
		Timeout:     cfg.Feed.Timeout(),
		MinInterval: cfg.Feed.MinInterval(),
		UserAgent:   ua,
	})
}

// NewPipeline creates the refresh pipeline from the tracker section.
func NewPipeline(cfg *config.Config, source tracker.PilotSource) *tracker.Pipeline {
	return tracker.NewPipeline(source, tracker.Options{
		FallbackSpeedKnots: cfg.Tracker.FallbackSpeedKnots,
	})
}

// NewScheduler creates the refresh scheduler for a registry and feed source.
func NewScheduler(cfg *config.Config, source tracker.PilotSource, reg registry.Reader) *tracker.Scheduler {
	return tracker.NewScheduler(NewPipeline(cfg, source), reg, cfg.Tracker.RefreshInterval())
}
