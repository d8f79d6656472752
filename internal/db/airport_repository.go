package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/unklstewy/ivao-tracker/internal/registry"
	"github.com/unklstewy/ivao-tracker/pkg/geo"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

// readRetries is how often a snapshot read is retried after a dropped connection.
const readRetries = 2

// AirportRepository stores tracked airports in the ivao_airports table.
// It implements registry.Registry.
type AirportRepository struct {
	db *DB
}

var _ registry.Registry = (*AirportRepository)(nil)

// NewAirportRepository creates a new airport repository.
func NewAirportRepository(db *DB) *AirportRepository {
	return &AirportRepository{db: db}
}

// ListICAOCodes returns the set of tracked ICAO codes.
// Dropped connections are retried so one broken pooled connection does not
// freeze the tracker on its previous snapshot.
func (r *AirportRepository) ListICAOCodes(ctx context.Context) (map[string]struct{}, error) {
	var codes map[string]struct{}
	err := WithRetry(ctx, func() error {
		var err error
		codes, err = r.listICAOCodes(ctx)
		return err
	}, readRetries)
	return codes, err
}

func (r *AirportRepository) listICAOCodes(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT icao_code FROM ivao_airports`)
	if err != nil {
		return nil, fmt.Errorf("failed to query airports: %w", err)
	}
	defer rows.Close()

	codes := make(map[string]struct{})
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan airport: %w", err)
		}
		codes[strings.ToUpper(strings.TrimSpace(code))] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read airports: %w", err)
	}

	return codes, nil
}

// LookupCoordinate returns the coordinate of a tracked airport.
func (r *AirportRepository) LookupCoordinate(ctx context.Context, icao string) (geo.Coordinate, bool, error) {
	code, err := registry.NormalizeICAO(icao)
	if err != nil {
		return geo.Coordinate{}, false, nil
	}

	var c geo.Coordinate
	err = WithRetry(ctx, func() error {
		return r.db.QueryRowContext(ctx,
			`SELECT latitude, longitude FROM ivao_airports WHERE icao_code = $1`,
			code,
		).Scan(&c.Latitude, &c.Longitude)
	}, readRetries)

	if errors.Is(err, sql.ErrNoRows) {
		return geo.Coordinate{}, false, nil
	}
	if err != nil {
		return geo.Coordinate{}, false, fmt.Errorf("failed to get airport %s: %w", code, err)
	}

	return c, true, nil
}

// List returns all airports ordered by ICAO code.
func (r *AirportRepository) List(ctx context.Context) ([]registry.Airport, error) {
	query := `
		SELECT id, icao_code, latitude, longitude, created_at
		FROM ivao_airports
		ORDER BY icao_code ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query airports: %w", err)
	}
	defer rows.Close()

	var airports []registry.Airport
	for rows.Next() {
		var a registry.Airport
		err := rows.Scan(
			&a.ID,
			&a.ICAO,
			&a.Coordinate.Latitude,
			&a.Coordinate.Longitude,
			&a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan airport: %w", err)
		}
		airports = append(airports, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read airports: %w", err)
	}

	return airports, nil
}

// Insert registers an airport.
func (r *AirportRepository) Insert(ctx context.Context, airport registry.Airport) (registry.Airport, error) {
	code, err := registry.NormalizeICAO(airport.ICAO)
	if err != nil {
		return registry.Airport{}, err
	}
	airport.ICAO = code

	query := `
		INSERT INTO ivao_airports (icao_code, latitude, longitude)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err = r.db.QueryRowContext(ctx, query,
		airport.ICAO,
		airport.Coordinate.Latitude,
		airport.Coordinate.Longitude,
	).Scan(&airport.ID, &airport.CreatedAt)

	if isUniqueViolation(err) {
		return registry.Airport{}, registry.ErrDuplicate
	}
	if err != nil {
		return registry.Airport{}, fmt.Errorf("failed to insert airport %s: %w", code, err)
	}

	return airport, nil
}

// Delete removes an airport by ICAO code.
func (r *AirportRepository) Delete(ctx context.Context, icao string) error {
	code, err := registry.NormalizeICAO(icao)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM ivao_airports WHERE icao_code = $1`,
		code,
	)
	if err != nil {
		return fmt.Errorf("failed to delete airport %s: %w", code, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete airport %s: %w", code, err)
	}
	if affected == 0 {
		return registry.ErrNotFound
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
