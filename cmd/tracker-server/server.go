package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/unklstewy/ivao-tracker/internal/metrics"
	"github.com/unklstewy/ivao-tracker/internal/registry"
	"github.com/unklstewy/ivao-tracker/internal/tracker"
	"github.com/unklstewy/ivao-tracker/pkg/geo"
)

//go:embed templates/index.html
var templateFS embed.FS

// BoardSource is the published board the server reads from.
// *tracker.Scheduler implements it.
type BoardSource interface {
	Latest() *tracker.Board
	RefreshNow(ctx context.Context) *tracker.Board
	Interval() time.Duration
}

// RegistryStatus reports registry reachability and size for /healthz.
// *app.Registry implements it.
type RegistryStatus interface {
	Health(ctx context.Context) error
	Stats(ctx context.Context) (map[string]interface{}, error)
}

// Server holds the HTTP router and its dependencies
type Server struct {
	router   *chi.Mux
	board    BoardSource
	airports registry.Registry
	status   RegistryStatus
	page     *template.Template
	origins  []string
}

// NewServer creates a server and registers its routes. status may be nil.
func NewServer(board BoardSource, airports registry.Registry, status RegistryStatus, origins []string) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		board:    board,
		airports: airports,
		status:   status,
		page:     template.Must(template.ParseFS(templateFS, "templates/index.html")),
		origins:  origins,
	}
	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(metrics.Middleware)

	origins := s.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/board", s.handleGetBoard)
		r.Post("/board/refresh", s.handleRefreshBoard)
		r.Get("/departures", s.handleGetDepartures)
		r.Get("/arrivals", s.handleGetArrivals)

		r.Get("/airports", s.handleListAirports)
		r.Post("/airports", s.handleCreateAirport)
		r.Delete("/airports/{icao}", s.handleDeleteAirport)
	})

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/", s.handleIndex)
}

// Board handlers

func (s *Server) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.board.Latest())
}

func (s *Server) handleRefreshBoard(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.board.RefreshNow(r.Context()))
}

func (s *Server) handleGetDepartures(w http.ResponseWriter, r *http.Request) {
	b := s.board.Latest()
	respondRows(w, b, b.Departures)
}

func (s *Server) handleGetArrivals(w http.ResponseWriter, r *http.Request) {
	b := s.board.Latest()
	respondRows(w, b, b.Arrivals)
}

func respondRows(w http.ResponseWriter, b *tracker.Board, rows []tracker.Row) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"rows":        rows,
		"count":       len(rows),
		"generatedAt": b.GeneratedAt,
		"upstream":    b.Upstream,
	})
}

// Airport handlers

func (s *Server) handleListAirports(w http.ResponseWriter, r *http.Request) {
	airports, err := s.airports.List(r.Context())
	if err != nil {
		log.Printf("Error listing airports: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to list airports")
		return
	}
	if airports == nil {
		airports = []registry.Airport{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"airports": airports,
		"count":    len(airports),
	})
}

func (s *Server) handleCreateAirport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ICAO      string   `json:"icao"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		respondError(w, http.StatusBadRequest, "latitude and longitude are required")
		return
	}

	coord := geo.Coordinate{Latitude: *req.Latitude, Longitude: *req.Longitude}
	if !coord.Valid() {
		respondError(w, http.StatusBadRequest, "Coordinate out of range")
		return
	}

	airport, err := s.airports.Insert(r.Context(), registry.Airport{ICAO: req.ICAO, Coordinate: coord})
	switch {
	case errors.Is(err, registry.ErrInvalidICAO):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, registry.ErrDuplicate):
		respondError(w, http.StatusConflict, "Airport already registered")
		return
	case err != nil:
		log.Printf("Error creating airport: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to create airport")
		return
	}

	log.Printf("✓ Airport %s registered", airport.ICAO)
	respondJSON(w, http.StatusCreated, airport)
}

func (s *Server) handleDeleteAirport(w http.ResponseWriter, r *http.Request) {
	icao := chi.URLParam(r, "icao")

	err := s.airports.Delete(r.Context(), icao)
	switch {
	case errors.Is(err, registry.ErrInvalidICAO):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, registry.ErrNotFound):
		respondError(w, http.StatusNotFound, "Airport not found")
		return
	case err != nil:
		log.Printf("Error deleting airport %s: %v", icao, err)
		respondError(w, http.StatusInternalServerError, "Failed to delete airport")
		return
	}

	log.Printf("✓ Airport %s removed", icao)
	w.WriteHeader(http.StatusNoContent)
}

// System handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	b := s.board.Latest()

	registryOK := true
	var stats map[string]interface{}
	if s.status != nil {
		if err := s.status.Health(r.Context()); err != nil {
			log.Printf("Health check failed: %v", err)
			registryOK = false
		} else if stats, err = s.status.Stats(r.Context()); err != nil {
			log.Printf("Failed to read registry stats: %v", err)
		}
	}

	status, code := "ok", http.StatusOK
	if !registryOK {
		status, code = "unavailable", http.StatusServiceUnavailable
	} else if b.Upstream != tracker.UpstreamOK {
		status = "degraded"
	}

	resp := map[string]interface{}{
		"status":      status,
		"registry":    registryOK,
		"upstream":    b.Upstream,
		"lastRefresh": b.GeneratedAt,
	}
	if stats != nil {
		resp["stats"] = stats
	}
	respondJSON(w, code, resp)
}

type pageTable struct {
	ID      string
	Title   string
	Empty   string
	Headers []string
	Rows    [][]string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	b := s.board.Latest()

	data := map[string]interface{}{
		"Departures": newPageTable("departures", "Departures", "No departures", tracker.Departure, b.Departures),
		"Arrivals":   newPageTable("arrivals", "Arrivals", "No arrivals", tracker.Arrival, b.Arrivals),
		"Upstream":   b.Upstream,
		"IntervalMS": s.board.Interval().Milliseconds(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.page.Execute(w, data); err != nil {
		log.Printf("Error rendering page: %v", err)
	}
}

func newPageTable(id, title, empty string, dir tracker.Direction, rows []tracker.Row) pageTable {
	t := pageTable{ID: id, Title: title, Empty: empty, Headers: tracker.Headers(dir)}
	for _, row := range rows {
		t.Rows = append(t.Rows, row.Cells())
	}
	return t
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
