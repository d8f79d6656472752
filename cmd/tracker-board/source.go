package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/unklstewy/ivao-tracker/internal/tracker"
)

// boardSource supplies boards to the terminal UI.
type boardSource interface {
	Latest(ctx context.Context) (*tracker.Board, error)
	Refresh(ctx context.Context) (*tracker.Board, error)
}

// localSource reads from an in-process scheduler.
type localSource struct {
	scheduler *tracker.Scheduler
}

func (s localSource) Latest(ctx context.Context) (*tracker.Board, error) {
	return s.scheduler.Latest(), nil
}

func (s localSource) Refresh(ctx context.Context) (*tracker.Board, error) {
	return s.scheduler.RefreshNow(ctx), nil
}

// remoteSource reads from a tracker-server board API.
type remoteSource struct {
	baseURL    string
	httpClient *http.Client
}

func newRemoteSource(baseURL string) *remoteSource {
	return &remoteSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *remoteSource) Latest(ctx context.Context) (*tracker.Board, error) {
	return s.do(ctx, http.MethodGet, "/api/v1/board")
}

func (s *remoteSource) Refresh(ctx context.Context) (*tracker.Board, error) {
	return s.do(ctx, http.MethodPost, "/api/v1/board/refresh")
}

func (s *remoteSource) do(ctx context.Context, method, path string) (*tracker.Board, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach tracker server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tracker server returned status %d", resp.StatusCode)
	}

	var board tracker.Board
	if err := json.NewDecoder(resp.Body).Decode(&board); err != nil {
		return nil, fmt.Errorf("failed to decode board: %w", err)
	}
	return &board, nil
}
