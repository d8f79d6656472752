package whazzup

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const samplePayload = `{
  "updatedAt": "2026-10-17T12:00:00.000Z",
  "clients": {
    "pilots": [
      {
        "callsign": "ABC123",
        "flightPlan": {"departureId": "OJAI", "arrivalId": "ORBI", "departureTime": 1700000000, "eet": 5400},
        "lastTrack": {"state": "En Route", "groundSpeed": 420, "arrivalDistance": 210.5, "timestamp": "2026-10-17T11:59:30.000Z"}
      },
      {
        "callsign": "NOPLAN1"
      },
      {
        "callsign": "STRINGS",
        "flightPlan": {"departureId": " ojai ", "arrivalId": "LLBG", "departureTime": "3600", "eet": "bogus"},
        "lastTrack": {"groundSpeed": null, "timestamp": 1792238400}
      }
    ]
  }
}`

func newTestClient(url string) *Client {
	return NewClient(Config{URL: url, MinInterval: -1})
}

// TestNewClient tests client construction defaults.
func TestNewClient(t *testing.T) {
	client := NewClient(Config{})

	if client.URL() != DefaultURL {
		t.Errorf("Expected URL %s, got %s", DefaultURL, client.URL())
	}
	if client.httpClient.Timeout != DefaultTimeout {
		t.Errorf("Expected timeout %v, got %v", DefaultTimeout, client.httpClient.Timeout)
	}
	if client.rateLimiter == nil {
		t.Error("Expected rate limiter to be initialized")
	}
}

// TestFetchPilots tests decoding of a successful response.
func TestFetchPilots(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Expected GET, got %s", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(samplePayload))
	}))
	defer server.Close()

	pilots, err := newTestClient(server.URL).FetchPilots(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(pilots) != 3 {
		t.Fatalf("Expected 3 pilots, got %d", len(pilots))
	}

	// Feed order is preserved
	if pilots[0].Callsign != "ABC123" || pilots[1].Callsign != "NOPLAN1" || pilots[2].Callsign != "STRINGS" {
		t.Errorf("Unexpected pilot order: %s, %s, %s", pilots[0].Callsign, pilots[1].Callsign, pilots[2].Callsign)
	}

	t.Run("Full record", func(t *testing.T) {
		f := pilots[0].Flight()
		if f.DepartureID != "OJAI" || f.ArrivalID != "ORBI" {
			t.Errorf("Expected OJAI->ORBI, got %s->%s", f.DepartureID, f.ArrivalID)
		}
		if f.DepartureTime == nil || *f.DepartureTime != 1700000000 {
			t.Errorf("Expected departure time 1700000000, got %v", f.DepartureTime)
		}
		if f.DeclaredEET == nil || *f.DeclaredEET != 5400 {
			t.Errorf("Expected EET 5400, got %v", f.DeclaredEET)
		}
		if f.GroundSpeed == nil || *f.GroundSpeed != 420 {
			t.Errorf("Expected ground speed 420, got %v", f.GroundSpeed)
		}
		if f.DistanceToArrival == nil || *f.DistanceToArrival != 210.5 {
			t.Errorf("Expected distance 210.5, got %v", f.DistanceToArrival)
		}
		expectedTS := time.Date(2026, 10, 17, 11, 59, 30, 0, time.UTC)
		if f.LastTrackTime == nil || !f.LastTrackTime.Equal(expectedTS) {
			t.Errorf("Expected timestamp %v, got %v", expectedTS, f.LastTrackTime)
		}
		if f.State() != "En Route" {
			t.Errorf("Expected state En Route, got %s", f.State())
		}
	})

	t.Run("No flight plan or track", func(t *testing.T) {
		f := pilots[1].Flight()
		if f.DepartureID != "" || f.ArrivalID != "" {
			t.Errorf("Expected empty ICAO codes, got %q/%q", f.DepartureID, f.ArrivalID)
		}
		if f.DepartureTime != nil || f.DeclaredEET != nil || f.GroundSpeed != nil {
			t.Error("Expected all optional values to be nil")
		}
		if f.State() != "Unknown" {
			t.Errorf("Expected state Unknown, got %s", f.State())
		}
	})

	t.Run("Lenient leaves", func(t *testing.T) {
		f := pilots[2].Flight()
		if f.DepartureID != "OJAI" {
			t.Errorf("Expected normalized OJAI, got %q", f.DepartureID)
		}
		if f.DepartureTime == nil || *f.DepartureTime != 3600 {
			t.Errorf("Expected numeric string to decode to 3600, got %v", f.DepartureTime)
		}
		if f.DeclaredEET != nil {
			t.Errorf("Expected bogus EET to be absent, got %v", *f.DeclaredEET)
		}
		if f.GroundSpeed != nil {
			t.Error("Expected null ground speed to be absent")
		}
		if f.LastTrackTime == nil || f.LastTrackTime.Unix() != 1792238400 {
			t.Errorf("Expected epoch timestamp 1792238400, got %v", f.LastTrackTime)
		}
	})
}

// TestFetchPilotsMistypedStrings tests that a wrongly typed text field only
// blanks that field instead of failing the snapshot.
func TestFetchPilotsMistypedStrings(t *testing.T) {
	payload := `{"clients": {"pilots": [
      {"callsign": "GOOD1", "flightPlan": {"departureId": "OJAI", "arrivalId": "ORBI"}},
      {"callsign": 12345, "flightPlan": {"departureId": "OJAI", "arrivalId": ["ORBI"]}},
      {"callsign": "BADSTATE", "flightPlan": {"departureId": true, "arrivalId": "ORBI"}, "lastTrack": {"state": 7}}
    ]}}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	defer server.Close()

	pilots, err := newTestClient(server.URL).FetchPilots(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(pilots) != 3 {
		t.Fatalf("Expected 3 pilots, got %d", len(pilots))
	}

	good := pilots[0].Flight()
	if good.Callsign != "GOOD1" || good.DepartureID != "OJAI" || good.ArrivalID != "ORBI" {
		t.Errorf("Expected GOOD1 OJAI->ORBI, got %+v", good)
	}

	numeric := pilots[1].Flight()
	if numeric.Callsign != "" {
		t.Errorf("Expected numeric callsign to be empty, got %q", numeric.Callsign)
	}
	if numeric.DepartureID != "OJAI" || numeric.ArrivalID != "" {
		t.Errorf("Expected OJAI->\"\", got %q->%q", numeric.DepartureID, numeric.ArrivalID)
	}

	badState := pilots[2].Flight()
	if badState.DepartureID != "" || badState.ArrivalID != "ORBI" {
		t.Errorf("Expected \"\"->ORBI, got %q->%q", badState.DepartureID, badState.ArrivalID)
	}
	if badState.State() != "Unknown" {
		t.Errorf("Expected state Unknown, got %s", badState.State())
	}
}

// TestFetchPilotsEmptyDocument verifies that a document without clients is not an error.
func TestFetchPilotsEmptyDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	pilots, err := newTestClient(server.URL).FetchPilots(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(pilots) != 0 {
		t.Errorf("Expected no pilots, got %d", len(pilots))
	}
}

// TestFetchPilotsUnavailable tests that every failure mode maps to ErrUpstreamUnavailable.
func TestFetchPilotsUnavailable(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"Server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("boom"))
		}},
		{"Not found", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}},
		{"Malformed JSON", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"clients": {"pilots": [`))
		}},
		{"Wrong shape", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"clients": {"pilots": "none"}}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, err := newTestClient(server.URL).FetchPilots(context.Background())
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !errors.Is(err, ErrUpstreamUnavailable) {
				t.Errorf("Expected ErrUpstreamUnavailable, got: %v", err)
			}
		})
	}

	t.Run("Connection refused", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		_, err := newTestClient(url).FetchPilots(context.Background())
		if !errors.Is(err, ErrUpstreamUnavailable) {
			t.Errorf("Expected ErrUpstreamUnavailable, got: %v", err)
		}
	})
}

// TestFetchPilotsTimeout verifies that a stalled upstream is cut off.
func TestFetchPilotsTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(Config{URL: server.URL, Timeout: 50 * time.Millisecond, MinInterval: -1})

	start := time.Now()
	_, err := client.FetchPilots(context.Background())
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("Expected ErrUpstreamUnavailable, got: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Expected request to time out quickly, took %v", elapsed)
	}
}

// TestFetchPilotsRateLimited tests 429 handling.
func TestFetchPilotsRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchPilots(context.Background())
	if err == nil {
		t.Fatal("Expected rate limit error, got nil")
	}

	rle, ok := IsRateLimitError(err)
	if !ok {
		t.Fatalf("Expected RateLimitError, got %T", err)
	}
	if rle.RetryAfter != 30*time.Second {
		t.Errorf("Expected RetryAfter 30s, got %v", rle.RetryAfter)
	}
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Error("Expected rate limit to match ErrUpstreamUnavailable")
	}
}

// TestFetchPilotsPacing verifies the minimum interval between requests.
func TestFetchPilotsPacing(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL, MinInterval: 200 * time.Millisecond})

	start := time.Now()
	for i := 0; i < 2; i++ {
		if _, err := client.FetchPilots(context.Background()); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
	}

	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("Expected second request to be paced, took only %v", elapsed)
	}
	if calls.Load() != 2 {
		t.Errorf("Expected 2 calls, got %d", calls.Load())
	}
}

// TestFetchPilotsCancelled verifies that a cancelled context is reported as unavailable.
func TestFetchPilotsCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(server.URL).FetchPilots(ctx)
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("Expected ErrUpstreamUnavailable, got: %v", err)
	}
}

// TestParseRetryAfter tests Retry-After header parsing.
func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		value    string
		expected time.Duration
	}{
		{"", 0},
		{"10", 10 * time.Second},
		{"0", 0},
		{"garbage", 0},
		{"Wed, 21 Oct 2015 07:28:00 GMT", 0}, // in the past
	}

	for _, tt := range tests {
		h := http.Header{}
		if tt.value != "" {
			h.Set("Retry-After", tt.value)
		}
		if got := parseRetryAfter(h); got != tt.expected {
			t.Errorf("parseRetryAfter(%q) = %v, expected %v", tt.value, got, tt.expected)
		}
	}
}
