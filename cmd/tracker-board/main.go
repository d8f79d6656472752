// IVAO Tracker Board
// Live terminal view of the departures/arrivals board. Runs the tracker
// in-process, or follows a tracker-server when -url is given.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/unklstewy/ivao-tracker/internal/app"
	"github.com/unklstewy/ivao-tracker/internal/logging"
	"github.com/unklstewy/ivao-tracker/pkg/config"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	serverURL := flag.String("url", "", "Follow a tracker-server (e.g., http://localhost:8080) instead of polling the feed")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Full-screen UI: log to file only
	logCloser, err := logging.Setup(cfg.Logging, false)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logCloser.Close()

	interval := cfg.Tracker.RefreshInterval()
	var m model

	if *serverURL != "" {
		m = newModel(newRemoteSource(*serverURL), nil, interval)
	} else {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		reg, err := app.OpenRegistry(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to open airport registry: %v", err)
		}
		defer reg.Close()

		scheduler := app.NewScheduler(cfg, app.NewFeedClient(cfg, "ivao-tracker-board"), reg)
		updates, unsubscribe := scheduler.Subscribe()
		defer unsubscribe()

		go scheduler.Run(ctx)
		m = newModel(localSource{scheduler: scheduler}, updates, interval)
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

