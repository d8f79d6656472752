// IVAO Tracker Server
// Polls the whazzup feed and serves the departures/arrivals board over HTTP.
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/unklstewy/ivao-tracker/internal/app"
	"github.com/unklstewy/ivao-tracker/internal/logging"
	"github.com/unklstewy/ivao-tracker/pkg/config"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	port := flag.String("port", "", "HTTP server port (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	logCloser, err := logging.Setup(cfg.Logging, true)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logCloser.Close()

	log.Println("===========================================")
	log.Println("  IVAO Tracker Server")
	log.Println("===========================================")
	log.Printf("Configuration loaded from: %s", *configPath)
	log.Printf("Feed: %s (timeout %v)", cfg.Feed.URL, cfg.Feed.Timeout())
	log.Printf("Refresh interval: %v", cfg.Tracker.RefreshInterval())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg, err := app.OpenRegistry(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open airport registry: %v", err)
	}
	defer reg.Close()

	client := app.NewFeedClient(cfg, "ivao-tracker-server")
	scheduler := app.NewScheduler(cfg, client, reg)

	go scheduler.Run(ctx)

	srv := NewServer(scheduler, reg, reg, cfg.Server.AllowedOrigins)
	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Feed.Timeout() + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("✓ Server listening on %s", httpServer.Addr)

		var err error
		if cfg.Server.TLSEnabled {
			err = httpServer.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("✓ Server stopped")
}
