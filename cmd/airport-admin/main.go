// Airport Admin
// Terminal UI for maintaining the tracked airport registry.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/unklstewy/ivao-tracker/internal/app"
	"github.com/unklstewy/ivao-tracker/internal/logging"
	"github.com/unklstewy/ivao-tracker/pkg/config"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Registry.Backend == config.RegistryMemory {
		log.Println("Warning: memory registry selected; changes are lost on exit")
	}

	reg, err := app.OpenRegistry(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to open airport registry: %v", err)
	}
	defer reg.Close()

	// Full-screen UI: log to file only from here on
	logCloser, err := logging.Setup(cfg.Logging, false)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logCloser.Close()

	if err := NewAdmin(reg).Run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}
