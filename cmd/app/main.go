package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/SeekerKids/forecast-prophet-kp/internal/di"
	"github.com/SeekerKids/forecast-prophet-kp/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	log.Printf("env=%s source=%s engine=%s dataset=%s", cfg.Environment, cfg.Source.Type, cfg.Engine.Type, cfg.Batch.Dataset)

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Run blocks until SIGINT/SIGTERM
	err = app.Run(context.Background())
	cleanup()
	if err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
