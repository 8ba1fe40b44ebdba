package main

import (
	"context"
	"log"
	"os"

	"github.com/layer-3/keygate/internal/app"
	"github.com/layer-3/keygate/internal/config"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig(os.Args[1:], os.LookupEnv)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	a, err := app.NewApp(ctx, cfg, os.Stdout)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	if err := a.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
