package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/ignite/outreach-engine/internal/app"
	"github.com/ignite/outreach-engine/internal/config"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
	"github.com/ignite/outreach-engine/internal/repository/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (optional)")
	listOnly := flag.Bool("list", false, "list embedded migrations and exit")
	flag.Parse()

	if *listOnly {
		migrations, err := postgres.Migrations()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		for _, m := range migrations {
			fmt.Println(m.Version)
		}
		return
	}

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	app.SetupLogging(cfg.Logging)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := app.OpenDB(ctx, cfg.Database)
	if err != nil {
		logger.Error("database unavailable", "component", "migrate", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	applied, err := postgres.Migrate(ctx, db)
	if err != nil {
		logger.Error("migration failed", "component", "migrate", "error", err)
		os.Exit(1)
	}
	if len(applied) == 0 {
		logger.Info("schema up to date", "component", "migrate")
		return
	}
	logger.Info("migrations applied", "component", "migrate", "versions", applied)
}
