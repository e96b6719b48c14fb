package main

import (
	"os"

	"github.com/oggyb/sloi/internal/config"
	"github.com/oggyb/sloi/internal/db"
	"github.com/oggyb/sloi/internal/logger"
)

// Populates the configured database with demo profiles.
// Refuses to touch a production database unless SEED_FORCE is set.
func main() {
	cfg := config.New()
	logger.InitFromConfig(cfg)
	log := logger.L().With("component", "seed")

	if cfg.App.ENV == "production" && os.Getenv("SEED_FORCE") == "" {
		log.Error("refusing to seed a production database, set SEED_FORCE=1 to override")
		os.Exit(1)
	}

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		os.Exit(1)
	}

	if err := db.SeedTestData(database); err != nil {
		log.Error("failed to seed", "err", err)
		os.Exit(1)
	}

	log.Info("seeding completed", "driver", cfg.DB.Driver)
}
