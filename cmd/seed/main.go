package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/bookstore-backend/internal/books"
	"github.com/angelmondragon/bookstore-backend/internal/genres"
	"github.com/angelmondragon/bookstore-backend/pkg/config"
	"github.com/angelmondragon/bookstore-backend/pkg/db"
	"github.com/angelmondragon/bookstore-backend/pkg/logger"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "seed"})
	_ = godotenv.Load()

	file := flag.String("file", "", "catalog JSON file (defaults to the embedded catalog)")
	flag.Parse()

	cfg, err := config.Load()
	requireResource(logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "seed",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithField(context.Background(), "env", cfg.App.Env)

	var payload []byte
	if *file != "" {
		payload, err = os.ReadFile(*file)
		requireResource(logg, "catalog file", err)
	}
	entries, err := books.ParseCatalog(payload)
	requireResource(logg, "catalog", err)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(logg, "database", err)
	defer dbClient.Close()

	seeder := books.NewSeeder(dbClient, books.NewRepository(dbClient.DB()), genres.NewRepository(dbClient.DB()), logg)
	inserted, err := seeder.Seed(ctx, entries)
	requireResource(logg, "seed", err)

	fmt.Printf("seeded %d books\n", inserted)
}

func requireResource(logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
