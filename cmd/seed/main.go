// Command seed creates the schema and loads conversion edges into Postgres.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"Shade/internal/auth"
	"Shade/internal/config"
	"Shade/internal/logging"
	"Shade/internal/repo"
	"Shade/internal/units"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/shade.toml", "TOML settings file")
	file := flag.String("file", "", "conversion table to load (default: units.conversions_file, then the built-in table)")
	hash := flag.String("hash", "", "print the bcrypt hash of this password for ADMIN_PASSWORD_HASH and exit")
	flag.Parse()

	if *hash != "" {
		h, err := auth.HashPassword(*hash)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(h)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, *file, log); err != nil {
		log.Fatal("seed failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, file string, log *zap.Logger) error {
	if cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	if file == "" {
		file = cfg.Units.ConversionsFile
	}

	table := units.DefaultTable()
	if file != "" {
		t, err := units.LoadTOML(file)
		if err != nil {
			return err
		}
		table = t
	}

	db, err := repo.Open(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	store := repo.NewPostgres(db)
	if err := store.Migrate(ctx); err != nil {
		return err
	}
	added, err := repo.Seed(ctx, store, table)
	if err != nil {
		return err
	}
	log.Info("conversions seeded", zap.String("file", file), zap.Int("added", added), zap.Int("edges", table.Len()))
	return nil
}
