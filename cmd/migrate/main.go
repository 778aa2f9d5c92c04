package main

import (
	"errors"
	"flag"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"

	"github.com/hackgods/conversational-appointment-booking/internal/db"
	"github.com/hackgods/conversational-appointment-booking/internal/logger"
)

func main() {
	steps := flag.Int("steps", 0, "migrate this many steps (negative rolls back); 0 applies all")
	flag.Parse()

	_ = godotenv.Load()
	log := logger.New(logger.Config{PrettyFormat: true, Service: "migrate"})

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal().Msg("POSTGRES_DSN is required")
	}

	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "up"
	}

	m, err := db.NewMigrator(dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("migrator setup failed")
	}
	defer func() { _, _ = m.Close() }()

	switch cmd {
	case "up":
		if *steps != 0 {
			err = m.Steps(*steps)
		} else {
			err = m.Up()
		}
	case "down":
		if *steps != 0 {
			err = m.Steps(-abs(*steps))
		} else {
			err = m.Down()
		}
	case "version":
		v, dirty, verr := m.Version()
		if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
			log.Fatal().Err(verr).Msg("read version failed")
		}
		log.Info().Uint("version", v).Bool("dirty", dirty).Msg("schema version")
		return
	default:
		log.Fatal().Str("command", cmd).Msg("unknown command, want up, down or version")
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal().Err(err).Str("command", cmd).Msg("migration failed")
	}
	log.Info().Str("command", cmd).Msg("migrations done")
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
