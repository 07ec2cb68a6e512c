package main

import (
	"context"
	"os"
	"strings"

	_ "github.com/joho/godotenv/autoload"

	"github.com/fdg312/nutriplan/internal/config"
	"github.com/fdg312/nutriplan/internal/dbmigrate"
	"github.com/fdg312/nutriplan/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.Bootstrap()
		boot.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := logging.New(cfg)

	if len(os.Args) < 2 {
		logger.Fatal().Msgf("usage: go run ./cmd/migrate [%s]", strings.Join(dbmigrate.Commands, "|"))
	}
	command := os.Args[1]

	target, err := dbmigrate.SelectTarget(cfg, false)
	if err != nil {
		logger.Fatal().Err(err).Msg("migrate: no database")
	}
	if target.Warning != "" {
		logger.Warn().Msg("migrate: " + target.Warning)
	}
	logger.Info().Str("command", command).Str("using", target.Source).Msg("migrate: starting")

	if err := dbmigrate.Run(context.Background(), command, target.URL); err != nil {
		logger.Fatal().Err(err).Msg("migrate: failed")
	}

	logger.Info().Str("command", command).Msg("migrate: completed successfully")
}
