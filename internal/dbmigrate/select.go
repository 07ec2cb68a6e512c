package dbmigrate

import (
	"errors"

	"github.com/fdg312/nutriplan/internal/config"
)

// DefaultMigrationsDir is the embedded directory holding the profile, recipe and meal plan schema.
const DefaultMigrationsDir = "migrations"

// Env variables a migration URL can come from.
const (
	SourceDirect = "DATABASE_URL_DIRECT"
	SourceURL    = "DATABASE_URL"
	SourcePooled = "DATABASE_URL_POOLED"
)

var (
	ErrDirectRequired = errors.New("DATABASE_URL_DIRECT is required for DDL/migrations")
	ErrNoDatabase     = errors.New("no database URL configured (set DATABASE_URL_DIRECT or DATABASE_URL)")
)

// Target is the database goose migrates. Warning is set when the URL is usable but discouraged.
type Target struct {
	URL     string
	Source  string
	Warning string
}

// SelectTarget picks where the nutriplan schema is applied: DIRECT, then DATABASE_URL,
// then POOLED with a warning. Startup migrations pass requireDirect, since the API's
// pooled URL must not run DDL.
func SelectTarget(cfg *config.Config, requireDirect bool) (Target, error) {
	switch {
	case cfg.DatabaseURLDirect != "":
		return Target{URL: cfg.DatabaseURLDirect, Source: SourceDirect}, nil
	case requireDirect:
		return Target{}, ErrDirectRequired
	case cfg.DatabaseURLRaw != "":
		return Target{URL: cfg.DatabaseURLRaw, Source: SourceURL}, nil
	case cfg.DatabaseURLPooled != "":
		return Target{
			URL:     cfg.DatabaseURLPooled,
			Source:  SourcePooled,
			Warning: "using pooled connection for DDL is not recommended; set DATABASE_URL_DIRECT",
		}, nil
	}
	return Target{}, ErrNoDatabase
}
