package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies the embedded schema migrations. Already-applied migrations
// are skipped.
func Migrate(dbURL string) error {
	src, err := iofs.New(migrationsFS, "migrations")

	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, "pgx5://"+trimScheme(dbURL))

	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}

	defer m.Close()

	err = m.Up()

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// trimScheme drops the postgres:// prefix so the migrate pgx5 driver can
// attach its own scheme.
func trimScheme(dbURL string) string {
	for _, scheme := range []string{"postgres://", "postgresql://", "pgx5://"} {
		if len(dbURL) > len(scheme) && dbURL[:len(scheme)] == scheme {
			return dbURL[len(scheme):]
		}
	}

	return dbURL
}
