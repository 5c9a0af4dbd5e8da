package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ricckyzdev/customerhub/internal/config"
	"github.com/ricckyzdev/customerhub/internal/repo/postgres"
	"github.com/ricckyzdev/customerhub/internal/security"
)

// EnsureAdminUser creates the bootstrap admin account and grants it the ADMIN
// role. A no-op unless both ADMIN_EMAIL and ADMIN_PASSWORD are configured.
func EnsureAdminUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	var id int

	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, cfg.AdminEmail).Scan(&id)

	switch {
	case err == nil:
		// account exists; still make sure the role link is there
	case errors.Is(err, pgx.ErrNoRows):
		hash, hashErr := security.HashPassword(cfg.AdminPassword)

		if hashErr != nil {
			return hashErr
		}

		err = pool.QueryRow(ctx,
			`INSERT INTO users (name, email, password) VALUES ($1, $2, $3) RETURNING id`,
			cfg.AdminName, cfg.AdminEmail, hash,
		).Scan(&id)

		if err != nil {
			return err
		}
	default:
		return err
	}

	roles := postgres.NewRolesRepo(pool, nil)

	return roles.Grant(ctx, id, postgres.RoleAdmin)
}
