package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ricckyzdev/customerhub/internal/observability"
)

const RoleAdmin = "ADMIN"

type RolesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewRolesRepo(pool *pgxpool.Pool, prom *observability.Prom) *RolesRepo {
	return &RolesRepo{pool: pool, prom: prom}
}

func (r *RolesRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

// HasRole reports whether the user holds the named role.
func (r *RolesRepo) HasRole(ctx context.Context, userID int, role string) (bool, error) {
	var has bool

	err := r.observe("roles.has_role", func() error {
		return r.pool.QueryRow(
			ctx,
			`SELECT EXISTS (
				SELECT 1
				FROM user_roles ur
				JOIN roles r ON ur.role_id = r.id
				WHERE ur.user_id = $1 AND r.name = $2
			)`,
			userID, role,
		).Scan(&has)
	})

	if err != nil {
		return false, err
	}

	return has, nil
}

// Grant ensures the role exists and links it to the user. Used by the admin
// bootstrap; both statements are idempotent.
func (r *RolesRepo) Grant(ctx context.Context, userID int, role string) error {
	return r.observe("roles.grant", func() error {
		var roleID int

		err := r.pool.QueryRow(
			ctx,
			`INSERT INTO roles (name) VALUES ($1)
			 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			 RETURNING id`,
			role,
		).Scan(&roleID)

		if err != nil {
			return err
		}

		_, err = r.pool.Exec(
			ctx,
			`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			userID, roleID,
		)

		return err
	})
}
