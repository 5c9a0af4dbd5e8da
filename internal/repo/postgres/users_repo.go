package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ricckyzdev/customerhub/internal/domain/user"
	"github.com/ricckyzdev/customerhub/internal/observability"
)

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}

func (r *UsersRepo) List(ctx context.Context) ([]user.PublicUser, error) {
	var output []user.PublicUser

	err := r.observe("users.list", func() error {
		rows, err := r.pool.Query(ctx, `SELECT id, name, email FROM users ORDER BY id`)

		if err != nil {
			return err
		}

		defer rows.Close()

		output = make([]user.PublicUser, 0)

		for rows.Next() {
			var u user.PublicUser

			err = rows.Scan(&u.ID, &u.Name, &u.Email)

			if err != nil {
				return err
			}

			output = append(output, u)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return output, nil
}

func (r *UsersRepo) Create(ctx context.Context, name, email, passwordHash string) (user.PublicUser, error) {
	var u user.PublicUser

	err := r.observe("users.create", func() error {
		return r.pool.QueryRow(
			ctx,
			`INSERT INTO users (name, email, password)
			 VALUES ($1, $2, $3)
			 RETURNING id, name, email`,
			name, email, passwordHash,
		).Scan(&u.ID, &u.Name, &u.Email)
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return user.PublicUser{}, user.ErrEmailTaken
		}

		return user.PublicUser{}, err
	}

	return u, nil
}

func (r *UsersRepo) Update(ctx context.Context, id int, name, email, passwordHash string) (user.PublicUser, error) {
	var u user.PublicUser

	err := r.observe("users.update", func() error {
		return r.pool.QueryRow(
			ctx,
			`UPDATE users
				SET name = $2,
						email = $3,
						password = $4
			WHERE id = $1
			RETURNING id, name, email`,
			id, name, email, passwordHash,
		).Scan(&u.ID, &u.Name, &u.Email)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.PublicUser{}, user.ErrNotFound
		}

		if IsUniqueViolation(err) {
			return user.PublicUser{}, user.ErrEmailTaken
		}

		return user.PublicUser{}, err
	}

	return u, nil
}

// Delete succeeds even when nothing matched. Reporting not-found for deletes
// is an open product question; current contract says no.
func (r *UsersRepo) Delete(ctx context.Context, id int) error {
	return r.observe("users.delete", func() error {
		_, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		return err
	})
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_email", func() error {
		return r.pool.QueryRow(
			ctx,
			`SELECT id, name, email, password FROM users WHERE email = $1`,
			email,
		).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}

	return u, nil
}
