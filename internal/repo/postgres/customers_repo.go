package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ricckyzdev/customerhub/internal/domain/customer"
	"github.com/ricckyzdev/customerhub/internal/observability"
)

type CustomersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewCustomersRepo(pool *pgxpool.Pool, prom *observability.Prom) *CustomersRepo {
	return &CustomersRepo{pool: pool, prom: prom}
}

func (r *CustomersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *CustomersRepo) List(ctx context.Context, filter customer.ListFilter) ([]customer.Customer, error) {
	var output []customer.Customer

	err := r.observe("customers.list", func() error {
		// id tiebreak keeps pages stable when rows share a created_at
		rows, err := r.pool.Query(
			ctx,
			`SELECT id, name, email, created_at
			 FROM customers
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1 OFFSET $2`,
			filter.Limit, filter.Offset(),
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		output = make([]customer.Customer, 0, filter.Limit)

		for rows.Next() {
			var c customer.Customer

			err = rows.Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt)

			if err != nil {
				return err
			}

			output = append(output, c)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return output, nil
}

// Count is the full table count, independent of pagination.
func (r *CustomersRepo) Count(ctx context.Context) (int, error) {
	var total int

	err := r.observe("customers.count", func() error {
		return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers`).Scan(&total)
	})

	if err != nil {
		return 0, err
	}

	return total, nil
}

func (r *CustomersRepo) GetByID(ctx context.Context, id int) (customer.Customer, error) {
	var c customer.Customer

	err := r.observe("customers.get_by_id", func() error {
		return r.pool.QueryRow(
			ctx,
			`SELECT id, name, email, created_at FROM customers WHERE id = $1`,
			id,
		).Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return customer.Customer{}, customer.ErrNotFound
		}

		return customer.Customer{}, err
	}

	return c, nil
}

func (r *CustomersRepo) Create(ctx context.Context, name, email string) (int, error) {
	var id int

	err := r.observe("customers.create", func() error {
		return r.pool.QueryRow(
			ctx,
			`INSERT INTO customers (name, email) VALUES ($1, $2) RETURNING id`,
			name, email,
		).Scan(&id)
	})

	if err != nil {
		return 0, err
	}

	return id, nil
}

// Update does not verify the row existed; a no-op update still reports
// success.
func (r *CustomersRepo) Update(ctx context.Context, id int, name, email string) error {
	return r.observe("customers.update", func() error {
		_, err := r.pool.Exec(
			ctx,
			`UPDATE customers SET name = $2, email = $3 WHERE id = $1`,
			id, name, email,
		)
		return err
	})
}
