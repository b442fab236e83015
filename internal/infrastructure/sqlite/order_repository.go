package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domain "github.com/Zhima-Mochi/orderpay/internal/domain/order"
	"github.com/shopspring/decimal"

	_ "modernc.org/sqlite"
)

// DriverName is the database/sql driver registered by modernc.org/sqlite.
const DriverName = "sqlite"

const timeLayout = time.RFC3339Nano

// OrderRepository persists orders in two tables, orders and order_lines.
type OrderRepository struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies migrations.
// ":memory:" gives a private in-process database.
func Open(ctx context.Context, path string) (*OrderRepository, error) {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}

	// Single writer. Also keeps a ":memory:" database on one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply migrations: %w", err)
	}
	return &OrderRepository{db: db}, nil
}

func (r *OrderRepository) Close() error {
	return r.db.Close()
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var (
		s                domain.Snapshot
		status           string
		created, updated string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, customer_id, status, created_at, updated_at FROM orders WHERE id = ?`, id,
	).Scan(&s.ID, &s.CustomerID, &status, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: load order %s: %w", id, err)
	}
	s.Status = domain.Status(status)
	if s.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("sqlite: order %s created_at: %w", id, err)
	}
	if s.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return nil, fmt.Errorf("sqlite: order %s updated_at: %w", id, err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, product_name, price, currency, quantity
		FROM order_lines WHERE order_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: load lines of %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ls    domain.LineSnapshot
			price string
		)
		if err := rows.Scan(&ls.ProductID, &ls.ProductName, &price, &ls.Currency, &ls.Quantity); err != nil {
			return nil, fmt.Errorf("sqlite: scan line of %s: %w", id, err)
		}
		if ls.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("sqlite: line price of %s: %w", id, err)
		}
		s.Lines = append(s.Lines, ls)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate lines of %s: %w", id, err)
	}

	return domain.Restore(s)
}

// Save upserts the order row and replaces its lines in one transaction.
func (r *OrderRepository) Save(ctx context.Context, o *domain.Order) (err error) {
	if o == nil || o.ID == "" {
		return errors.New("sqlite: order id is required")
	}
	s := o.Snapshot()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, customer_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			customer_id = excluded.customer_id,
			status = excluded.status,
			updated_at = excluded.updated_at`,
		s.ID, s.CustomerID, string(s.Status),
		s.CreatedAt.UTC().Format(timeLayout), s.UpdatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("sqlite: upsert order %s: %w", s.ID, err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM order_lines WHERE order_id = ?`, s.ID); err != nil {
		return fmt.Errorf("sqlite: clear lines of %s: %w", s.ID, err)
	}
	for i, l := range s.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_lines (order_id, position, product_id, product_name, price, currency, quantity)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			s.ID, i, l.ProductID, l.ProductName, l.Price.String(), l.Currency, l.Quantity,
		)
		if err != nil {
			return fmt.Errorf("sqlite: insert line %d of %s: %w", i, s.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit order %s: %w", s.ID, err)
	}
	return nil
}
