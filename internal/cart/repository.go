package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("cart not found")

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type Repository interface {
	Get(ctx context.Context, userID string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Append(ctx context.Context, userID string, it Item) (*Cart, error)
	Checkout(ctx context.Context, userID string, fn func(*Cart) error) error
	Clear(ctx context.Context, userID string) error
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) (*Cart, error) {
	c := &Cart{}
	err := r.pool.QueryRow(ctx, `SELECT id, user_id, updated_at FROM carts WHERE user_id=$1`, userID).
		Scan(&c.ID, &c.UserID, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select cart: %w", err)
	}

	if c.items, err = loadItems(ctx, r.pool, c.ID); err != nil {
		return nil, err
	}
	return c, nil
}

func loadItems(ctx context.Context, q querier, cartID string) ([]Item, error) {
	rows, err := q.Query(ctx, `
		SELECT product_name, unit_price, quantity
		FROM cart_items
		WHERE cart_id=$1
		ORDER BY position
	`, cartID)
	if err != nil {
		return nil, fmt.Errorf("select cart items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			name     string
			price    decimal.Decimal
			quantity int
		)
		if err := rows.Scan(&name, &price, &quantity); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, Item{Product: Product{Name: name, Price: price}, Quantity: quantity})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}
	return items, nil
}

// Save upserts the cart row keyed by user and replaces its items.
// A cart without an ID gets one assigned.
func (r *PostgresRepository) Save(ctx context.Context, c *Cart) error {
	if c == nil {
		return ErrNilCart
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var updatedAt time.Time
	if err := tx.QueryRow(ctx, `
		INSERT INTO carts (id, user_id, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET updated_at=now()
		RETURNING id, updated_at
	`, c.ID, c.UserID).Scan(&c.ID, &updatedAt); err != nil {
		return fmt.Errorf("upsert cart: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1`, c.ID); err != nil {
		return fmt.Errorf("delete cart items: %w", err)
	}

	for i, it := range c.items {
		if _, err := tx.Exec(ctx, `
			INSERT INTO cart_items (cart_id, position, product_name, unit_price, quantity)
			VALUES ($1, $2, $3, $4, $5)
		`, c.ID, i, it.Product.Name, it.Product.Price, it.Quantity); err != nil {
			return fmt.Errorf("insert cart item %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit cart: %w", err)
	}
	c.UpdatedAt = updatedAt
	return nil
}

// Append adds it as the last line of the user's cart, creating the cart
// when absent, and returns the stored cart. The upsert locks the cart row
// until commit, so concurrent appends and checkouts for one user serialize.
func (r *PostgresRepository) Append(ctx context.Context, userID string, it Item) (*Cart, error) {
	if err := it.validate(); err != nil {
		return nil, err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	c := &Cart{UserID: userID}
	if err := tx.QueryRow(ctx, `
		INSERT INTO carts (id, user_id, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET updated_at=now()
		RETURNING id, updated_at
	`, uuid.NewString(), userID).Scan(&c.ID, &c.UpdatedAt); err != nil {
		return nil, fmt.Errorf("upsert cart: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO cart_items (cart_id, position, product_name, unit_price, quantity)
		SELECT $1, COALESCE(MAX(position)+1, 0), $2::text, $3::numeric, $4::int
		FROM cart_items
		WHERE cart_id=$1
	`, c.ID, it.Product.Name, it.Product.Price, it.Quantity); err != nil {
		return nil, fmt.Errorf("append cart item: %w", err)
	}

	if c.items, err = loadItems(ctx, tx, c.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit cart: %w", err)
	}
	return c, nil
}

// Checkout locks the user's cart, hands it to fn and deletes it once fn
// succeeds. An error from fn rolls back and leaves the cart in place.
func (r *PostgresRepository) Checkout(ctx context.Context, userID string, fn func(*Cart) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	c := &Cart{}
	err = tx.QueryRow(ctx, `SELECT id, user_id, updated_at FROM carts WHERE user_id=$1 FOR UPDATE`, userID).
		Scan(&c.ID, &c.UserID, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock cart: %w", err)
	}
	if c.items, err = loadItems(ctx, tx, c.ID); err != nil {
		return err
	}

	if err := fn(c); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM carts WHERE id=$1`, c.ID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit checkout: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Clear(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM carts WHERE user_id=$1`, userID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}
