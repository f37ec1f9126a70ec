package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shop-service/internal/models"
)

type cartRepo struct {
	db DBTX
}

func NewCartRepository(pool *pgxpool.Pool) CartRepository {
	return &cartRepo{db: pool}
}

// The no-op DO UPDATE makes RETURNING yield the existing row, so two
// concurrent first touches of the same owner both get the one cart.
const (
	upsertUserCart = `
		INSERT INTO carts (user_id) VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id, user_id, session_token, created_at
	`
	upsertSessionCart = `
		INSERT INTO carts (session_token) VALUES ($1)
		ON CONFLICT (session_token) DO UPDATE SET session_token = EXCLUDED.session_token
		RETURNING id, user_id, session_token, created_at
	`
)

func scanCart(row pgx.Row) (*models.Cart, error) {
	var c models.Cart
	if err := row.Scan(&c.CartID, &c.UserID, &c.SessionToken, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *cartRepo) GetOrCreateForUser(ctx context.Context, userID int64) (*models.Cart, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: user ID must be positive", ErrInvalidInput)
	}

	cart, err := scanCart(r.db.QueryRow(ctx, upsertUserCart, userID))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to resolve cart for user %d: %w", userID, err)
	}

	return cart, nil
}

func (r *cartRepo) GetOrCreateForSession(ctx context.Context, token string) (*models.Cart, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: session token cannot be empty", ErrInvalidInput)
	}

	cart, err := scanCart(r.db.QueryRow(ctx, upsertSessionCart, token))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cart for session: %w", err)
	}

	return cart, nil
}

const cartLineColumns = `
	cl.id,
	cl.cart_id,
	cl.quantity,
	cl.added_at,
	p.id,
	p.name,
	p.slug,
	p.price,
	p.stock,
	p.available`

func scanCartLine(row pgx.Row, l *models.CartLine) error {
	return row.Scan(
		&l.LineID,
		&l.CartID,
		&l.Quantity,
		&l.AddedAt,
		&l.Product.ProductID,
		&l.Product.Name,
		&l.Product.Slug,
		&l.Product.Price,
		&l.Product.Stock,
		&l.Product.Available,
	)
}

func queryCartLines(ctx context.Context, db DBTX, sql string, args ...any) ([]models.CartLine, error) {
	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get cart lines: %w", err)
	}
	defer rows.Close()

	lines := []models.CartLine{}
	for rows.Next() {
		var l models.CartLine
		if err := scanCartLine(rows, &l); err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return lines, nil
}

func (r *cartRepo) Lines(ctx context.Context, cartID int64) ([]models.CartLine, error) {
	sql := `SELECT` + cartLineColumns + `
		FROM cart_lines cl
		JOIN products p ON p.id = cl.product_id
		WHERE cl.cart_id = $1
		ORDER BY cl.added_at, cl.id`

	return queryCartLines(ctx, r.db, sql, cartID)
}

// AddQuantity creates the line or increments an existing one for the product.
func (r *cartRepo) AddQuantity(ctx context.Context, cartID, productID int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}

	sql := `
		INSERT INTO cart_lines (cart_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity
	`

	if _, err := r.db.Exec(ctx, sql, cartID, productID, quantity); err != nil {
		if isForeignKeyViolation(err) {
			_, constraint := pgErrorCode(err)
			if constraint == "cart_lines_product_id_fkey" {
				return ErrProductNotFound
			}
			return fmt.Errorf("cart %d: %w", cartID, ErrNotFound)
		}
		return fmt.Errorf("failed to add product %d to cart %d: %w", productID, cartID, err)
	}

	return nil
}

func (r *cartRepo) SetQuantity(ctx context.Context, cartID, lineID int64, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
	}

	result, err := r.db.Exec(ctx,
		`UPDATE cart_lines SET quantity = $1 WHERE id = $2 AND cart_id = $3`,
		quantity, lineID, cartID,
	)
	if err != nil {
		return fmt.Errorf("failed to update cart line %d: %w", lineID, err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *cartRepo) DeleteLine(ctx context.Context, cartID, lineID int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM cart_lines WHERE id = $1 AND cart_id = $2`, lineID, cartID)
	if err != nil {
		return fmt.Errorf("failed to delete cart line %d: %w", lineID, err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *cartRepo) Clear(ctx context.Context, cartID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("failed to clear cart %d: %w", cartID, err)
	}
	return nil
}
