package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"shop-service/internal/models"
)

type checkoutTx struct {
	tx        pgx.Tx
	carts     *cartRepo
	movements *movementRepo
	outbox    *OutboxRepository
}

func newCheckoutTx(tx pgx.Tx) *checkoutTx {
	return &checkoutTx{
		tx:        tx,
		carts:     &cartRepo{db: tx},
		movements: &movementRepo{db: tx},
		outbox:    &OutboxRepository{db: tx},
	}
}

// LockCartLines locks the cart row first, which blocks concurrent inserts of
// new lines through the foreign key, then the lines and their products.
func (c *checkoutTx) LockCartLines(ctx context.Context, cartID int64) ([]models.CartLine, error) {
	var id int64
	err := c.tx.QueryRow(ctx, `SELECT id FROM carts WHERE id = $1 FOR UPDATE`, cartID).Scan(&id)
	if err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("cart %d: %w", cartID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock cart %d: %w", cartID, err)
	}

	sql := `SELECT` + cartLineColumns + `
		FROM cart_lines cl
		JOIN products p ON p.id = cl.product_id
		WHERE cl.cart_id = $1
		ORDER BY p.id
		FOR UPDATE OF cl, p`

	return queryCartLines(ctx, c.tx, sql, cartID)
}

func (c *checkoutTx) CreateOrder(ctx context.Context, o *models.Order) error {
	sql := `
		INSERT INTO orders (
			user_id,
			full_name,
			email,
			phone,
			address,
			city,
			notes,
			status,
			total_amount
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	err := c.tx.QueryRow(ctx, sql,
		o.UserID,
		o.Customer.FullName,
		o.Customer.Email,
		o.Customer.Phone,
		o.Customer.Address,
		o.Customer.City,
		o.Customer.Notes,
		o.Status,
		o.TotalAmount,
	).Scan(&o.OrderID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: order owner does not exist", ErrInvalidInput)
		}
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

func (c *checkoutTx) CreateOrderLine(ctx context.Context, l *models.OrderLine) error {
	sql := `
		INSERT INTO order_lines (order_id, product_id, product_name, captured_price, quantity)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := c.tx.QueryRow(ctx, sql,
		l.OrderID,
		l.ProductID,
		l.ProductName,
		l.CapturedPrice,
		l.Quantity,
	).Scan(&l.OrderLineID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to create order line: %w", err)
	}

	return nil
}

func (c *checkoutTx) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	result, err := c.tx.Exec(ctx, `
		UPDATE products
		SET stock = stock - $1, updated_at = NOW()
		WHERE id = $2 AND stock >= $1
	`, quantity, productID)
	if err != nil {
		if isCheckViolation(err) {
			return fmt.Errorf("%w: product %d", ErrNotEnough, productID)
		}
		return fmt.Errorf("failed to update products %d: %w", productID, err)
	}

	if result.RowsAffected() == 0 {
		exists, err := productExists(ctx, c.tx, productID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrProductNotFound
		}
		return fmt.Errorf("%w: product %d", ErrNotEnough, productID)
	}

	return nil
}

func (c *checkoutTx) RecordMovement(ctx context.Context, m *models.StockMovement) error {
	return c.movements.Create(ctx, m)
}

func (c *checkoutTx) ClearCart(ctx context.Context, cartID int64) error {
	return c.carts.Clear(ctx, cartID)
}

func (c *checkoutTx) EnqueueEvent(ctx context.Context, topic, key string, payload any) error {
	return c.outbox.Insert(ctx, topic, key, payload)
}
