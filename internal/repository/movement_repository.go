package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"shop-service/internal/models"
)

type movementRepo struct {
	db DBTX
}

func NewStockMovementRepository(pool *pgxpool.Pool) StockMovementRepository {
	return &movementRepo{db: pool}
}

func (r *movementRepo) Create(ctx context.Context, m *models.StockMovement) error {
	if m == nil {
		return fmt.Errorf("%w: movement cannot be nil", ErrInvalidInput)
	}
	if m.ProductID <= 0 {
		return fmt.Errorf("%w: product ID must be positive", ErrInvalidInput)
	}
	if m.ChangeQuant == 0 {
		return fmt.Errorf("%w: the change quantity cannot be 0", ErrInvalidInput)
	}
	switch m.Type {
	case models.MovementIncoming, models.MovementOutgoing, models.MovementAdjustment:
	default:
		return fmt.Errorf("%w: invalid movement type '%s'", ErrInvalidInput, m.Type)
	}

	sql := `
		INSERT INTO stock_movements (
			product_id,
			order_id,
			movement_type,
			change_quant
		) VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, sql,
		m.ProductID,
		m.OrderID,
		m.Type,
		m.ChangeQuant,
	).Scan(&m.MovementID, &m.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to create stock movement: %w", err)
	}

	return nil
}

func (r *movementRepo) GetByProductID(ctx context.Context, productID int64) ([]models.StockMovement, error) {
	if productID <= 0 {
		return nil, fmt.Errorf("%w: ID must be positive", ErrInvalidInput)
	}

	return r.query(ctx, `
		SELECT id, product_id, order_id, movement_type, change_quant, created_at
		FROM stock_movements
		WHERE product_id = $1
		ORDER BY id
	`, productID)
}

func (r *movementRepo) GetByOrderID(ctx context.Context, orderID int64) ([]models.StockMovement, error) {
	if orderID <= 0 {
		return nil, fmt.Errorf("%w: ID must be positive", ErrInvalidInput)
	}

	return r.query(ctx, `
		SELECT id, product_id, order_id, movement_type, change_quant, created_at
		FROM stock_movements
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
}

func (r *movementRepo) query(ctx context.Context, sql string, args ...any) ([]models.StockMovement, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get stock movements: %w", err)
	}
	defer rows.Close()

	movements := []models.StockMovement{}
	for rows.Next() {
		var m models.StockMovement
		if err := rows.Scan(&m.MovementID, &m.ProductID, &m.OrderID, &m.Type, &m.ChangeQuant, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stock movements: %w", err)
		}
		movements = append(movements, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete rows iteration: %w", err)
	}

	return movements, nil
}
