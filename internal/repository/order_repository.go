package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"shop-service/internal/models"
)

type orderRepo struct {
	db DBTX
}

func NewOrderRepository(pool *pgxpool.Pool) OrderRepository {
	return &orderRepo{db: pool}
}

const orderColumns = `
	o.id,
	o.user_id,
	o.full_name,
	o.email,
	o.phone,
	o.address,
	o.city,
	o.notes,
	o.status,
	o.total_amount,
	o.created_at,
	o.updated_at`

func orderScanTargets(o *models.Order) []any {
	return []any{
		&o.OrderID,
		&o.UserID,
		&o.Customer.FullName,
		&o.Customer.Email,
		&o.Customer.Phone,
		&o.Customer.Address,
		&o.Customer.City,
		&o.Customer.Notes,
		&o.Status,
		&o.TotalAmount,
		&o.CreatedAt,
		&o.UpdatedAt,
	}
}

func (r *orderRepo) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: order ID must be positive", ErrInvalidInput)
	}

	sql := `SELECT` + orderColumns + ` FROM orders o WHERE o.id = $1`

	var order models.Order
	if err := r.db.QueryRow(ctx, sql, id).Scan(orderScanTargets(&order)...); err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}

	return &order, nil
}

func (r *orderRepo) GetWithLines(ctx context.Context, id int64) (*models.Order, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: order ID must be positive", ErrInvalidInput)
	}

	sql := `SELECT` + orderColumns + `,
		ol.id,
		ol.product_id,
		ol.product_name,
		ol.captured_price,
		ol.quantity
	FROM orders o
	LEFT JOIN order_lines ol ON o.id = ol.order_id
	WHERE o.id = $1
	ORDER BY ol.id
	`

	rows, err := r.db.Query(ctx, sql, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order with lines %d: %w", id, err)
	}
	defer rows.Close()

	var order *models.Order
	for rows.Next() {
		var (
			current     models.Order
			lineID      pgtype.Int8
			productID   pgtype.Int8
			productName pgtype.Text
			price       decimal.NullDecimal
			quantity    pgtype.Int4
		)

		targets := append(orderScanTargets(&current), &lineID, &productID, &productName, &price, &quantity)
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("scan order/line: %w", err)
		}
		if order == nil {
			order = &current
			order.Lines = []models.OrderLine{}
		}
		if lineID.Valid {
			order.Lines = append(order.Lines, models.OrderLine{
				OrderLineID:   lineID.Int64,
				OrderID:       order.OrderID,
				ProductID:     productID.Int64,
				ProductName:   productName.String,
				CapturedPrice: price.Decimal,
				Quantity:      int(quantity.Int32),
			})
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	if order == nil {
		return nil, ErrNotFound
	}

	return order, nil
}

func (r *orderRepo) List(ctx context.Context) ([]models.Order, error) {
	sql := `SELECT` + orderColumns + ` FROM orders o ORDER BY o.created_at DESC, o.id DESC`
	return r.queryOrders(ctx, sql)
}

func (r *orderRepo) ListByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: ID must be positive", ErrInvalidInput)
	}

	sql := `SELECT` + orderColumns + `
		FROM orders o
		WHERE o.user_id = $1
		ORDER BY o.created_at DESC, o.id DESC`
	return r.queryOrders(ctx, sql, userID)
}

func (r *orderRepo) queryOrders(ctx context.Context, sql string, args ...any) ([]models.Order, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(orderScanTargets(&o)...); err != nil {
			return nil, fmt.Errorf("failed to scan orders: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return orders, nil
}

// UpdateStatus moves the order from one status to another. It fails with
// ErrConflict when the stored status is no longer from.
func (r *orderRepo) UpdateStatus(ctx context.Context, id int64, from, to models.OrderStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: invalid status '%s'", ErrInvalidInput, to)
	}

	sql := `UPDATE orders
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
	`

	result, err := r.db.Exec(ctx, sql, to, id, from)
	if err != nil {
		return fmt.Errorf("update status order %d: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("check order %d: %w", id, err)
		}
		if !exists {
			return ErrNotFound
		}
		return fmt.Errorf("%w: order %d is no longer %s", ErrConflict, id, from)
	}

	return nil
}

func (r *orderRepo) Statistics(ctx context.Context, since time.Time) (*models.OrderStatistics, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM orders GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders by status: %w", err)
	}

	stats := &models.OrderStatistics{StatusDistribution: []models.StatusCount{}}
	counts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.StatusCount, error) {
		var sc models.StatusCount
		err := row.Scan(&sc.Status, &sc.Count)
		return sc, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan status counts: %w", err)
	}

	for _, sc := range counts {
		stats.StatusDistribution = append(stats.StatusDistribution, sc)
		stats.TotalOrders += sc.Count
		switch sc.Status {
		case models.StatusPending:
			stats.PendingOrders = sc.Count
		case models.StatusConfirmed:
			stats.ConfirmedOrders = sc.Count
		}
	}

	err = r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE created_at >= $1`, since).Scan(&stats.RecentOrders)
	if err != nil {
		return nil, fmt.Errorf("failed to count recent orders: %w", err)
	}

	return stats, nil
}

func (r *orderRepo) SalesData(ctx context.Context, since time.Time, top int) (*models.SalesData, error) {
	data := &models.SalesData{TopProducts: []models.TopProduct{}}

	err := r.db.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(total_amount), 0),
			COALESCE(SUM(total_amount) FILTER (WHERE created_at >= $1), 0),
			COALESCE(AVG(total_amount), 0)
		FROM orders
	`, since).Scan(&data.TotalSales, &data.RecentSales, &data.AverageOrderValue)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sales: %w", err)
	}
	data.AverageOrderValue = data.AverageOrderValue.Round(2)

	rows, err := r.db.Query(ctx, `
		SELECT
			ol.product_id,
			ol.product_name,
			SUM(ol.quantity),
			SUM(ol.captured_price * ol.quantity)
		FROM order_lines ol
		JOIN orders o ON o.id = ol.order_id
		WHERE o.created_at >= $1
		GROUP BY ol.product_id, ol.product_name
		ORDER BY SUM(ol.quantity) DESC, ol.product_id
		LIMIT $2
	`, since, top)
	if err != nil {
		return nil, fmt.Errorf("failed to get top products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tp models.TopProduct
		if err := rows.Scan(&tp.ProductID, &tp.ProductName, &tp.TotalQuantity, &tp.TotalSales); err != nil {
			return nil, fmt.Errorf("failed to scan top products: %w", err)
		}
		data.TopProducts = append(data.TopProducts, tp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return data, nil
}

func (r *orderRepo) CustomerStatistics(ctx context.Context, since time.Time, top int) (*models.CustomerStatistics, error) {
	stats := &models.CustomerStatistics{TopCustomers: []models.TopCustomer{}}

	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(DISTINCT user_id),
			COUNT(DISTINCT user_id) FILTER (WHERE created_at >= $1),
			(SELECT COUNT(*) FROM (
				SELECT user_id FROM orders
				WHERE user_id IS NOT NULL
				GROUP BY user_id
				HAVING COUNT(*) > 1
			) repeat)
		FROM orders
	`, since).Scan(&stats.TotalCustomers, &stats.NewCustomers, &stats.RepeatCustomers)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate customers: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT
			u.username,
			o.full_name,
			o.email,
			COUNT(*),
			SUM(o.total_amount)
		FROM orders o
		LEFT JOIN users u ON u.id = o.user_id
		GROUP BY u.username, o.full_name, o.email
		ORDER BY SUM(o.total_amount) DESC
		LIMIT $1
	`, top)
	if err != nil {
		return nil, fmt.Errorf("failed to get top customers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tc models.TopCustomer
		if err := rows.Scan(&tc.Username, &tc.FullName, &tc.Email, &tc.OrderCount, &tc.TotalSpent); err != nil {
			return nil, fmt.Errorf("failed to scan top customers: %w", err)
		}
		stats.TopCustomers = append(stats.TopCustomers, tc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return stats, nil
}
