package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shop-service/internal/models"
)

type productRepo struct {
	db DBTX
}

func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &productRepo{db: pool}
}

const productColumns = `
	p.id,
	p.category_id,
	p.name,
	p.slug,
	p.description,
	p.brand,
	p.price,
	p.stock,
	p.available,
	p.created_at,
	p.updated_at`

func scanProduct(row pgx.Row, p *models.Product) error {
	return row.Scan(
		&p.ProductID,
		&p.CategoryID,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.Brand,
		&p.Price,
		&p.Stock,
		&p.Available,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

func validateProduct(p *models.Product) error {
	if p.Name == "" {
		return fmt.Errorf("%w: product name required", ErrInvalidInput)
	}
	if p.CategoryID <= 0 {
		return fmt.Errorf("%w: product category required", ErrInvalidInput)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: product price cannot be negative", ErrInvalidInput)
	}
	if p.Stock < 0 {
		return fmt.Errorf("%w: product stock cannot be negative", ErrInvalidInput)
	}
	return nil
}

func (r *productRepo) Create(ctx context.Context, p *models.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	if p.Slug == "" {
		p.Slug = models.Slugify(p.Name)
	}

	sql := `
		INSERT INTO products (
			category_id,
			name,
			slug,
			description,
			brand,
			price,
			stock,
			available
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, sql,
		p.CategoryID,
		p.Name,
		p.Slug,
		p.Description,
		p.Brand,
		p.Price,
		p.Stock,
		p.Available,
	).Scan(&p.ProductID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return fmt.Errorf("%w: product slug %q already exists", ErrDuplicate, p.Slug)
		case isForeignKeyViolation(err):
			return fmt.Errorf("%w: category %d does not exist", ErrInvalidInput, p.CategoryID)
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

func (r *productRepo) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: ID must be positive", ErrInvalidInput)
	}

	sql := `SELECT` + productColumns + ` FROM products p WHERE p.id = $1`

	var product models.Product
	if err := scanProduct(r.db.QueryRow(ctx, sql, id), &product); err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product by id %d: %w", id, err)
	}

	return &product, nil
}

func (r *productRepo) GetBySlug(ctx context.Context, slug string) (*models.Product, error) {
	if slug == "" {
		return nil, fmt.Errorf("%w: slug cannot be empty", ErrInvalidInput)
	}

	sql := `SELECT` + productColumns + ` FROM products p WHERE p.slug = $1`

	var product models.Product
	if err := scanProduct(r.db.QueryRow(ctx, sql, slug), &product); err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get product by slug %q: %w", slug, err)
	}

	return &product, nil
}

var productOrderings = map[models.ProductOrdering]string{
	models.OrderByNewest:    "p.created_at DESC, p.id DESC",
	models.OrderByOldest:    "p.created_at, p.id",
	models.OrderByPriceAsc:  "p.price, p.id",
	models.OrderByPriceDesc: "p.price DESC, p.id",
	models.OrderByName:      "p.name, p.id",
}

func (r *productRepo) List(ctx context.Context, f models.ProductFilter) ([]models.Product, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.CategoryID > 0 {
		where = append(where, "p.category_id = "+arg(f.CategoryID))
	}
	if f.Brand != "" {
		where = append(where, "p.brand = "+arg(f.Brand))
	}
	if f.Available != nil {
		where = append(where, "p.available = "+arg(*f.Available))
	}
	if f.Search != "" {
		pattern := arg("%" + f.Search + "%")
		where = append(where, fmt.Sprintf("(p.name ILIKE %[1]s OR p.description ILIKE %[1]s OR p.brand ILIKE %[1]s)", pattern))
	}

	ordering := f.Ordering
	if ordering == "" {
		ordering = models.OrderByNewest
	}
	orderBy, ok := productOrderings[ordering]
	if !ok {
		return nil, fmt.Errorf("%w: unknown ordering %q", ErrInvalidInput, ordering)
	}

	var sb strings.Builder
	sb.WriteString(`SELECT` + productColumns + ` FROM products p`)
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY " + orderBy)

	return r.queryProducts(ctx, sb.String(), args...)
}

func (r *productRepo) GetByCategory(ctx context.Context, categorySlug string) ([]models.Product, error) {
	if categorySlug == "" {
		return nil, fmt.Errorf("category cannot be empty: %w", ErrInvalidInput)
	}

	sql := `SELECT` + productColumns + `
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE c.slug = $1 AND p.available
		ORDER BY p.created_at DESC, p.id DESC`

	return r.queryProducts(ctx, sql, categorySlug)
}

func (r *productRepo) Latest(ctx context.Context, limit int) ([]models.Product, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrInvalidInput)
	}

	sql := `SELECT` + productColumns + `
		FROM products p
		WHERE p.available
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $1`

	return r.queryProducts(ctx, sql, limit)
}

func (r *productRepo) queryProducts(ctx context.Context, sql string, args ...any) ([]models.Product, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan products: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return products, nil
}

func (r *productRepo) Update(ctx context.Context, p *models.Product) error {
	if p.ProductID <= 0 {
		return fmt.Errorf("%w: ID cannot be empty", ErrInvalidInput)
	}
	if err := validateProduct(p); err != nil {
		return err
	}
	if p.Slug == "" {
		p.Slug = models.Slugify(p.Name)
	}

	sql := `
		UPDATE products
		SET
			category_id = $1,
			name = $2,
			slug = $3,
			description = $4,
			brand = $5,
			price = $6,
			stock = $7,
			available = $8,
			updated_at = NOW()
		WHERE id = $9
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, sql,
		p.CategoryID,
		p.Name,
		p.Slug,
		p.Description,
		p.Brand,
		p.Price,
		p.Stock,
		p.Available,
		p.ProductID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		switch {
		case notFound(err):
			return ErrNotFound
		case isUniqueViolation(err):
			return fmt.Errorf("%w: product slug %q already exists", ErrDuplicate, p.Slug)
		case isForeignKeyViolation(err):
			return fmt.Errorf("%w: category %d does not exist", ErrInvalidInput, p.CategoryID)
		}
		return fmt.Errorf("failed to update product %d: %w", p.ProductID, err)
	}

	return nil
}

// Delete refuses to remove a product that appears in any order line; such
// products are retired by clearing their available flag.
func (r *productRepo) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: ID cannot be empty", ErrInvalidInput)
	}

	result, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: product %d is referenced by orders, mark it unavailable instead", ErrConflict, id)
		}
		return fmt.Errorf("failed to delete product %d: %w", id, err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// AdjustStock applies a manual stock change and records it as a movement.
func (r *productRepo) AdjustStock(ctx context.Context, id int64, change int) error {
	if id <= 0 {
		return fmt.Errorf("%w: ID must be positive", ErrInvalidInput)
	}
	if change == 0 {
		return fmt.Errorf("%w: stock change cannot be 0", ErrInvalidInput)
	}

	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		var stock int
		err := tx.QueryRow(ctx, `
			UPDATE products
			SET stock = stock + $1, updated_at = NOW()
			WHERE id = $2 AND stock + $1 >= 0
			RETURNING stock
		`, change, id).Scan(&stock)
		if err != nil {
			if !notFound(err) {
				return fmt.Errorf("failed to update product stock %d: %w", id, err)
			}
			exists, err := productExists(ctx, tx, id)
			if err != nil {
				return err
			}
			if !exists {
				return ErrNotFound
			}
			return fmt.Errorf("%w: stock change %d would make product %d negative", ErrNotEnough, change, id)
		}

		movementType := models.MovementIncoming
		if change < 0 {
			movementType = models.MovementAdjustment
		}
		movements := &movementRepo{db: tx}
		return movements.Create(ctx, &models.StockMovement{
			ProductID:   id,
			Type:        movementType,
			ChangeQuant: change,
		})
	})
}

func productExists(ctx context.Context, db DBTX, id int64) (bool, error) {
	var exists bool
	err := db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check product %d: %w", id, err)
	}
	return exists, nil
}
