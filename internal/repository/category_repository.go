package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"shop-service/internal/models"
)

type categoryRepo struct {
	db DBTX
}

func NewCategoryRepository(pool *pgxpool.Pool) CategoryRepository {
	return &categoryRepo{db: pool}
}

func (r *categoryRepo) Create(ctx context.Context, c *models.Category) error {
	if c.Name == "" {
		return fmt.Errorf("%w: category name required", ErrInvalidInput)
	}
	if c.Slug == "" {
		c.Slug = models.Slugify(c.Name)
	}

	sql := `
		INSERT INTO categories (name, slug, description)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, sql, c.Name, c.Slug, c.Description).
		Scan(&c.CategoryID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: category slug %q already exists", ErrDuplicate, c.Slug)
		}
		return fmt.Errorf("failed to create category: %w", err)
	}

	return nil
}

func (r *categoryRepo) GetBySlug(ctx context.Context, slug string) (*models.Category, error) {
	sql := `
		SELECT id, name, slug, description, created_at, updated_at
		FROM categories WHERE slug = $1
	`

	var c models.Category
	err := r.db.QueryRow(ctx, sql, slug).Scan(
		&c.CategoryID,
		&c.Name,
		&c.Slug,
		&c.Description,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get category %q: %w", slug, err)
	}

	return &c, nil
}

func (r *categoryRepo) List(ctx context.Context) ([]models.Category, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, slug, description, created_at, updated_at
		FROM categories
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.CategoryID, &c.Name, &c.Slug, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan categories: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to complete row iteration: %w", err)
	}

	return categories, nil
}

// Update matches on CategoryID; the slug may change.
func (r *categoryRepo) Update(ctx context.Context, c *models.Category) error {
	if c.CategoryID <= 0 {
		return fmt.Errorf("%w: ID cannot be empty", ErrInvalidInput)
	}
	if c.Name == "" {
		return fmt.Errorf("%w: category name required", ErrInvalidInput)
	}
	if c.Slug == "" {
		c.Slug = models.Slugify(c.Name)
	}

	sql := `
		UPDATE categories
		SET name = $1, slug = $2, description = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, sql, c.Name, c.Slug, c.Description, c.CategoryID).
		Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		switch {
		case notFound(err):
			return ErrNotFound
		case isUniqueViolation(err):
			return fmt.Errorf("%w: category slug %q already exists", ErrDuplicate, c.Slug)
		}
		return fmt.Errorf("failed to update category %d: %w", c.CategoryID, err)
	}

	return nil
}

func (r *categoryRepo) Delete(ctx context.Context, slug string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM categories WHERE slug = $1`, slug)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: category %q still has products", ErrConflict, slug)
		}
		return fmt.Errorf("failed to delete category %q: %w", slug, err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
