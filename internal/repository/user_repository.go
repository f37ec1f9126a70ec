package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shop-service/internal/models"
)

type userRepo struct {
	db DBTX
}

func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepo{db: pool}
}

const userColumns = `
	u.id,
	u.username,
	u.email,
	u.password_hash,
	u.first_name,
	u.last_name,
	u.is_staff,
	u.created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.UserID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.IsStaff,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Register stores the user, provisions the profile and cart every account
// owns, and issues the first auth token, all in one transaction.
func (r *userRepo) Register(ctx context.Context, u *models.User, token string) error {
	if u.Username == "" || u.PasswordHash == "" {
		return fmt.Errorf("%w: username and password required", ErrInvalidInput)
	}
	if token == "" {
		return fmt.Errorf("%w: token cannot be empty", ErrInvalidInput)
	}

	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		sql := `
			INSERT INTO users (
				username,
				email,
				password_hash,
				first_name,
				last_name,
				is_staff
			) VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at
		`

		err := tx.QueryRow(ctx, sql,
			u.Username,
			u.Email,
			u.PasswordHash,
			u.FirstName,
			u.LastName,
			u.IsStaff,
		).Scan(&u.UserID, &u.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: username already exists", ErrDuplicate)
			}
			return fmt.Errorf("create user: %w", err)
		}

		if err := provisionAccount(ctx, tx, u.UserID); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `INSERT INTO auth_tokens (token, user_id) VALUES ($1, $2)`, token, u.UserID)
		if err != nil {
			return fmt.Errorf("create auth token: %w", err)
		}

		return nil
	})
}

func provisionAccount(ctx context.Context, tx pgx.Tx, userID int64) error {
	if _, err := tx.Exec(ctx, `INSERT INTO profiles (user_id) VALUES ($1) ON CONFLICT DO NOTHING`, userID); err != nil {
		return fmt.Errorf("create profile for user %d: %w", userID, err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO carts (user_id) VALUES ($1) ON CONFLICT DO NOTHING`, userID); err != nil {
		return fmt.Errorf("create cart for user %d: %w", userID, err)
	}
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT`+userColumns+` FROM users u WHERE u.id = $1`, id))
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user with id %d: %w", id, err)
	}
	return u, nil
}

func (r *userRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT`+userColumns+` FROM users u WHERE u.username = $1`, username))
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user %q: %w", username, err)
	}
	return u, nil
}

func (r *userRepo) GetByToken(ctx context.Context, token string) (*models.User, error) {
	sql := `SELECT` + userColumns + `
		FROM auth_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.token = $1`

	u, err := scanUser(r.db.QueryRow(ctx, sql, token))
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by token: %w", err)
	}
	return u, nil
}

// IssueToken returns the user's existing token, or stores token when the user
// has none yet.
func (r *userRepo) IssueToken(ctx context.Context, userID int64, token string) (string, error) {
	sql := `
		INSERT INTO auth_tokens (token, user_id) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET token = auth_tokens.token
		RETURNING token
	`

	var issued string
	if err := r.db.QueryRow(ctx, sql, token, userID).Scan(&issued); err != nil {
		if isForeignKeyViolation(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to issue token for user %d: %w", userID, err)
	}
	return issued, nil
}

func (r *userRepo) GetProfile(ctx context.Context, userID int64) (*models.Profile, error) {
	var p models.Profile
	err := r.db.QueryRow(ctx, `
		SELECT user_id, phone, address, city, updated_at
		FROM profiles WHERE user_id = $1
	`, userID).Scan(&p.UserID, &p.Phone, &p.Address, &p.City, &p.UpdatedAt)
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile for user %d: %w", userID, err)
	}
	return &p, nil
}

func (r *userRepo) UpdateProfile(ctx context.Context, p *models.Profile) error {
	err := r.db.QueryRow(ctx, `
		UPDATE profiles
		SET phone = $1, address = $2, city = $3, updated_at = NOW()
		WHERE user_id = $4
		RETURNING updated_at
	`, p.Phone, p.Address, p.City, p.UserID).Scan(&p.UpdatedAt)
	if err != nil {
		if notFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update profile for user %d: %w", p.UserID, err)
	}
	return nil
}
