package repository

import (
	"context"
	"time"

	"shop-service/internal/models"
)

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id int64) (*models.Product, error)
	GetBySlug(ctx context.Context, slug string) (*models.Product, error)
	List(ctx context.Context, filter models.ProductFilter) ([]models.Product, error)
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id int64) error

	AdjustStock(ctx context.Context, id int64, change int) error
	GetByCategory(ctx context.Context, categorySlug string) ([]models.Product, error)
	Latest(ctx context.Context, limit int) ([]models.Product, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	GetBySlug(ctx context.Context, slug string) (*models.Category, error)
	List(ctx context.Context) ([]models.Category, error)
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, slug string) error
}

type CartRepository interface {
	GetOrCreateForUser(ctx context.Context, userID int64) (*models.Cart, error)
	GetOrCreateForSession(ctx context.Context, token string) (*models.Cart, error)
	Lines(ctx context.Context, cartID int64) ([]models.CartLine, error)

	AddQuantity(ctx context.Context, cartID, productID int64, quantity int) error
	SetQuantity(ctx context.Context, cartID, lineID int64, quantity int) error
	DeleteLine(ctx context.Context, cartID, lineID int64) error
	Clear(ctx context.Context, cartID int64) error
}

type OrderRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	GetWithLines(ctx context.Context, id int64) (*models.Order, error)
	List(ctx context.Context) ([]models.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id int64, from, to models.OrderStatus) error

	Statistics(ctx context.Context, since time.Time) (*models.OrderStatistics, error)
	SalesData(ctx context.Context, since time.Time, top int) (*models.SalesData, error)
	CustomerStatistics(ctx context.Context, since time.Time, top int) (*models.CustomerStatistics, error)
}

type StockMovementRepository interface {
	Create(ctx context.Context, movement *models.StockMovement) error
	GetByProductID(ctx context.Context, productID int64) ([]models.StockMovement, error)
	GetByOrderID(ctx context.Context, orderID int64) ([]models.StockMovement, error)
}

type UserRepository interface {
	Register(ctx context.Context, user *models.User, token string) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByToken(ctx context.Context, token string) (*models.User, error)
	IssueToken(ctx context.Context, userID int64, token string) (string, error)

	GetProfile(ctx context.Context, userID int64) (*models.Profile, error)
	UpdateProfile(ctx context.Context, profile *models.Profile) error
}

// CheckoutTx is the set of writes the checkout engine performs inside one
// transaction. Every method runs on the same underlying pgx.Tx.
type CheckoutTx interface {
	// LockCartLines returns the cart lines ordered by product id and holds a
	// row lock on each referenced product until the transaction ends.
	LockCartLines(ctx context.Context, cartID int64) ([]models.CartLine, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateOrderLine(ctx context.Context, line *models.OrderLine) error
	// DecrementStock fails with ErrNotEnough instead of taking stock below zero.
	DecrementStock(ctx context.Context, productID int64, quantity int) error
	RecordMovement(ctx context.Context, movement *models.StockMovement) error
	ClearCart(ctx context.Context, cartID int64) error
	EnqueueEvent(ctx context.Context, topic, key string, payload any) error
}
