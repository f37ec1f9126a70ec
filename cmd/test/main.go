package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"shop-service/internal/database"
	"shop-service/internal/models"
	"shop-service/internal/repository"
	"shop-service/internal/service"
)

func main() {
	cfg, err := database.LoadConfig()
	if err != nil {
		log.Fatal("failed to load config", err)
	}

	ctx := context.Background()

	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatal("failed to connect database", err)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, zap.NewNop()); err != nil {
		log.Fatal("migrations failed:", err)
	}

	var now time.Time
	if err := pool.QueryRow(ctx, "SELECT NOW()").Scan(&now); err != nil {
		log.Fatal("Query failed", err)
	}
	fmt.Println("Current database time:", now)

	suffix := uuid.NewString()[:8]
	product := setupCatalog(ctx, pool, suffix)

	testCartResolution(ctx, pool)
	testCheckoutStockGuard(ctx, pool, product, suffix)
	testProductDelete(ctx, pool, product)
	testOrderLifecycle(ctx, pool, suffix)

	fmt.Println("\n🎉 All smoke checks passed")
}

func setupCatalog(ctx context.Context, pool *pgxpool.Pool, suffix string) *models.Product {
	fmt.Println("\n=== Setting up catalog ===")

	category := &models.Category{Name: "Smoke " + suffix}
	if err := repository.NewCategoryRepository(pool).Create(ctx, category); err != nil {
		log.Fatal("❌ create category failed:", err)
	}
	fmt.Printf("✅ Created category %q (ID %d)\n", category.Slug, category.CategoryID)

	product := &models.Product{
		CategoryID: category.CategoryID,
		Name:       "Smoke Rose " + suffix,
		Price:      decimal.RequireFromString("10.00"),
		Stock:      5,
		Available:  true,
	}
	if err := repository.NewProductRepository(pool).Create(ctx, product); err != nil {
		log.Fatal("❌ create product failed:", err)
	}
	fmt.Printf("✅ Created product ID %d, stock %d, price %s\n", product.ProductID, product.Stock, product.Price.StringFixed(2))

	return product
}

func testCartResolution(ctx context.Context, pool *pgxpool.Pool) {
	fmt.Println("\n=== Testing concurrent cart resolution ===")

	carts := repository.NewCartRepository(pool)
	token := uuid.NewString()

	const callers = 10
	ids := make([]int64, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cart, err := carts.GetOrCreateForSession(ctx, token)
			if err != nil {
				log.Fatal("❌ GetOrCreateForSession failed:", err)
			}
			ids[i] = cart.CartID
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		if id != ids[0] {
			log.Fatalf("❌ expected one cart, got ids %v", ids)
		}
	}

	var rows int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM carts WHERE session_token = $1`, token).Scan(&rows); err != nil {
		log.Fatal("❌ count carts failed:", err)
	}
	if rows != 1 {
		log.Fatalf("❌ expected 1 cart row, got %d", rows)
	}
	fmt.Printf("✅ %d concurrent resolutions returned cart %d\n", callers, ids[0])
}

func testCheckoutStockGuard(ctx context.Context, pool *pgxpool.Pool, product *models.Product, suffix string) {
	fmt.Println("\n=== Testing checkout stock guard ===")

	products := repository.NewProductRepository(pool)
	engine := service.NewCheckoutEngine(repository.NewStore(pool), zap.NewNop())
	carts := service.NewCartService(repository.NewCartRepository(pool), products, engine, zap.NewNop())

	a := service.Caller{SessionToken: "smoke-a-" + suffix}
	b := service.Caller{SessionToken: "smoke-b-" + suffix}

	if _, err := carts.AddLine(ctx, a, product.ProductID, 3); err != nil {
		log.Fatal("❌ add to cart A failed:", err)
	}
	if _, err := carts.AddLine(ctx, b, product.ProductID, 4); err != nil {
		log.Fatal("❌ add to cart B failed:", err)
	}
	fmt.Println("✅ Cart A holds 3, cart B holds 4")

	info := models.CustomerInfo{
		FullName: "Smoke Tester",
		Email:    "smoke@example.com",
		Phone:    "+10000000000",
		Address:  "1 Test Street",
		City:     "Testville",
	}

	order, err := carts.Checkout(ctx, a, info)
	if err != nil {
		log.Fatal("❌ checkout A failed:", err)
	}
	if order.TotalAmount.StringFixed(2) != "30.00" {
		log.Fatalf("❌ expected total 30.00, got %s", order.TotalAmount.StringFixed(2))
	}
	fmt.Printf("✅ Checkout A created order %d, total %s\n", order.OrderID, order.TotalAmount.StringFixed(2))

	_, err = carts.Checkout(ctx, b, info)
	if !errors.Is(err, service.ErrInsufficientStock) {
		log.Fatal("❌ checkout B should fail with insufficient stock, got:", err)
	}
	fmt.Println("✅ Checkout B rejected:", err)

	current, err := products.GetByID(ctx, product.ProductID)
	if err != nil {
		log.Fatal("❌ reload product failed:", err)
	}
	if current.Stock != 2 {
		log.Fatalf("❌ expected stock 2, got %d", current.Stock)
	}
	fmt.Println("✅ Stock is 2")

	snapA, err := carts.Snapshot(ctx, a)
	if err != nil || len(snapA.Lines) != 0 {
		log.Fatal("❌ cart A should be empty after checkout", err)
	}
	snapB, err := carts.Snapshot(ctx, b)
	if err != nil || len(snapB.Lines) != 1 {
		log.Fatal("❌ cart B should be untouched", err)
	}
	fmt.Println("✅ Cart A emptied, cart B untouched")

	current.Price = decimal.RequireFromString("99.00")
	if err := products.Update(ctx, current); err != nil {
		log.Fatal("❌ price update failed:", err)
	}
	stored, err := repository.NewOrderRepository(pool).GetWithLines(ctx, order.OrderID)
	if err != nil {
		log.Fatal("❌ reload order failed:", err)
	}
	if stored.Lines[0].CapturedPrice.StringFixed(2) != "10.00" {
		log.Fatalf("❌ captured price changed to %s", stored.Lines[0].CapturedPrice.StringFixed(2))
	}
	fmt.Println("✅ Order line price stays frozen at 10.00")

	movements, err := repository.NewStockMovementRepository(pool).GetByOrderID(ctx, order.OrderID)
	if err != nil || len(movements) != 1 || movements[0].ChangeQuant != -3 {
		log.Fatal("❌ expected one outgoing movement of -3", err)
	}
	fmt.Println("✅ Outgoing stock movement recorded")
}

func testProductDelete(ctx context.Context, pool *pgxpool.Pool, product *models.Product) {
	fmt.Println("\n=== Testing product delete protection ===")

	err := repository.NewProductRepository(pool).Delete(ctx, product.ProductID)
	if !errors.Is(err, repository.ErrConflict) {
		log.Fatal("❌ deleting an ordered product should conflict, got:", err)
	}
	fmt.Println("✅ Ordered product cannot be deleted:", err)
}

func testOrderLifecycle(ctx context.Context, pool *pgxpool.Pool, suffix string) {
	fmt.Println("\n=== Testing registration and order lifecycle ===")

	users := service.NewUserService(repository.NewUserRepository(pool), zap.NewNop())
	user, token, err := users.Register(ctx, service.RegisterInput{
		Username: "smoke-" + suffix,
		Email:    "smoke-" + suffix + "@example.com",
		Password: "smoke-password",
	})
	if err != nil {
		log.Fatal("❌ register failed:", err)
	}
	fmt.Printf("✅ Registered user %d with token %s…\n", user.UserID, token[:6])

	var carts int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM carts WHERE user_id = $1`, user.UserID).Scan(&carts); err != nil || carts != 1 {
		log.Fatal("❌ registration should provision exactly one cart", err)
	}
	fmt.Println("✅ Cart provisioned on registration")

	login, err := users.Login(ctx, user.Username, "smoke-password")
	if err != nil || login != token {
		log.Fatal("❌ login should return the registration token", err)
	}
	fmt.Println("✅ Login returns existing token")

	orders := service.NewOrderService(repository.NewOrderRepository(pool), zap.NewNop())
	stats, err := orders.Statistics(ctx)
	if err != nil {
		log.Fatal("❌ statistics failed:", err)
	}
	fmt.Printf("✅ Statistics: %d orders, %d pending\n", stats.TotalOrders, stats.PendingOrders)

	sales, err := orders.SalesData(ctx)
	if err != nil {
		log.Fatal("❌ sales data failed:", err)
	}
	fmt.Printf("✅ Sales: total %s, average %s\n", sales.TotalSales.StringFixed(2), sales.AverageOrderValue.StringFixed(2))
}
