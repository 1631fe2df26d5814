// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{db: db}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	// Dependency order matters: categories before products, orders before items.
	models := []interface{}{
		&user.User{},
		&user.Address{},

		&product.Category{},
		&product.Product{},

		&cart.CartItem{},

		&order.Order{},
		&order.OrderItem{},
		&order.OrderStatusHistory{},

		&inventory.StockMovement{},
	}

	for _, model := range models {
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_users_email_active ON users(email, is_active)",

		"CREATE INDEX IF NOT EXISTS idx_products_category_active ON products(category_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_products_price ON products(price)",
		"CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC)",

		"CREATE INDEX IF NOT EXISTS idx_categories_slug ON categories(slug)",

		"CREATE UNIQUE INDEX IF NOT EXISTS idx_cart_items_user_product ON cart_items(user_id, product_id)",

		"CREATE INDEX IF NOT EXISTS idx_orders_user_status ON orders(user_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_payment_intent ON orders(payment_intent_id)",
		"CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC)",

		"CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)",
		"CREATE INDEX IF NOT EXISTS idx_order_items_product ON order_items(product_id)",

		"CREATE INDEX IF NOT EXISTS idx_order_status_history_order ON order_status_history(order_id, created_at DESC)",

		"CREATE INDEX IF NOT EXISTS idx_stock_movements_product ON stock_movements(product_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_order ON stock_movements(order_id)",
	}

	successCount := 0
	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			log.Printf("⚠️ Failed to create index: %v", err)
			continue
		}
		successCount++
	}

	log.Printf("✅ Created %d of %d indexes", successCount, len(indexes))
	return nil
}

// SeedInitialData inserts initial data for development environments
func (m *Migration) SeedInitialData() error {
	log.Println("🌱 Seeding initial data...")

	if err := m.seedCategories(); err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}

	if err := m.seedProducts(); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}

	if err := m.seedAdminUser(); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	log.Println("✅ Initial data seeded")
	return nil
}

func (m *Migration) seedCategories() error {
	categories := []product.Category{
		{Name: "T-Shirts", Slug: "t-shirts", Description: "Comfortable and stylish t-shirts", IsActive: true},
		{Name: "Jeans", Slug: "jeans", Description: "Classic and modern jeans", IsActive: true},
		{Name: "Shoes", Slug: "shoes", Description: "Footwear for every occasion", IsActive: true},
	}

	for _, category := range categories {
		var existing product.Category
		err := m.db.Where("slug = ?", category.Slug).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			if err := m.db.Create(&category).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
	}
	return nil
}

func (m *Migration) seedProducts() error {
	type seedProduct struct {
		sku          string
		name         string
		slug         string
		categorySlug string
		price        string
		comparePrice string
		stock        int
	}

	seeds := []seedProduct{
		{"TS-001", "Classic Cotton T-Shirt", "classic-cotton-t-shirt", "t-shirts", "29.99", "39.99", 50},
		{"TS-002", "Vintage Graphic T-Shirt", "vintage-graphic-t-shirt", "t-shirts", "34.99", "", 30},
		{"JN-001", "Slim Fit Blue Jeans", "slim-fit-blue-jeans", "jeans", "79.99", "99.99", 25},
		{"JN-002", "Relaxed Fit Black Jeans", "relaxed-fit-black-jeans", "jeans", "69.99", "", 20},
		{"SH-001", "Casual Sneakers", "casual-sneakers", "shoes", "89.99", "", 15},
		{"SH-002", "Formal Oxford Shoes", "formal-oxford-shoes", "shoes", "149.99", "179.99", 10},
	}

	for _, seed := range seeds {
		var existing product.Product
		err := m.db.Where("slug = ?", seed.slug).First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		var category product.Category
		if err := m.db.Where("slug = ?", seed.categorySlug).First(&category).Error; err != nil {
			return err
		}

		price, err := decimal.NewFromString(seed.price)
		if err != nil {
			return err
		}

		p := product.Product{
			SKU:        seed.sku,
			Name:       seed.name,
			Slug:       seed.slug,
			Price:      price,
			Stock:      seed.stock,
			IsActive:   true,
			CategoryID: category.ID,
		}
		if seed.comparePrice != "" {
			comparePrice, err := decimal.NewFromString(seed.comparePrice)
			if err != nil {
				return err
			}
			p.ComparePrice = &comparePrice
		}

		if err := m.db.Create(&p).Error; err != nil {
			return err
		}
	}
	return nil
}

func (m *Migration) seedAdminUser() error {
	var existing user.User
	err := m.db.Where("email = ?", "admin@example.com").First(&existing).Error
	if err == nil {
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := user.User{
		Email:     "admin@example.com",
		Password:  string(hash),
		FirstName: "Admin",
		LastName:  "User",
		IsActive:  true,
		IsAdmin:   true,
	}
	return m.db.Create(&admin).Error
}
