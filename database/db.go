package database

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func InitDB(logger *zap.Logger) (*sql.DB, error) {
	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "postgres")
	password := getEnv("DB_PASSWORD", "postgres")
	dbname := getEnv("DB_NAME", "handcrafted_haven")

	psqlInfo := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", psqlInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	logger.Info("Database connection established")
	return db, nil
}

func createTables(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(10) NOT NULL DEFAULT 'buyer',
			avatar TEXT DEFAULT '',
			business_name VARCHAR(200) DEFAULT '',
			business_description VARCHAR(1000) DEFAULT '',
			business_address VARCHAR(300) DEFAULT '',
			business_phone VARCHAR(20) DEFAULT '',
			business_website VARCHAR(200) DEFAULT '',
			craft_specialties TEXT[] DEFAULT '{}',
			years_of_experience INTEGER DEFAULT 0,
			social_facebook VARCHAR(200) DEFAULT '',
			social_instagram VARCHAR(200) DEFAULT '',
			social_twitter VARCHAR(200) DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			id SERIAL PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			slug VARCHAR(120) NOT NULL UNIQUE,
			description TEXT DEFAULT '',
			image TEXT DEFAULT '',
			sort_order INTEGER DEFAULT 0,
			is_active BOOLEAN DEFAULT TRUE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id SERIAL PRIMARY KEY,
			name VARCHAR(200) NOT NULL,
			slug VARCHAR(220) NOT NULL UNIQUE,
			description VARCHAR(2000) NOT NULL,
			short_description VARCHAR(300) DEFAULT '',
			price DECIMAL(10, 2) NOT NULL,
			compare_price DECIMAL(10, 2) DEFAULT 0,
			images TEXT[] NOT NULL DEFAULT '{}',
			category_id INTEGER NOT NULL REFERENCES categories(id),
			seller_id INTEGER NOT NULL REFERENCES users(id),
			quantity INTEGER NOT NULL DEFAULT 0,
			track_quantity BOOLEAN NOT NULL DEFAULT TRUE,
			allow_backorder BOOLEAN NOT NULL DEFAULT FALSE,
			dim_length DECIMAL(10, 2) DEFAULT 0,
			dim_width DECIMAL(10, 2) DEFAULT 0,
			dim_height DECIMAL(10, 2) DEFAULT 0,
			dim_weight DECIMAL(10, 2) DEFAULT 0,
			materials TEXT[] DEFAULT '{}',
			tags TEXT[] DEFAULT '{}',
			is_active BOOLEAN DEFAULT TRUE,
			is_featured BOOLEAN DEFAULT FALSE,
			average_rating DECIMAL(2, 1) DEFAULT 0,
			total_reviews INTEGER DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id SERIAL PRIMARY KEY,
			order_number VARCHAR(40) NOT NULL UNIQUE,
			buyer_id INTEGER NOT NULL REFERENCES users(id),
			subtotal DECIMAL(10, 2) NOT NULL,
			shipping DECIMAL(10, 2) NOT NULL DEFAULT 0,
			tax DECIMAL(10, 2) NOT NULL DEFAULT 0,
			total DECIMAL(10, 2) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			ship_full_name VARCHAR(100) NOT NULL,
			ship_address_line1 VARCHAR(200) NOT NULL,
			ship_address_line2 VARCHAR(200) DEFAULT '',
			ship_city VARCHAR(100) NOT NULL,
			ship_state VARCHAR(100) NOT NULL,
			ship_postal_code VARCHAR(20) NOT NULL,
			ship_country VARCHAR(100) NOT NULL DEFAULT 'United States',
			ship_phone VARCHAR(20) DEFAULT '',
			payment_method VARCHAR(20) NOT NULL,
			transaction_id VARCHAR(100) DEFAULT '',
			payment_status VARCHAR(20) NOT NULL DEFAULT 'pending',
			payment_amount DECIMAL(10, 2) NOT NULL,
			payment_currency VARCHAR(3) NOT NULL DEFAULT 'USD',
			notes VARCHAR(500) DEFAULT '',
			tracking_number VARCHAR(100) DEFAULT '',
			estimated_delivery TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id SERIAL PRIMARY KEY,
			order_id INTEGER NOT NULL REFERENCES orders(id),
			product_id INTEGER NOT NULL REFERENCES products(id),
			name VARCHAR(200) NOT NULL,
			price DECIMAL(10, 2) NOT NULL,
			quantity INTEGER NOT NULL CHECK (quantity >= 1),
			image TEXT NOT NULL,
			seller_id INTEGER NOT NULL REFERENCES users(id)
		)`,
		`CREATE TABLE IF NOT EXISTS reviews (
			id SERIAL PRIMARY KEY,
			product_id INTEGER NOT NULL REFERENCES products(id),
			user_id INTEGER NOT NULL REFERENCES users(id),
			rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
			title VARCHAR(100) DEFAULT '',
			comment VARCHAR(1000) NOT NULL,
			images TEXT[] DEFAULT '{}',
			is_verified_purchase BOOLEAN DEFAULT FALSE,
			is_approved BOOLEAN DEFAULT TRUE,
			helpful_votes INTEGER DEFAULT 0,
			report_count INTEGER DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (product_id, user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_products_category ON products(category_id)`,
		`CREATE INDEX IF NOT EXISTS idx_products_seller ON products(seller_id)`,
		`CREATE INDEX IF NOT EXISTS idx_products_active ON products(is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_buyer ON orders(buyer_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items(order_id)`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_seller ON order_items(seller_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_product ON reviews(product_id, is_approved)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
