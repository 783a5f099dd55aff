package database

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/Gunjankadam/Vendofy-sub001/config"
)

var Pool *pgxpool.Pool

func InitDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)

	var err error
	Pool, err = pgxpool.New(context.Background(), dsn)
	if err != nil {
		return fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := Pool.Ping(context.Background()); err != nil {
		return fmt.Errorf("unable to ping database: %w", err)
	}

	log.Println("✅ Подключение к PostgreSQL установлено")
	if err := createHierarchyTable(); err != nil {
		return fmt.Errorf("failed to create hierarchy_nodes table: %w", err)
	}
	if err := createUsersTable(); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	if err := createOrdersTables(); err != nil {
		return fmt.Errorf("failed to create orders tables: %w", err)
	}
	if err := createAuditTable(); err != nil {
		return fmt.Errorf("failed to create order_audit table: %w", err)
	}
	if err := createNotificationsTable(); err != nil {
		return fmt.Errorf("failed to create admin_notifications table: %w", err)
	}
	if err := seedHierarchy(); err != nil {
		return err
	}
	return nil
}

func CloseDB() {
	if Pool != nil {
		Pool.Close()
		log.Println("🛑 Соединение с PostgreSQL закрыто")
	}
}

func createHierarchyTable() error {
	// pgcrypto для gen_random_uuid()
	_, err := Pool.Exec(context.Background(), `CREATE EXTENSION IF NOT EXISTS "pgcrypto";`)
	if err != nil {
		return err
	}

	_, err = Pool.Exec(context.Background(), `
		CREATE TABLE IF NOT EXISTS hierarchy_nodes (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name VARCHAR(100) NOT NULL,
			role VARCHAR(20) NOT NULL,
			parent_id UUID REFERENCES hierarchy_nodes(id),
			is_super_admin BOOLEAN DEFAULT false,
			is_active BOOLEAN DEFAULT true,
			created_at TIMESTAMP DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}

	_, err = Pool.Exec(context.Background(), `
		CREATE INDEX IF NOT EXISTS idx_hierarchy_nodes_parent ON hierarchy_nodes(parent_id);
	`)
	if err != nil {
		return err
	}

	log.Println("✅ Таблица hierarchy_nodes готова")
	return nil
}

func createUsersTable() error {
	_, err := Pool.Exec(context.Background(), `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			name VARCHAR(100),
			role VARCHAR(20) DEFAULT 'customer',
			node_id UUID REFERENCES hierarchy_nodes(id),
			is_super_admin BOOLEAN DEFAULT false,
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}

	_, err = Pool.Exec(context.Background(), `CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);`)
	if err != nil {
		return err
	}

	log.Println("✅ Таблица users готова")
	return nil
}

// createOrdersTables создаёт таблицы заказов и позиций
func createOrdersTables() error {
	_, err := Pool.Exec(context.Background(), `
		CREATE TABLE IF NOT EXISTS orders (
			id UUID PRIMARY KEY,
			customer_id UUID NOT NULL REFERENCES hierarchy_nodes(id),
			distributor_id UUID NOT NULL REFERENCES hierarchy_nodes(id),
			admin_id UUID NOT NULL REFERENCES hierarchy_nodes(id),
			total_amount DECIMAL(12,2) NOT NULL,
			currency VARCHAR(3) DEFAULT 'INR',
			status VARCHAR(20) NOT NULL DEFAULT 'placed',
			marked_for_today BOOLEAN DEFAULT false,
			marked_at TIMESTAMP,
			sent_to_admin BOOLEAN DEFAULT false,
			sent_to_admin_at TIMESTAMP,
			received_at TIMESTAMP,
			amount_paid DECIMAL(12,2) NOT NULL DEFAULT 0,
			payment_status VARCHAR(20) NOT NULL DEFAULT 'unpaid',
			desired_delivery_date TIMESTAMP NOT NULL,
			current_delivery_date TIMESTAMP NOT NULL,
			created_at TIMESTAMP DEFAULT NOW(),
			updated_at TIMESTAMP DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}

	_, err = Pool.Exec(context.Background(), `
		CREATE TABLE IF NOT EXISTS order_lines (
			order_id UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			product_id VARCHAR(100) NOT NULL,
			name VARCHAR(255),
			quantity INTEGER NOT NULL,
			unit_price DECIMAL(12,2) NOT NULL,
			PRIMARY KEY (order_id, position)
		);
	`)
	if err != nil {
		return err
	}

	// Индексы для выборок по иерархии и датам
	_, err = Pool.Exec(context.Background(), `
		CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id);
		CREATE INDEX IF NOT EXISTS idx_orders_distributor ON orders(distributor_id);
		CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);
	`)
	if err != nil {
		return err
	}

	log.Println("✅ Таблицы заказов готовы")
	return nil
}

func createAuditTable() error {
	_, err := Pool.Exec(context.Background(), `
		CREATE TABLE IF NOT EXISTS order_audit (
			seq BIGINT PRIMARY KEY,
			order_id UUID NOT NULL,
			actor_id VARCHAR(100) NOT NULL,
			action VARCHAR(50) NOT NULL,
			from_state VARCHAR(20),
			to_state VARCHAR(20),
			at TIMESTAMP NOT NULL
		);
	`)
	if err != nil {
		return err
	}

	_, err = Pool.Exec(context.Background(), `
		CREATE INDEX IF NOT EXISTS idx_order_audit_order ON order_audit(order_id);
	`)
	if err != nil {
		return err
	}

	log.Println("✅ Таблица order_audit готова")
	return nil
}

func createNotificationsTable() error {
	_, err := Pool.Exec(context.Background(), `
		CREATE TABLE IF NOT EXISTS admin_notifications (
			id UUID PRIMARY KEY,
			admin_id UUID NOT NULL REFERENCES hierarchy_nodes(id),
			sender_id UUID NOT NULL,
			orders_count INTEGER NOT NULL,
			items JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMP DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}

	log.Println("✅ Таблица admin_notifications готова")
	return nil
}

// seedHierarchy создаёт супер-админа и тестовую ветку, если дерево пусто
func seedHierarchy() error {
	var count int
	err := Pool.QueryRow(context.Background(), `SELECT COUNT(*) FROM hierarchy_nodes`).Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	var rootID string
	err = Pool.QueryRow(context.Background(), `
		INSERT INTO hierarchy_nodes (name, role, is_super_admin)
		VALUES ('Head Office', 'admin', true)
		RETURNING id
	`).Scan(&rootID)
	if err != nil {
		return err
	}

	var distID string
	err = Pool.QueryRow(context.Background(), `
		INSERT INTO hierarchy_nodes (name, role, parent_id)
		VALUES ('Demo Distributor', 'distributor', $1)
		RETURNING id
	`, rootID).Scan(&distID)
	if err != nil {
		return err
	}

	_, err = Pool.Exec(context.Background(), `
		INSERT INTO hierarchy_nodes (name, role, parent_id)
		VALUES ('Demo Customer', 'customer', $1)
	`, distID)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = Pool.Exec(context.Background(), `
		INSERT INTO users (email, password_hash, name, role, node_id, is_super_admin)
		VALUES ('admin@vendofy.local', $1, 'Super Admin', 'admin', $2, true)
	`, string(hash), rootID)
	if err != nil {
		return err
	}

	log.Println("✅ Создана стартовая иерархия и супер-админ: admin@vendofy.local / admin123")
	return nil
}
