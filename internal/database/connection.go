// internal/database/connection.go
package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/javajoker/distro-backend/internal/config"
	"github.com/javajoker/distro-backend/internal/logger"
	"github.com/javajoker/distro-backend/internal/models"
)

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: gormlogger.New(logger.Get(), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLogLevel(cfg.LogLevel),
			IgnoreRecordNotFoundError: true,
		}),
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Get().Info("Database connection established successfully")
	return db, nil
}

func gormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logger.LogError("database", "Close", "failed to get underlying sql.DB", nil, err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		logger.LogError("database", "Close", "failed to close database connection", nil, err)
		return
	}
	logger.Get().Info("Database connection closed successfully")
}

func RunMigrations(db *gorm.DB) error {
	logger.Get().Info("Running database migrations...")

	// gen_random_uuid() lives in pgcrypto before PostgreSQL 13
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`).Error; err != nil {
		return fmt.Errorf("failed to create pgcrypto extension: %w", err)
	}

	err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.DealerRequest{},
		&models.StockAllocation{},
		&models.AuditLog{},
		&models.Notification{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	createIndexes(db)

	logger.Get().Info("Database migrations completed successfully")
	return nil
}

// indexes are the query-path indexes AutoMigrate does not derive from struct tags.
var indexes = []string{
	// User indexes
	"CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower ON users(LOWER(email)) WHERE deleted_at IS NULL",
	"CREATE INDEX IF NOT EXISTS idx_users_creator_role ON users(created_by, role)",

	// Dealer request indexes
	"CREATE INDEX IF NOT EXISTS idx_dealer_requests_dealer_created ON dealer_requests(dealer_id, created_at DESC)",
	"CREATE INDEX IF NOT EXISTS idx_dealer_requests_approved ON dealer_requests(dealer_id, product_id) WHERE status = 'approved'",
	"CREATE INDEX IF NOT EXISTS idx_dealer_requests_payment ON dealer_requests(payment_status, created_at DESC)",

	// Allocation indexes
	"CREATE INDEX IF NOT EXISTS idx_stock_allocations_salesman_created ON stock_allocations(salesman_id, created_at DESC)",

	// Admin indexes
	"CREATE INDEX IF NOT EXISTS idx_audit_logs_user_action ON audit_logs(user_id, action)",
	"CREATE INDEX IF NOT EXISTS idx_audit_logs_resource ON audit_logs(resource_type, resource_id)",
	"CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at DESC)",
	"CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at DESC)",
}

func createIndexes(db *gorm.DB) {
	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			// Continue with other indexes instead of failing completely
			logger.LogError("database", "createIndexes", "failed to create index", index, err)
		}
	}
}
