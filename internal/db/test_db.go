package db

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB creates an in-memory SQLite database for testing.
// The pool is pinned to one connection because every ":memory:" connection
// would otherwise open its own empty database.
func SetupTestDB() (*gorm.DB, error) {
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get test database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.AutoMigrate(Models()...); err != nil {
		return nil, fmt.Errorf("failed to migrate test database: %w", err)
	}

	return database, nil
}

// SetupPostgresTestDB connects to a disposable Postgres database, migrates it
// and empties every table. Used by tests built with the postgres tag.
func SetupPostgresTestDB(dsn string) (*gorm.DB, error) {
	database, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres test database: %w", err)
	}

	if err := Migrate(database); err != nil {
		return nil, fmt.Errorf("failed to migrate postgres test database: %w", err)
	}
	if err := TruncateAllTables(database); err != nil {
		return nil, fmt.Errorf("failed to empty postgres test database: %w", err)
	}
	return database, nil
}

// CleanupTestDB cleans up the test database
func CleanupTestDB(database *gorm.DB) {
	sqlDB, err := database.DB()
	if err != nil {
		log.Printf("Failed to get DB instance: %v", err)
		return
	}
	sqlDB.Close()
}

// TruncateAllTables removes all data from tables
func TruncateAllTables(database *gorm.DB) error {
	tables := []string{"payments", "order_items", "orders", "cart_items", "carts", "reviews", "recipes", "categories", "users"}
	for _, table := range tables {
		if err := database.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
			return err
		}
	}
	return nil
}
