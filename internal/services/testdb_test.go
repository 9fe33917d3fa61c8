package services

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/noteshare-io/noteshare/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Note{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}
