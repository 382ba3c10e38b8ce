// Package testhelpers provides shared fixtures for package tests.
package testhelpers

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/rahulvalluru1-source/fieldtrack/internal/database"
	"github.com/rahulvalluru1-source/fieldtrack/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB returns a migrated in-memory SQLite database. A single connection is
// used so every goroutine sees the same memory database.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// CreateUser inserts a user with a throwaway password hash.
func CreateUser(t *testing.T, db *gorm.DB, name string, role models.Role) models.User {
	t.Helper()

	u := models.User{
		Name:         name,
		Email:        name + "@fieldtrack.test",
		PasswordHash: "x",
		Role:         role,
	}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}
