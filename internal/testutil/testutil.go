// Package testutil provides a migrated temp-file SQLite store and a fault-injecting
// gateway for tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"relay/internal/auth"
	"relay/internal/db"
)

// DB opens a fresh migrated SQLite database that is closed when t ends.
func DB(t testing.TB) *gorm.DB {
	t.Helper()

	gdb, err := db.Connect(db.DriverSQLite, filepath.Join(t.TempDir(), "relay.db"))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gdb
}

// SeedUser creates a user with a profile and returns its id.
func SeedUser(t testing.TB, gdb *gorm.DB, username string) string {
	t.Helper()

	u := auth.User{ID: uuid.NewString(), Email: username + "@relay.test", PasswordHash: "x"}
	if err := gdb.Create(&u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	p := auth.Profile{ID: u.ID, Username: username}
	if err := gdb.Create(&p).Error; err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	return u.ID
}
