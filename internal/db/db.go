package db

import (
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"relay/internal/auth"
	"relay/internal/memory"
	"relay/internal/points"
	"relay/internal/template"
	"relay/internal/valuetag"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Connect opens the store. Postgres goes through lib/pq; SQLite gets WAL, a busy
// timeout and foreign keys.
func Connect(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres, "":
		dialector = postgres.New(postgres.Config{DriverName: "postgres", DSN: dsn})
	case DriverSQLite:
		dialector = sqlite.Open(sqliteDSN(dsn))
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := registerCallbacks(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}

const sqliteParams = "_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

// sqliteDSN appends the connection parameters to dsn, keeping any it already has.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + sqliteParams
	}
	return dsn + "?" + sqliteParams
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&auth.User{},
		&auth.Profile{},
		&memory.Memory{},
		&memory.Comment{},
		&memory.Stamp{},
		&memory.Like{},
		&template.Template{},
		&valuetag.ValueTag{},
		&points.UserPoints{},
		&points.HistoryEntry{},
	); err != nil {
		return err
	}

	stmts := []string{
		`create index if not exists idx_memories_user_created on memories(user_id, created_at desc);`,
		`create index if not exists idx_memories_public_created on memories(is_public, created_at desc);`,
		`create index if not exists idx_memory_comments_memory_created on memory_comments(memory_id, created_at);`,
		`create index if not exists idx_memory_stamps_memory_created on memory_stamps(memory_id, created_at);`,
		`create index if not exists idx_templates_user_created on templates(user_id, created_at desc);`,
		`create index if not exists idx_point_history_user_created on point_history(user_id, created_at desc);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
