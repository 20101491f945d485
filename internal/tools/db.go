package tools

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

//go:embed migration/*.sql
var migrationFiles embed.FS

// ConnectSqlite opens the results database and applies the migrations.
func ConnectSqlite(ctx context.Context, l *logrus.Logger, filePath string) (*sql.DB, error) {
	db, err := connectWithBackoff(ctx, l, "sqlite3", filePath, 3)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// RunMigrations executes every embedded migration in name order. Migrations
// are written to be idempotent.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	dirEntries, err := fs.ReadDir(migrationFiles, "migration")
	if err != nil {
		return err
	}
	sort.Slice(dirEntries, func(i, j int) bool { return dirEntries[i].Name() < dirEntries[j].Name() })
	for _, entry := range dirEntries {
		fileName := path.Join("migration", entry.Name())
		fileData, err := fs.ReadFile(migrationFiles, fileName)
		if err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, string(fileData)); err != nil {
			return fmt.Errorf("migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

func connectWithBackoff(ctx context.Context, l *logrus.Logger, driver string, connStr string, maxRetries int) (*sql.DB, error) {
	var err error
	for i := 0; i < maxRetries; i++ {
		var db *sql.DB
		db, err = sql.Open(driver, connStr)
		if err == nil {
			err = db.PingContext(ctx)
			if err == nil {
				// sqlite allows a single writer
				db.SetMaxOpenConns(1)
				return db, nil
			}
			db.Close()
		}
		l.WithError(err).WithField("driver", driver).Warn("failed attempt to connect")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(i+1) * (3 * time.Second)):
		}
	}
	return nil, err
}
