package sqlitedb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	_ "github.com/mattn/go-sqlite3"
)

// Open opens (or creates when readwrite is set) the sqlite database
// file inside dir.
func Open(ctx context.Context, dir, file string, readwrite bool) (*sql.DB, error) {
	dbfile := filepath.Join(dir, file)
	if readwrite {
		err := os.MkdirAll(dir, 0755)
		if err != nil {
			return nil, fmt.Errorf("unable to create directory %v, cause %w", dir, err)
		}
	}
	var connstr string
	if readwrite {
		connstr = fmt.Sprintf("file:%v?_journal=wal&_busy_timeout=5000&mode=rwc", dbfile)
	} else {
		connstr = fmt.Sprintf("file:%v?mode=ro", dbfile)
	}
	conn, err := sql.Open("sqlite3", connstr)
	if err != nil {
		return nil, fmt.Errorf("unable to open %v, cause %w", dbfile, err)
	}
	err = conn.PingContext(ctx)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to ping %v, cause %w", dbfile, err)
	}
	return conn, nil
}

// Migrate runs every statement in order, stopping at the first failure.
func Migrate(ctx context.Context, db *sql.DB, stmts ...string) error {
	for _, cmd := range stmts {
		_, err := db.ExecContext(ctx, cmd)
		if err != nil {
			return fmt.Errorf("unable to migrate database, cause %w", err)
		}
	}
	return nil
}

// Hash64 returns the value stored in *_hash64 index columns.
func Hash64(key string) int64 {
	return int64(xxhash.Sum64String(key))
}
