package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// sqliteDriverName driver name registered by go-sqlite3
const sqliteDriverName = "sqlite3"

// withRawConn run the callback against the driver connection backing a pool connection
func withRawConn(
	ctx context.Context, pool *sql.DB, coreLogic func(conn *sqlite3.SQLiteConn) error,
) error {
	conn, err := pool.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to reserve DB connection [%w]", err)
	}
	defer func() {
		_ = conn.Close()
	}()
	return conn.Raw(func(driverConn any) error {
		sqliteConn, ok := driverConn.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("driver connection is %T, not a SQLite connection", driverConn)
		}
		return coreLogic(sqliteConn)
	})
}

// exportSnapshot serialize the main schema of the pooled database
func exportSnapshot(ctx context.Context, pool *sql.DB) ([]byte, error) {
	var image []byte
	err := withRawConn(ctx, pool, func(conn *sqlite3.SQLiteConn) error {
		var err error
		image, err = conn.Serialize("main")
		return err
	})
	return image, err
}

// importSnapshot validate a database image and copy it into the pooled database
//
// The image is staged in a temporary file so SQLite's own format checks run against it
// before any of its pages reach the working database.
func importSnapshot(ctx context.Context, target *sql.DB, image []byte) error {
	staged, err := os.CreateTemp("", "healthvault-snapshot-*.db")
	if err != nil {
		return fmt.Errorf("failed to stage snapshot [%w]", err)
	}
	stagedPath := staged.Name()
	defer func() {
		_ = os.Remove(stagedPath)
		_ = os.Remove(stagedPath + "-journal")
	}()
	if _, err := staged.Write(image); err != nil {
		_ = staged.Close()
		return fmt.Errorf("failed to stage snapshot [%w]", err)
	}
	if err := staged.Close(); err != nil {
		return fmt.Errorf("failed to stage snapshot [%w]", err)
	}

	source, err := sql.Open(sqliteDriverName, stagedPath)
	if err != nil {
		return fmt.Errorf("failed to open staged snapshot [%w]", err)
	}
	defer func() {
		_ = source.Close()
	}()
	source.SetMaxOpenConns(1)

	var verdict string
	if err := source.QueryRowContext(ctx, "PRAGMA quick_check").Scan(&verdict); err != nil {
		return fmt.Errorf("%w [%w]", ErrCorruptSnapshot, err)
	}
	if verdict != "ok" {
		return fmt.Errorf("%w: integrity check reported '%s'", ErrCorruptSnapshot, verdict)
	}

	return withRawConn(ctx, target, func(dst *sqlite3.SQLiteConn) error {
		return withRawConn(ctx, source, func(src *sqlite3.SQLiteConn) error {
			backup, err := dst.Backup("main", src, "main")
			if err != nil {
				return fmt.Errorf("failed to start snapshot copy [%w]", err)
			}
			if _, err := backup.Step(-1); err != nil {
				_ = backup.Finish()
				return fmt.Errorf("failed to copy snapshot [%w]", err)
			}
			return backup.Finish()
		})
	})
}

/*
CheckSnapshotRows decode every stored row once, so that a restored image whose pages
are sound but whose column values are damaged fails at open instead of on first use

	@param ctx context.Context - execution context
	@param tx *gorm.DB - transaction over the restored database
*/
func CheckSnapshotRows(_ context.Context, tx *gorm.DB) error {
	var records []recordEntry
	if tmp := tx.Model(&recordEntry{}).Find(&records); tmp.Error != nil {
		return fmt.Errorf("%w: unreadable health record [%w]", ErrCorruptSnapshot, tmp.Error)
	}
	var grants []accessLogEntry
	if tmp := tx.Model(&accessLogEntry{}).Find(&grants); tmp.Error != nil {
		return fmt.Errorf("%w: unreadable access grant [%w]", ErrCorruptSnapshot, tmp.Error)
	}
	return nil
}
