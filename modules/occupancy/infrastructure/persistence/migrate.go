package persistence

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	gerrors "github.com/go-faster/errors"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

//go:embed schema/migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "schema/migrations"

// migrationLockID keys the advisory lock held while migrations run, so
// concurrent instances migrate one at a time.
const migrationLockID int64 = 0x6f63637570

type MigrateDirection string

const (
	MigrateUp     MigrateDirection = "up"
	MigrateDown   MigrateDirection = "down"
	MigrateStatus MigrateDirection = "status"
)

// OpenSQL opens a database/sql handle through lib/pq for the migration runner.
func OpenSQL(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, gerrors.Wrap(err, "open database")
	}
	return db, nil
}

// RunMigrations applies, rolls back one step, or reports the embedded
// schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB, direction MigrateDirection) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return gerrors.Wrap(err, "set goose dialect")
	}

	return withAdvisoryLock(ctx, db, func(conn *sql.DB) error {
		switch direction {
		case MigrateUp:
			return goose.UpContext(ctx, conn, migrationsDir)
		case MigrateDown:
			return goose.DownContext(ctx, conn, migrationsDir)
		case MigrateStatus:
			return goose.StatusContext(ctx, conn, migrationsDir)
		default:
			return fmt.Errorf("unknown migrate direction %q", direction)
		}
	})
}

// withAdvisoryLock holds the session-level migration lock on one pinned
// connection for the duration of fn; fn itself runs on the pool.
func withAdvisoryLock(ctx context.Context, db *sql.DB, fn func(*sql.DB) error) (err error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return gerrors.Wrap(err, "acquire migration lock connection")
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return gerrors.Wrap(err, "acquire migration lock")
	}
	defer func() {
		var released bool
		uerr := conn.QueryRowContext(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock($1)", migrationLockID).Scan(&released)
		if uerr == nil && !released {
			uerr = gerrors.New("migration lock was not held by this session")
		}
		if uerr != nil && err == nil {
			err = gerrors.Wrap(uerr, "release migration lock")
		}
	}()
	return fn(db)
}
