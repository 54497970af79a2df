// Package storage persists widget tools, chat transcripts, UI
// resource history and design assets in SQLite or Postgres.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"pixie/config"
)

// ErrNotFound is returned by lookups of a single row that does not exist.
var ErrNotFound = errors.New("not found")

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DB is the repository over one database connection pool.
type DB struct {
	db     *sql.DB
	driver string
	log    *slog.Logger
}

// Open connects, checks the connection and creates missing tables.
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, errors.Errorf("unsupported database driver %q", driver)
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s database", driver)
	}
	if driver == DriverSQLite {
		// One writer; also keeps an in-memory database on a single connection.
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, errors.Wrapf(err, "failed to connect to %s database", driver)
	}

	d := &DB{db: sqlDB, driver: driver, log: config.Logger("storage")}
	if err := d.EnsureTables(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Driver() string {
	return d.driver
}

// EnsureTables creates the schema if it does not exist yet.
func (d *DB) EnsureTables(ctx context.Context) error {
	blob := "BLOB"
	if d.driver == DriverPostgres {
		blob = "BYTEA"
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tool (
			id            TEXT    PRIMARY KEY,
			toolkit_id    TEXT    NOT NULL DEFAULT '',
			name          TEXT    NOT NULL,
			title         TEXT    NOT NULL DEFAULT '',
			description   TEXT    NOT NULL DEFAULT '',
			input_schema  TEXT    NOT NULL DEFAULT '{}',
			output_schema TEXT    NOT NULL DEFAULT '',
			is_enabled    BOOLEAN NOT NULL DEFAULT TRUE,
			created_ts    BIGINT  NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tool_widget (
			tool_id    TEXT   NOT NULL,
			widget_id  TEXT   NOT NULL,
			created_ts BIGINT NOT NULL,
			PRIMARY KEY (tool_id, widget_id)
		)`,
		`CREATE TABLE IF NOT EXISTS ui_widget_resource (
			id         TEXT   PRIMARY KEY,
			widget_id  TEXT   NOT NULL,
			resource   TEXT   NOT NULL,
			created_ts BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ui_widget_resource_widget ON ui_widget_resource(widget_id, created_ts)`,
		`CREATE TABLE IF NOT EXISTS conversation (
			id         TEXT   PRIMARY KEY,
			widget_id  TEXT   NOT NULL UNIQUE,
			created_ts BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS message (
			id              TEXT   PRIMARY KEY,
			conversation_id TEXT   NOT NULL,
			role            TEXT   NOT NULL,
			content         TEXT   NOT NULL,
			ui_resource_id  TEXT,
			created_ts      BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_message_conversation ON message(conversation_id, created_ts)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS design (
			id           TEXT   PRIMARY KEY,
			design_type  TEXT   NOT NULL,
			filename     TEXT   NOT NULL,
			content_type TEXT   NOT NULL,
			file_size    BIGINT NOT NULL,
			file_data    %s,
			created_ts   BIGINT NOT NULL
		)`, blob),
	}
	for _, s := range stmts {
		if _, err := d.db.ExecContext(ctx, s); err != nil {
			return errors.Wrap(err, "failed to create tables")
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (d *DB) rebind(query string) string {
	if d.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// newID returns a time-ordered identifier, so ties on created_ts still sort
// in insertion order.
func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func now() (time.Time, int64) {
	t := time.Now()
	return t, t.UnixNano()
}

func fromTs(ts int64) time.Time {
	return time.Unix(0, ts)
}
