package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

// Dialect names the SQL engine behind a DB. Its value doubles as the
// database/sql driver name.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// ErrConnection is wrapped by every failure to reach the database.
var ErrConnection = errors.New("database connection failed")

func init() {
	sqlx.BindDriver(string(DialectSQLite), sqlx.QUESTION)
}

// ParseDialect maps a configured driver name onto a Dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pq":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// DB is the shared handle used by every store. Queries are written with `?`
// placeholders and rebound for the dialect.
type DB struct {
	*sqlx.DB
	Dialect Dialect
}

// Open opens a SQLite database at the given path and runs migrations.
func Open(dbPath string) (*DB, error) {
	return OpenDriver(string(DialectSQLite), dbPath)
}

// OpenDriver opens a database for the named driver, verifies the connection
// and brings the schema up to date.
func OpenDriver(driver, dsn string) (*DB, error) {
	db, err := Connect(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Up(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

// Connect opens and pings a database without running migrations.
func Connect(driver, dsn string) (*DB, error) {
	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, err
	}

	if dialect == DialectSQLite {
		dsn = sqliteDSN(dsn)
	}

	sqlDB, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w: %w", ErrConnection, err)
	}

	db := Wrap(sqlDB, dialect)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w: %w", ErrConnection, err)
	}
	return db, nil
}

// Wrap adopts an already open *sql.DB without touching its schema. The pool
// is capped at one physical connection for every dialect: the handle is the
// single shared connection, and an in-memory SQLite database only lives as
// long as its connection.
func Wrap(sqlDB *sql.DB, dialect Dialect) *DB {
	sqlDB.SetMaxOpenConns(1)
	return &DB{DB: sqlx.NewDb(sqlDB, string(dialect)), Dialect: dialect}
}

func sqliteDSN(path string) string {
	params := []string{
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
		"_time_format=sqlite",
	}
	if path != ":memory:" {
		params = append(params, "_pragma=journal_mode(WAL)")
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(params, "&")
}

// Builder returns a squirrel statement builder using the dialect's
// placeholder format.
func (db *DB) Builder() sq.StatementBuilderType {
	if db.Dialect == DialectPostgres {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

func (db *DB) txOptions() *sql.TxOptions {
	if db.Dialect == DialectPostgres {
		return &sql.TxOptions{Isolation: sql.LevelReadCommitted}
	}
	// SQLite transactions are serializable.
	return nil
}

// WithTx runs fn inside a transaction. The transaction is committed only when
// fn returns nil; every other exit path, panics included, rolls it back.
func (db *DB) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, db.txOptions())
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// IsUniqueViolation reports whether err is a unique or primary key
// constraint failure from either supported driver.
func IsUniqueViolation(err error) bool {
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		if code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY {
			return true
		}
		return code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE")
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func (db *DB) gooseSetup() error {
	fsys, err := fs.Sub(migrations, "migrations/"+string(db.Dialect))
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}
	goose.SetBaseFS(fsys)

	dialect := "sqlite3"
	if db.Dialect == DialectPostgres {
		dialect = "postgres"
	}
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	return nil
}

// Up applies all pending migrations.
func (db *DB) Up() error {
	if err := db.gooseSetup(); err != nil {
		return err
	}
	if err := goose.Up(db.DB.DB, "."); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// Down rolls back the most recent migration.
func (db *DB) Down() error {
	if err := db.gooseSetup(); err != nil {
		return err
	}
	if err := goose.Down(db.DB.DB, "."); err != nil {
		return fmt.Errorf("goose down: %w", err)
	}
	return nil
}

// Status logs the applied state of every migration.
func (db *DB) Status() error {
	if err := db.gooseSetup(); err != nil {
		return err
	}
	if err := goose.Status(db.DB.DB, "."); err != nil {
		return fmt.Errorf("goose status: %w", err)
	}
	return nil
}
