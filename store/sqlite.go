package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	studyshelf "github.com/tmuthoni/studyshelf"
	"github.com/tmuthoni/studyshelf/config"
	_ "modernc.org/sqlite"
)

var _ studyshelf.RegistrationStore = SQLiteStore{}

type SQLiteStore struct {
	db  *sql.DB
	cfg config.SQLite
}

// creates a new registration store backed by sqlite
// returns an error if the connection cannot be established or if a ping fails
func newSQLiteStore(ctx context.Context, cfg config.SQLite) (SQLiteStore, error) {
	// open connection
	db, err := sql.Open("sqlite", cfg.ConnectionString)
	if err != nil {
		return SQLiteStore{}, fmt.Errorf("failed to open connection to sqlite: %w", err)
	}

	// check connection
	err = db.PingContext(ctx)
	if err != nil {
		return SQLiteStore{}, fmt.Errorf("failed to ping db: %w", err)
	}

	// perform migrations
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return SQLiteStore{}, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations/sqlite", "sqlite", driver)
	if err != nil {
		return SQLiteStore{}, fmt.Errorf("failed to create migration: %w", err)
	}

	err = m.Up()
	if err != nil && err.Error() != "no change" {
		return SQLiteStore{}, fmt.Errorf("failed to execute migrations: %w", err)
	}

	return SQLiteStore{db, cfg}, nil
}

// SaveIDs replaces the persisted mirror with the given id set in a single
// transaction, so a crash never leaves a half-written mirror behind.
func (s SQLiteStore) SaveIDs(ctx context.Context, ids []string) error {
	txCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if _, err := tx.ExecContext(txCtx, "DELETE FROM registrations"); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to clear registrations: %w", err)
	}

	for _, id := range ids {
		if _, err := tx.ExecContext(txCtx, "INSERT INTO registrations (material_id) VALUES ($1)", id); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert statement failed: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (s SQLiteStore) LoadIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT material_id FROM registrations")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch registrations from the db: %w", err)
	}

	var ids []string

	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return ids, nil
}
