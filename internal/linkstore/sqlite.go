package linkstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database file and migrates it.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer; one connection keeps writes serialized.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	version, err := runMigrations(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	slog.Info("Link store ready", "backend", "sqlite", "path", path, "schema_version", version)
	return &SQLite{db: db}, nil
}

func (s *SQLite) Exists(ctx context.Context, link string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM posted_articles WHERE link = ?`, link).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check link: %w", err)
	}
	return true, nil
}

func (s *SQLite) Insert(ctx context.Context, link string) error {
	if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO posted_articles (link) VALUES (?)`, link); err != nil {
		return fmt.Errorf("failed to insert link: %w", err)
	}
	return nil
}

// InsertBulk stores all links in one transaction.
func (s *SQLite) InsertBulk(ctx context.Context, links []string) error {
	if len(links) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO posted_articles (link) VALUES (?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, link := range links {
		if _, err := stmt.ExecContext(ctx, link); err != nil {
			return fmt.Errorf("failed to insert link %s: %w", link, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit links: %w", err)
	}
	return nil
}

func (s *SQLite) ListAll(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT link FROM posted_articles`)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	var links []string
	for rows.Next() {
		var link string
		if err := rows.Scan(&link); err != nil {
			return nil, fmt.Errorf("failed to scan link row: %w", err)
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating link rows: %w", err)
	}

	return links, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
