package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"covid-protein-crawler/config"
	"covid-protein-crawler/models"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Mirror receives every finished results page in addition to the output
// file. The file stays authoritative for resume.
type Mirror interface {
	SavePage(ctx context.Context, result models.PageResult) (int, error)
	Close() error
}

type PostgresStore struct {
	db *sql.DB
}

var _ Mirror = (*PostgresStore)(nil)

func NewPostgresStore(cfg config.Config) (*PostgresStore, error) {
	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// SavePage stores the page's extracted records and abandoned items in one
// transaction. Records already present are left untouched. It returns the
// number of records inserted.
func (s *PostgresStore) SavePage(ctx context.Context, result models.PageResult) (int, error) {
	var records []models.OutputRecord
	var failures []models.Failure
	for _, o := range result.Outcomes {
		switch o.State {
		case models.Success:
			if o.Record != nil {
				records = append(records, *o.Record)
			}
		case models.Abandoned:
			failures = append(failures, o.Failure())
		}
	}
	if len(records) == 0 && len(failures) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	recStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sequence_records (page, item, title, aa_length, accession, header, sequence)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (page, item) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("prepare record insert: %w", err)
	}
	defer recStmt.Close()

	inserted := 0
	for _, rec := range records {
		var res sql.Result
		if res, err = recStmt.ExecContext(ctx,
			rec.Page,
			rec.Item,
			rec.Title,
			rec.AaLength,
			rec.Accession,
			rec.Header,
			rec.Sequence,
		); err != nil {
			return 0, fmt.Errorf("insert record %d/%d: %w", rec.Page, rec.Item, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	failStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO crawl_failures (page, item, title, attempts, kind, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`)
	if err != nil {
		return 0, fmt.Errorf("prepare failure insert: %w", err)
	}
	defer failStmt.Close()

	for _, f := range failures {
		if _, err = failStmt.ExecContext(ctx,
			f.Page,
			f.Item,
			f.Title,
			f.Attempts,
			f.Kind,
			f.Message,
			f.At,
		); err != nil {
			return 0, fmt.Errorf("insert failure %d/%d: %w", f.Page, f.Item, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return inserted, nil
}

// CountRecords returns how many records the mirror holds.
func (s *PostgresStore) CountRecords(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sequence_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS sequence_records (
			id BIGSERIAL PRIMARY KEY,
			page INTEGER NOT NULL,
			item INTEGER NOT NULL,
			title TEXT NOT NULL,
			aa_length TEXT NOT NULL DEFAULT '',
			accession TEXT NOT NULL DEFAULT '',
			header TEXT NOT NULL DEFAULT '',
			sequence TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (page, item)
		);
		CREATE INDEX IF NOT EXISTS idx_sequence_records_accession ON sequence_records(accession);
		CREATE TABLE IF NOT EXISTS crawl_failures (
			id BIGSERIAL PRIMARY KEY,
			page INTEGER NOT NULL,
			item INTEGER NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			attempts INTEGER NOT NULL,
			kind TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
