package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/baditaflorin/go_corpus_normalizer/internal/core/domain"
	"github.com/baditaflorin/go_corpus_normalizer/internal/ports"
)

const driverName = "sqlite"

var pairsSchema = []string{
	`DROP TABLE IF EXISTS pairs`,
	`CREATE TABLE pairs (
	ordinal           INTEGER PRIMARY KEY,
	source            TEXT NOT NULL,
	target            TEXT NOT NULL,
	target_normalized TEXT NOT NULL
)`,
}

const insertPair = `INSERT INTO pairs (ordinal, source, target, target_normalized)
VALUES (:ordinal, :source, :target, :target_normalized)`

// PairRow is one row of the pairs table.
type PairRow struct {
	Ordinal          int    `db:"ordinal"`
	Source           string `db:"source"`
	Target           string `db:"target"`
	TargetNormalized string `db:"target_normalized"`
}

// SQLiteExporter writes an aligned corpus into a SQLite database.
type SQLiteExporter struct {
	logger ports.Logger
}

// NewSQLiteExporter creates an exporter.
func NewSQLiteExporter(logger ports.Logger) *SQLiteExporter {
	return &SQLiteExporter{logger: logger}
}

// Export replaces the pairs table in the database at path. normalized must
// be aligned with corpus.Records.
func (e *SQLiteExporter) Export(ctx context.Context, path string, corpus domain.ParallelCorpus, normalized []string) (int, error) {
	if len(normalized) != corpus.Len() {
		return 0, fmt.Errorf("export: %d normalized lines for %d pairs", len(normalized), corpus.Len())
	}

	db, err := sqlx.Open(driverName, path)
	if err != nil {
		return 0, fmt.Errorf("open db: sqlite: %w", err)
	}
	defer db.Close()

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin export: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, ddl := range pairsSchema {
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return 0, fmt.Errorf("create pairs table: %w", err)
		}
	}

	stmt, err := tx.PrepareNamedContext(ctx, insertPair)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range corpus.Records {
		row := PairRow{
			Ordinal:          r.Ordinal,
			Source:           r.SourceText,
			Target:           r.TargetText,
			TargetNormalized: normalized[i],
		}
		if _, err := stmt.ExecContext(ctx, row); err != nil {
			return i, fmt.Errorf("insert pair %d: %w", r.Ordinal, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit export: %w", err)
	}
	e.logger.Info("Exported corpus to SQLite", "path", path, "pairs", corpus.Len())
	return corpus.Len(), nil
}

// LoadPairs reads the pairs table back in ordinal order.
func LoadPairs(ctx context.Context, path string) ([]PairRow, error) {
	db, err := sqlx.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open db: sqlite: %w", err)
	}
	defer db.Close()

	var rows []PairRow
	if err := db.SelectContext(ctx, &rows, "SELECT ordinal, source, target, target_normalized FROM pairs ORDER BY ordinal"); err != nil {
		return nil, fmt.Errorf("load pairs: %w", err)
	}
	return rows, nil
}
