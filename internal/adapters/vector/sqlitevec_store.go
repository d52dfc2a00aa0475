package vector

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"github.com/matria/clinical-engine/internal/core"
	"go.uber.org/zap"
)

func init() {
	// Register the sqlite-vec extension with the go-sqlite3 driver so every
	// new connection can create and query vec0 virtual tables.
	vec.Auto()
}

// SQLiteVecStore implements the VectorIndex interface on top of sqlite-vec.
// Case vectors live in a vec0 virtual table with cosine distance; filterable
// metadata lives in a companion table so filters constrain the KNN query
// itself rather than post-filtering an unfiltered top-K.
type SQLiteVecStore struct {
	db         *sql.DB
	dimensions int
	logger     *zap.Logger
}

// NewSQLiteVecStore opens (or creates) the vector store at dbPath
func NewSQLiteVecStore(dbPath string, dimensions int, logger *zap.Logger) (*SQLiteVecStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector database: %w", err)
	}

	_, err = db.Exec(fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS case_vectors USING vec0(
			case_id INTEGER PRIMARY KEY,
			embedding FLOAT[%d] distance_metric=cosine
		)
	`, dimensions))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create vec0 table: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS case_meta (
			case_id INTEGER PRIMARY KEY,
			label TEXT NOT NULL,
			descriptor TEXT NOT NULL,
			features TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create metadata table: %w", err)
	}

	return &SQLiteVecStore{
		db:         db,
		dimensions: dimensions,
		logger:     logger,
	}, nil
}

// Upsert inserts or replaces a batch of case records
func (s *SQLiteVecStore) Upsert(ctx context.Context, records []core.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, record := range records {
		if len(record.Embedding) != s.dimensions {
			return fmt.Errorf("case %d has embedding dimension %d, want %d",
				record.CaseID, len(record.Embedding), s.dimensions)
		}

		features, err := json.Marshal(record.Features)
		if err != nil {
			return fmt.Errorf("failed to encode features for case %d: %w", record.CaseID, err)
		}

		serialized, err := vec.SerializeFloat32(record.Embedding)
		if err != nil {
			return fmt.Errorf("failed to serialize embedding for case %d: %w", record.CaseID, err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO case_meta (case_id, label, descriptor, features)
			VALUES (?, ?, ?, ?)
		`, record.CaseID, record.Label, record.Descriptor, string(features)); err != nil {
			return fmt.Errorf("failed to upsert metadata for case %d: %w", record.CaseID, err)
		}

		// vec0 tables do not support INSERT OR REPLACE
		if _, err := tx.ExecContext(ctx, `DELETE FROM case_vectors WHERE case_id = ?`, record.CaseID); err != nil {
			return fmt.Errorf("failed to clear vector for case %d: %w", record.CaseID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO case_vectors (case_id, embedding) VALUES (?, ?)
		`, record.CaseID, serialized); err != nil {
			return fmt.Errorf("failed to insert vector for case %d: %w", record.CaseID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit vector upsert: %w", err)
	}

	s.logger.Debug("Upserted case vectors", zap.Int("count", len(records)))
	return nil
}

// Search runs a filtered KNN query and returns cases by descending cosine
// similarity. Filters are resolved to a candidate id set first, so selective
// filters never starve the result set.
func (s *SQLiteVecStore) Search(ctx context.Context, vector []float32, topK int, filters core.Filters) ([]core.ScoredCase, error) {
	if topK <= 0 {
		return nil, nil
	}

	serialized, err := vec.SerializeFloat32(vector)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize query vector: %w", err)
	}

	query := `SELECT case_id, distance FROM case_vectors WHERE embedding MATCH ? AND k = ?`
	args := []interface{}{serialized, topK}

	if !filters.IsZero() {
		candidates, err := s.candidateIDs(ctx, filters)
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			return nil, nil
		}
		query += fmt.Sprintf(" AND case_id IN (%s)", joinIDs(candidates))
	}

	rows, err := s.db.QueryContext(ctx, query+" ORDER BY distance", args...)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer rows.Close()

	var hits []core.ScoredCase
	for rows.Next() {
		var caseID int64
		var distance float64
		if err := rows.Scan(&caseID, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan vector search row: %w", err)
		}
		hits = append(hits, core.ScoredCase{CaseID: caseID, Score: 1.0 - distance})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vector search iteration failed: %w", err)
	}
	return hits, nil
}

// candidateIDs resolves the metadata filters to a set of case ids
func (s *SQLiteVecStore) candidateIDs(ctx context.Context, filters core.Filters) ([]int64, error) {
	conds := make([]string, 0, 2+len(filters.Numeric))
	args := make([]interface{}, 0, 2+2*len(filters.Numeric))

	if filters.Label != "" {
		conds = append(conds, "label = ?")
		args = append(args, filters.Label)
	}
	if filters.AgeRange != nil {
		conds = append(conds, "json_extract(features, '$.age_months') BETWEEN ? AND ?")
		args = append(args, filters.AgeRange.Min, filters.AgeRange.Max)
	}
	for name, r := range filters.Numeric {
		if !validFeatureName(name) {
			s.logger.Warn("Skipping filter on invalid feature name", zap.String("feature", name))
			continue
		}
		conds = append(conds, fmt.Sprintf("json_extract(features, '$.%s') BETWEEN ? AND ?", name))
		args = append(args, r.Min, r.Max)
	}
	if len(conds) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT case_id FROM case_meta WHERE "+strings.Join(conds, " AND "), args...)
	if err != nil {
		return nil, fmt.Errorf("metadata filter query failed: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan candidate id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the underlying database
func (s *SQLiteVecStore) Close() error {
	return s.db.Close()
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ",")
}

// validFeatureName guards the json_extract path against injection through
// feature names
func validFeatureName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' {
			return false
		}
	}
	return true
}
