package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/san-kum/modsim/internal/config"
	"github.com/san-kum/modsim/internal/dynamo"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed schema/schema.sql
var schema string

// SQLiteStore keeps runs in a single database file. Result values are
// stored in long format, one row per quantity and time point.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore returns a store backed by dir/modsim.db.
func NewSQLiteStore(dir string) *SQLiteStore {
	return &SQLiteStore{path: filepath.Join(dir, "modsim.db")}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, meta Metadata, result dynamo.Result) (err error) {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	if meta.ID == "" {
		return fmt.Errorf("run has no id")
	}
	meta = complete(meta, result)

	columns, err := json.Marshal(meta.Columns)
	if err != nil {
		return err
	}
	var metrics, scenario []byte
	if len(meta.Metrics) > 0 {
		if metrics, err = json.Marshal(meta.Metrics); err != nil {
			return err
		}
	}
	if meta.Scenario != nil {
		if scenario, err = json.Marshal(meta.Scenario); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, name, mode, report, created_at, elapsed_ns, row_count, columns, metrics, scenario)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.Name, meta.Mode, meta.Report, meta.Timestamp.UnixNano(),
		int64(meta.Elapsed), meta.Rows, string(columns), nullableString(metrics), nullableString(scenario))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO run_values (run_id, quantity, row_index, value, special) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, name := range meta.Columns {
		for i, v := range result[name] {
			value, special := sql.NullFloat64{Float64: v, Valid: true}, sql.NullString{}
			// non-finite values are stored by name, sqlite turns NaN into NULL
			if label, ok := specialName(v); ok {
				value, special = sql.NullFloat64{}, sql.NullString{String: label, Valid: true}
			}
			if _, err = stmt.ExecContext(ctx, meta.ID, name, i, value, special); err != nil {
				return fmt.Errorf("failed to insert %s[%d]: %w", name, i, err)
			}
		}
	}

	return tx.Commit()
}

func nullableString(b []byte) sql.NullString {
	if b == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

const selectRuns = `SELECT id, name, mode, report, created_at, elapsed_ns, row_count, columns, metrics, scenario FROM runs`

func (s *SQLiteStore) List(ctx context.Context) ([]Metadata, error) {
	rows, err := s.db.QueryContext(ctx, selectRuns+` ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Metadata, 0)
	for rows.Next() {
		meta, err := scanMetadata(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *meta)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (*Metadata, error) {
	row := s.db.QueryRowContext(ctx, selectRuns+` WHERE id = ?`, id)
	meta, err := scanMetadata(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return meta, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMetadata(sc scanner) (*Metadata, error) {
	var (
		meta      Metadata
		createdAt int64
		elapsed   int64
		columns   string
		metrics   sql.NullString
		scenario  sql.NullString
	)
	if err := sc.Scan(&meta.ID, &meta.Name, &meta.Mode, &meta.Report, &createdAt, &elapsed, &meta.Rows, &columns, &metrics, &scenario); err != nil {
		return nil, err
	}
	meta.Timestamp = time.Unix(0, createdAt)
	meta.Elapsed = time.Duration(elapsed)
	if err := json.Unmarshal([]byte(columns), &meta.Columns); err != nil {
		return nil, fmt.Errorf("run %s: bad column list: %w", meta.ID, err)
	}
	if metrics.Valid {
		if err := json.Unmarshal([]byte(metrics.String), &meta.Metrics); err != nil {
			return nil, fmt.Errorf("run %s: bad metrics: %w", meta.ID, err)
		}
	}
	if scenario.Valid {
		meta.Scenario = &config.Scenario{}
		if err := json.Unmarshal([]byte(scenario.String), meta.Scenario); err != nil {
			return nil, fmt.Errorf("run %s: bad scenario: %w", meta.ID, err)
		}
	}
	return &meta, nil
}

func (s *SQLiteStore) LoadResult(ctx context.Context, id string) (dynamo.Result, error) {
	meta, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	result := make(dynamo.Result, len(meta.Columns))
	for _, name := range meta.Columns {
		result[name] = make([]float64, meta.Rows)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT quantity, row_index, value, special FROM run_values WHERE run_id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name    string
			i       int
			value   sql.NullFloat64
			special sql.NullString
		)
		if err := rows.Scan(&name, &i, &value, &special); err != nil {
			return nil, err
		}
		v := value.Float64
		if special.Valid {
			if v, err = parseSpecial(special.String); err != nil {
				return nil, fmt.Errorf("run %s: %s[%d]: %w", id, name, i, err)
			}
		} else if !value.Valid {
			return nil, fmt.Errorf("run %s: %s[%d] has no value", id, name, i)
		}
		col, ok := result[name]
		if !ok || i < 0 || i >= len(col) {
			return nil, fmt.Errorf("run %s: unexpected value %s[%d]", id, name, i)
		}
		col[i] = v
	}
	return result, rows.Err()
}
