package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/patrickmn/go-cache"
	_ "modernc.org/sqlite"

	"github.com/spektr-org/choropleth/engine"
	"github.com/spektr-org/choropleth/schema"
)

const (
	SQLiteDriverName = "sqlite"
	DBFileName       = "choropleth.db"
)

// NewSQLiteDB opens the database file inside dataDir.
func NewSQLiteDB(dataDir string, readonly bool) (*sql.DB, error) {
	dbPath := filepath.Join(dataDir, DBFileName)
	if readonly {
		dbPath = dbPath + "?mode=ro"
	}
	slog.Info("opening SQLite DB", "dbPath", dbPath)
	db, err := sql.Open(SQLiteDriverName, dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// SQLiteStore keeps each row as a JSON blob so missing and null values
// survive a round trip. Decoded datasets are cached for ttl or until the
// next write; a non-positive ttl reads through to the database every time.
type SQLiteStore struct {
	db    *sql.DB
	cache *cache.Cache
}

func NewSQLiteStore(db *sql.DB, ttl time.Duration) *SQLiteStore {
	s := &SQLiteStore{db: db}
	if ttl > 0 {
		s.cache = cache.New(ttl, 2*ttl)
	}
	return s
}

func (s *SQLiteStore) cached(key string) (any, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(key)
}

func (s *SQLiteStore) remember(key string, v any) {
	if s.cache != nil {
		s.cache.Set(key, v, cache.DefaultExpiration)
	}
}

func (s *SQLiteStore) forget(key string) {
	if s.cache != nil {
		s.cache.Delete(key)
	}
}

var _ Store = &SQLiteStore{}

func (s *SQLiteStore) Init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS choropleth_datasets (
			data_type TEXT PRIMARY KEY,
			row_count INTEGER,
			loaded_at TEXT
		);
		CREATE TABLE IF NOT EXISTS choropleth_rows (
			data_type TEXT,
			idx INTEGER,
			r BLOB,
			PRIMARY KEY (data_type, idx)
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create dataset tables: %w", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS choropleth_metadata (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			m BLOB
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create choropleth_metadata table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) PutDataset(ctx context.Context, dt engine.DataType, rows []engine.Row) error {
	if dt == engine.DataTypeNone {
		return engine.ErrUnknownDataType
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM choropleth_rows WHERE data_type = ?", dt.String()); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO choropleth_rows (data_type, idx, r) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, row := range rows {
		rowJSON, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to json encode row %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, dt.String(), i, rowJSON); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO choropleth_datasets (data_type, row_count, loaded_at) VALUES (?, ?, ?)
		ON CONFLICT(data_type) DO UPDATE SET row_count = excluded.row_count, loaded_at = excluded.loaded_at
	`, dt.String(), len(rows), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	s.forget(dt.String())
	slog.Info("dataset stored", "data_type", dt.String(), "rows", len(rows))
	return nil
}

func (s *SQLiteStore) Dataset(ctx context.Context, dt engine.DataType) (engine.RowView, error) {
	if view, found := s.cached(dt.String()); found {
		return view.(engine.RowView), nil
	}

	var count int
	err := s.db.QueryRowContext(ctx, "SELECT row_count FROM choropleth_datasets WHERE data_type = ?", dt.String()).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s dataset: %w", dt, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	rs, err := s.db.QueryContext(ctx, "SELECT r FROM choropleth_rows WHERE data_type = ? ORDER BY idx", dt.String())
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	rows := make([]engine.Row, 0, count)
	for rs.Next() {
		var blob []byte
		if err := rs.Scan(&blob); err != nil {
			return nil, err
		}
		var row engine.Row
		if err := json.Unmarshal(blob, &row); err != nil {
			return nil, fmt.Errorf("failed to json decode row: %w", err)
		}
		rows = append(rows, row)
	}
	if err := rs.Err(); err != nil {
		return nil, err
	}

	view := engine.NewSliceView(rows)
	s.remember(dt.String(), view)
	return view, nil
}

func (s *SQLiteStore) DataTypes(ctx context.Context) ([]engine.DataType, error) {
	rs, err := s.db.QueryContext(ctx, "SELECT data_type FROM choropleth_datasets")
	if err != nil {
		return nil, err
	}
	defer rs.Close()

	loaded := make(map[engine.DataType]bool)
	for rs.Next() {
		var name string
		if err := rs.Scan(&name); err != nil {
			return nil, err
		}
		dt, err := engine.ParseDataType(name)
		if err != nil {
			return nil, err
		}
		loaded[dt] = true
	}
	if err := rs.Err(); err != nil {
		return nil, err
	}

	out := make([]engine.DataType, 0, len(loaded))
	for _, dt := range engine.DataTypes {
		if loaded[dt] {
			out = append(out, dt)
		}
	}
	return out, nil
}

const metadataCacheKey = "metadata"

func (s *SQLiteStore) PutMetadata(ctx context.Context, m *schema.Metadata) error {
	if err := m.Validate(); err != nil {
		return err
	}
	metaJSON, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to json encode metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO choropleth_metadata (id, m) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET m = excluded.m
	`, metaJSON)
	if err != nil {
		return err
	}
	s.forget(metadataCacheKey)
	return nil
}

func (s *SQLiteStore) Metadata(ctx context.Context) (*schema.Metadata, error) {
	if m, found := s.cached(metadataCacheKey); found {
		return m.(*schema.Metadata), nil
	}

	var blob []byte
	err := s.db.QueryRowContext(ctx, "SELECT m FROM choropleth_metadata WHERE id = 1").Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("metadata: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var m schema.Metadata
	if err := json.Unmarshal(blob, &m); err != nil {
		return nil, fmt.Errorf("failed to json decode metadata: %w", err)
	}
	s.remember(metadataCacheKey, &m)
	return &m, nil
}
