package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// Pure-Go SQLite driver, registered as "sqlite".
	_ "modernc.org/sqlite"

	"github.com/i474232898/wetter/internal/weather"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS meta (
	id      INTEGER PRIMARY KEY CHECK (id = 1),
	version INTEGER NOT NULL,
	lat     REAL    NOT NULL,
	lon     REAL    NOT NULL
);
CREATE TABLE IF NOT EXISTS measurements (
	ts          TEXT PRIMARY KEY,
	temperature REAL NOT NULL,
	wind        REAL NOT NULL
);`

// SQLite keeps the store in a SQLite database. Timestamps are stored in the
// canonical UTC text format, so ordering by ts is chronological.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and if needed creates) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One writer; the store is a single-user file.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Load reads the store. An empty database is seeded with the default dataset.
func (s *SQLite) Load(ctx context.Context) (Raw, error) {
	var raw Raw
	err := s.db.QueryRowContext(ctx, `SELECT version, lat, lon FROM meta WHERE id = 1`).
		Scan(&raw.Version, &raw.Lat, &raw.Lon)
	if errors.Is(err, sql.ErrNoRows) {
		raw = Default()
		if err := s.Save(ctx, raw); err != nil {
			return Raw{}, fmt.Errorf("seed default store: %w", err)
		}
		return raw, nil
	}
	if err != nil {
		return Raw{}, fmt.Errorf("read meta: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT ts, temperature, wind FROM measurements ORDER BY ts`)
	if err != nil {
		return Raw{}, fmt.Errorf("read measurements: %w", err)
	}
	defer rows.Close()

	var temps, winds []*float64
	for rows.Next() {
		var (
			ts   string
			temp sql.NullFloat64
			wind sql.NullFloat64
		)
		if err := rows.Scan(&ts, &temp, &wind); err != nil {
			return Raw{}, fmt.Errorf("scan measurement: %w", err)
		}
		raw.Data.Columns = append(raw.Data.Columns, ts)
		temps = append(temps, nullable(temp))
		winds = append(winds, nullable(wind))
	}
	if err := rows.Err(); err != nil {
		return Raw{}, fmt.Errorf("iterate measurements: %w", err)
	}

	raw.Data.Index = []string{weather.ColumnTemperature, weather.ColumnWind}
	raw.Data.Data = [][]*float64{temps, winds}
	return raw, nil
}

// Save replaces the stored table with raw inside one transaction.
func (s *SQLite) Save(ctx context.Context, raw Raw) error {
	st, err := Load(raw)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO meta (id, version, lat, lon) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET version = excluded.version, lat = excluded.lat, lon = excluded.lon`,
		raw.Version, raw.Lat, raw.Lon); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM measurements`); err != nil {
		return fmt.Errorf("clear measurements: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO measurements (ts, temperature, wind) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range st.Rows() {
		if _, err := stmt.ExecContext(ctx, FormatTime(r.Time), r.Temperature, r.Wind); err != nil {
			return fmt.Errorf("insert measurement %s: %w", FormatTime(r.Time), err)
		}
	}

	return tx.Commit()
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return float(v.Float64)
}
