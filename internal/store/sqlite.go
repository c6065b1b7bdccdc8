package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/i474232898/rain-outlook/internal/weather"
)

//go:embed sql/insert-location.sql
var insertLocationSQL string

//go:embed sql/insert-observation.sql
var insertObservationSQL string

//go:embed sql/get-observations.sql
var getObservationsSQL string

//go:embed sql/get-locations.sql
var getLocationsSQL string

const dateLayout = "2006-01-02"

// OpenSQLite opens (creating if needed) a file-backed SQLite database and
// applies migrations.
func OpenSQLite(path string) (*sql.DB, error) {
	dsn, err := buildDSN(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	// Replacing every table is one large write; keep a single writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func buildDSN(path string) (string, error) {
	params := []string{
		"_foreign_keys=on",
		"_busy_timeout=5000",
		"_journal_mode=WAL",
	}
	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}

// SQLiteStore keeps feature tables in SQLite so they survive restarts.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an already migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// ReplaceTables rewrites all history inside one transaction, so readers see
// either the previous tables or the new ones.
func (s *SQLiteStore) ReplaceTables(tables []*weather.FeatureTable) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.Error("rollback replace tables", "error", rbErr)
			}
		}
	}()

	if _, err = tx.Exec(`DELETE FROM observations`); err != nil {
		return fmt.Errorf("clear observations: %w", err)
	}
	if _, err = tx.Exec(`DELETE FROM locations`); err != nil {
		return fmt.Errorf("clear locations: %w", err)
	}

	stmt, err := tx.Prepare(insertObservationSQL)
	if err != nil {
		return fmt.Errorf("prepare insert observation: %w", err)
	}
	defer stmt.Close()

	for _, t := range tables {
		res, execErr := tx.Exec(insertLocationSQL, t.Location())
		if execErr != nil {
			err = fmt.Errorf("insert location %q: %w", t.Location(), execErr)
			return err
		}
		id, idErr := res.LastInsertId()
		if idErr != nil {
			err = fmt.Errorf("location id %q: %w", t.Location(), idErr)
			return err
		}
		for _, r := range t.Records() {
			if _, err = stmt.Exec(id, r.Date.Format(dateLayout),
				nullFloat(r.SunshineHours),
				nullFloat(r.HumidityAfternoon),
				nullInt(r.CloudCoverAfternoon),
				r.RainedToday,
				nullBool(r.RainedTomorrow),
			); err != nil {
				return fmt.Errorf("insert observation %s %s: %w", t.Location(), r.Date.Format(dateLayout), err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetTable loads the table for a location. The observations are read by
// location name in a single statement, so a concurrent ReplaceTables is seen
// either entirely or not at all.
func (s *SQLiteStore) GetTable(location string) (*weather.FeatureTable, error) {
	rows, err := s.db.Query(getObservationsSQL, location)
	if err != nil {
		return nil, fmt.Errorf("query observations %q: %w", location, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close observation rows", "error", err)
		}
	}()

	var records []weather.DailyRecord
	for rows.Next() {
		var (
			date     string
			sunshine sql.NullFloat64
			humidity sql.NullFloat64
			cloud    sql.NullInt64
			today    bool
			tomorrow sql.NullBool
		)
		if err := rows.Scan(&date, &sunshine, &humidity, &cloud, &today, &tomorrow); err != nil {
			return nil, err
		}
		d, err := time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", date, err)
		}
		rec := weather.DailyRecord{Date: d, RainedToday: today}
		if sunshine.Valid {
			rec.SunshineHours = &sunshine.Float64
		}
		if humidity.Valid {
			rec.HumidityAfternoon = &humidity.Float64
		}
		if cloud.Valid {
			c := int(cloud.Int64)
			rec.CloudCoverAfternoon = &c
		}
		if tomorrow.Valid {
			rec.RainedTomorrow = &tomorrow.Bool
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}
	return weather.NewFeatureTable(location, records)
}

// Locations returns a summary per location, sorted by name.
func (s *SQLiteStore) Locations() ([]weather.LocationSummary, error) {
	rows, err := s.db.Query(getLocationsSQL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close location rows", "error", err)
		}
	}()

	out := []weather.LocationSummary{}
	for rows.Next() {
		var (
			ls       weather.LocationSummary
			from, to string
		)
		if err := rows.Scan(&ls.Name, &from, &to, &ls.Records); err != nil {
			return nil, err
		}
		if ls.From, err = time.Parse(dateLayout, from); err != nil {
			return nil, fmt.Errorf("parse date %q: %w", from, err)
		}
		if ls.To, err = time.Parse(dateLayout, to); err != nil {
			return nil, fmt.Errorf("parse date %q: %w", to, err)
		}
		out = append(out, ls)
	}
	return out, rows.Err()
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullBool(v *bool) any {
	if v == nil {
		return nil
	}
	return *v
}
