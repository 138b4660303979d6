// Package diagstore persists diagnostic event counters (the InputEvent and
// PipelineEvent flag bits of spec.md §7) to a local SQLite database for
// later inspection — a low-rate write path entirely off the realtime
// network/driver threads. Grounded on the teacher's db/db.go: same
// modernc.org/sqlite driver, same sql.Open("sqlite", path) + CREATE TABLE
// IF NOT EXISTS bootstrap shape.
package diagstore

import (
	"database/sql"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
	_ "modernc.org/sqlite"
)

// Store wraps a SQLite-backed event counter table.
type Store struct {
	db *sql.DB
}

// Open creates (if necessary) and returns the diagnostics database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS event_counts (
			scope TEXT NOT NULL,
			ident TEXT NOT NULL,
			flag_name TEXT NOT NULL,
			count BIGINT NOT NULL DEFAULT 0,
			last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (scope, ident, flag_name)
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("diagstore: bootstrap schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordInputEvent increments the counter for an InputEvent flag name
// observed on the connection identified by ident (spec.md §7).
func (s *Store) RecordInputEvent(ident, flagName string) error {
	return s.bump("input", ident, flagName)
}

// RecordPipelineEvent increments the counter for a PipelineEvent flag name
// observed on the channel identified by ident.
func (s *Store) RecordPipelineEvent(ident, flagName string) error {
	return s.bump("pipeline", ident, flagName)
}

func (s *Store) bump(scope, ident, flagName string) error {
	_, err := s.db.Exec(`
		INSERT INTO event_counts (scope, ident, flag_name, count, last_seen)
		VALUES (?, ?, ?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT(scope, ident, flag_name) DO UPDATE SET
			count = count + 1,
			last_seen = CURRENT_TIMESTAMP
	`, scope, ident, flagName)
	return err
}

// Count is one aggregated (scope, ident, flag) observation.
type Count struct {
	Scope    string
	Ident    string
	FlagName string
	Count    int64
}

// Counts returns every recorded counter, most-recently-updated first, for
// the admin HTTP diagnostics surface.
func (s *Store) Counts() ([]Count, error) {
	rows, err := s.db.Query(`
		SELECT scope, ident, flag_name, count FROM event_counts
		ORDER BY last_seen DESC LIMIT 500
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Count
	for rows.Next() {
		var c Count
		if err := rows.Scan(&c.Scope, &c.Ident, &c.FlagName, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Summary is a distributional view over one flag's per-ident counts,
// surfaced by the admin diagnostics page so a spike on one connection
// stands out against the typical count.
type Summary struct {
	FlagName string
	Mean     float64
	P50      float64
	P85      float64
}

// Summarize groups counts by flag name and computes the mean and empirical
// 50th/85th percentiles across idents, mirroring the teacher's db.go use
// of gonum's stat.Quantile/stat.Empirical for per-metric percentile rollups.
func Summarize(counts []Count) []Summary {
	byFlag := make(map[string][]float64)
	for _, c := range counts {
		byFlag[c.FlagName] = append(byFlag[c.FlagName], float64(c.Count))
	}

	names := make([]string, 0, len(byFlag))
	for name := range byFlag {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Summary, 0, len(names))
	for _, name := range names {
		values := byFlag[name]
		sorted := append([]float64(nil), values...)
		sort.Float64s(sorted)
		out = append(out, Summary{
			FlagName: name,
			Mean:     stat.Mean(values, nil),
			P50:      stat.Quantile(0.5, stat.Empirical, sorted, nil),
			P85:      stat.Quantile(0.85, stat.Empirical, sorted, nil),
		})
	}
	return out
}
