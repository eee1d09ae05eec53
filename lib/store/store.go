// Package store archives measurement results in a SQLite database.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"github.com/mpictor/psmeasure"
	"github.com/mpictor/psmeasure/lib/params"
	"github.com/mpictor/psmeasure/lib/sweep"
)

// ErrNotFound is returned by Load for an unknown run.
var ErrNotFound = errors.New("run not found")

// Store is a result archive.
type Store struct {
	db *sql.DB
}

// Open opens or creates the archive at path. Use ":memory:" for a
// throwaway archive.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one connection keeps ":memory:" databases alive and serializes writers
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id      TEXT PRIMARY KEY,
			device      TEXT NOT NULL,
			created_at  BIGINT NOT NULL,
			points      INTEGER NOT NULL,
			secondary   TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS samples (
			run_id      TEXT NOT NULL,
			idx         INTEGER NOT NULL,
			voltage     DOUBLE NOT NULL,
			vals        TEXT NOT NULL,
			PRIMARY KEY (run_id, idx),
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Save stores a valid result. It satisfies psmeasure.Archiver.
func (s *Store) Save(r *psmeasure.Result) error {
	if !r.Valid() {
		return errors.New("refusing to archive an invalid result")
	}
	sec, err := json.Marshal(r.Secondary())
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (run_id, device, created_at, points, secondary) VALUES (?, ?, ?, ?, ?)`,
		r.ID(), r.Device(), r.Created().UnixNano(), r.Points(), string(sec),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID(), err)
	}
	voltages := r.Voltages()
	for i, smp := range r.Samples() {
		vals, err := encodeValues(smp.Values)
		if err != nil {
			return fmt.Errorf("sample %d of run %s: %w", i, r.ID(), err)
		}
		_, err = tx.Exec(
			`INSERT INTO samples (run_id, idx, voltage, vals) VALUES (?, ?, ?, ?)`,
			r.ID(), i, voltages[i], vals,
		)
		if err != nil {
			return fmt.Errorf("insert sample %d of run %s: %w", i, r.ID(), err)
		}
	}
	return tx.Commit()
}

// Run is the summary row of an archived result.
type Run struct {
	ID      string
	Device  string
	Created time.Time
	Points  int
	Samples int
}

// List returns all runs, newest first.
func (s *Store) List() ([]Run, error) {
	rows, err := s.db.Query(`
		SELECT r.run_id, r.device, r.created_at, r.points, COUNT(s.idx)
		FROM runs r LEFT JOIN samples s ON s.run_id = r.run_id
		GROUP BY r.run_id
		ORDER BY r.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var created int64
		if err := rows.Scan(&run.ID, &run.Device, &created, &run.Points, &run.Samples); err != nil {
			return nil, err
		}
		run.Created = time.Unix(0, created)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Load rebuilds an archived result.
func (s *Store) Load(id string) (*psmeasure.Result, error) {
	var (
		device  string
		created int64
		secJSON string
	)
	err := s.db.QueryRow(
		`SELECT device, created_at, secondary FROM runs WHERE run_id = ?`, id,
	).Scan(&device, &created, &secJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	var sec params.Secondary
	if err := json.Unmarshal([]byte(secJSON), &sec); err != nil {
		return nil, fmt.Errorf("run %s: secondary: %w", id, err)
	}

	rows, err := s.db.Query(`SELECT voltage, vals FROM samples WHERE run_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		voltages []float64
		samples  []sweep.Sample
	)
	for rows.Next() {
		var v float64
		var valsText string
		if err := rows.Scan(&v, &valsText); err != nil {
			return nil, err
		}
		vals, err := decodeValues(valsText)
		if err != nil {
			return nil, fmt.Errorf("run %s: sample values: %w", id, err)
		}
		voltages = append(voltages, v)
		samples = append(samples, sweep.Sample{Voltage: v, Values: vals})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return psmeasure.NewResult(id, device, time.Unix(0, created), sec, voltages, samples), nil
}

// sampleValues is the stored form of one sample's data. YAML carries the
// NaN and infinity values an analyzer may report, which JSON cannot.
type sampleValues struct {
	V []float64 `yaml:"v,flow"`
}

func encodeValues(vals []float64) (string, error) {
	b, err := yaml.Marshal(sampleValues{V: vals})
	return string(b), err
}

func decodeValues(s string) ([]float64, error) {
	var sv sampleValues
	if err := yaml.Unmarshal([]byte(s), &sv); err != nil {
		return nil, err
	}
	return sv.V, nil
}
