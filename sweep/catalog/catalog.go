// Package catalog records completed sweep runs and their aggregate records in a
// SQLite database, so results from many runs can be queried together.
package catalog

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/inference-sim/probe-sweep/sweep"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	trials      INTEGER NOT NULL,
	normalize   INTEGER NOT NULL,
	multiplier  REAL NOT NULL,
	created_at  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS aggregates (
	run_id       TEXT NOT NULL REFERENCES runs(id),
	ratio_order  INTEGER NOT NULL,
	probe_ratio  TEXT NOT NULL,
	ideal        INTEGER NOT NULL,
	utilization  REAL NOT NULL,
	mean         REAL NOT NULL,
	stddev       REAL NOT NULL,
	samples      INTEGER NOT NULL,
	PRIMARY KEY (run_id, probe_ratio, utilization)
);
`

// Row is one stored aggregate record.
type Row struct {
	RunID       string
	ProbeRatio  string
	Ideal       bool
	Utilization float64
	Mean        float64
	StdDev      float64
	Samples     int
}

// Catalog is a SQLite-backed sweep.Recorder.
type Catalog struct {
	db *sql.DB
}

// Open opens (creating if needed) the catalog at path. ":memory:" works for
// throwaway catalogs.
func Open(ctx context.Context, path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening catalog %s", path)
	}
	// A single connection keeps ":memory:" databases shared across queries.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "creating catalog schema")
	}
	return &Catalog{db: db}, nil
}

func (c *Catalog) Close() error { return c.db.Close() }

// RecordRun stores a run and all of its aggregate records in one transaction.
func (c *Catalog) RecordRun(ctx context.Context, run sweep.RunInfo, aggs []sweep.RatioAggregate) (err error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning catalog transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, name, trials, normalize, multiplier, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Name, run.Trials, run.Normalize, run.Multiplier, run.StartedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return errors.Wrapf(err, "inserting run %s", run.ID)
	}
	for order, a := range aggs {
		for _, rec := range a.Records {
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO aggregates (run_id, ratio_order, probe_ratio, ideal, utilization, mean, stddev, samples)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				run.ID, order, a.Ratio.String(), a.Ratio.IsIdeal(), rec.Utilization,
				rec.MeanResponseTime, rec.StdDevResponseTime, rec.Samples,
			); err != nil {
				return errors.Wrapf(err, "inserting aggregate for %s", a.Ratio)
			}
		}
	}
	return errors.Wrap(tx.Commit(), "committing catalog transaction")
}

// Runs lists stored runs, oldest first.
func (c *Catalog) Runs(ctx context.Context) ([]sweep.RunInfo, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, name, trials, normalize, multiplier, created_at FROM runs ORDER BY created_at, id`)
	if err != nil {
		return nil, errors.Wrap(err, "querying runs")
	}
	defer func() { _ = rows.Close() }()

	var runs []sweep.RunInfo
	for rows.Next() {
		var (
			run     sweep.RunInfo
			created string
		)
		if err := rows.Scan(&run.ID, &run.Name, &run.Trials, &run.Normalize, &run.Multiplier, &created); err != nil {
			return nil, errors.Wrap(err, "scanning run")
		}
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, errors.Wrapf(err, "run %s: bad created_at", run.ID)
		}
		runs = append(runs, run)
	}
	return runs, errors.Wrap(rows.Err(), "iterating runs")
}

// Records returns the aggregate rows of one run in axis order, ascending by
// utilization within each probe ratio.
func (c *Catalog) Records(ctx context.Context, runID string) ([]Row, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT run_id, probe_ratio, ideal, utilization, mean, stddev, samples
		 FROM aggregates WHERE run_id = ? ORDER BY ratio_order, utilization`, runID)
	if err != nil {
		return nil, errors.Wrapf(err, "querying aggregates of %s", runID)
	}
	defer func() { _ = rows.Close() }()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.RunID, &r.ProbeRatio, &r.Ideal, &r.Utilization, &r.Mean, &r.StdDev, &r.Samples); err != nil {
			return nil, errors.Wrap(err, "scanning aggregate")
		}
		out = append(out, r)
	}
	return out, errors.Wrap(rows.Err(), "iterating aggregates")
}
