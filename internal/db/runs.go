package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/topomap/internal/terrain"
)

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = errors.New("render run not found")

// Run is one catalogued pipeline invocation.
type Run struct {
	ID                 string
	CreatedAt          time.Time
	InputPath          string
	OutputPath         string
	Rows, Cols         int
	Bounds             terrain.GeoBounds
	EarthRadius        float64
	SeaLevel           int
	SeaLevelOrder      string
	MinLakeCells       int
	LatitudeConvention string
	ElevationMin       int
	ElevationMax       int
	Regions            int
	LakeCount          int
	LakeCells          int
	Duration           time.Duration
	Version            string
	GitSHA             string
}

// LakeRecord is one detected lake of a run.
type LakeRecord struct {
	RunID       string
	Label       int
	Elevation   int
	Cells       int
	RowMin      int
	RowMax      int
	ColMin      int
	ColMax      int
	CentroidLat float64
	CentroidLon float64
}

// NewLakeRecords converts classifier output into catalog rows.
func NewLakeRecords(lakes []terrain.Lake, b terrain.GeoBounds, rows, cols int) []LakeRecord {
	out := make([]LakeRecord, 0, len(lakes))
	for _, l := range lakes {
		lat, lon := l.Centroid(b, rows, cols)
		out = append(out, LakeRecord{
			Label:       l.Label,
			Elevation:   l.Elevation,
			Cells:       l.Cells,
			RowMin:      l.RowMin,
			RowMax:      l.RowMax,
			ColMin:      l.ColMin,
			ColMax:      l.ColMax,
			CentroidLat: lat,
			CentroidLon: lon,
		})
	}
	return out
}

// RecordRun stores run and its lakes in one transaction. An empty run.ID
// is replaced with a new UUID and a zero CreatedAt with the current time;
// the stored id is returned.
func (db *DB) RecordRun(ctx context.Context, run Run, lakes []LakeRecord) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO render_runs (
			run_id, created_unix_ns, input_path, output_path, grid_rows, grid_cols,
			lat_min, lat_max, lon_min, lon_max, earth_radius, sea_level,
			sea_level_order, min_lake_cells, latitude_convention,
			elevation_min, elevation_max, regions, lake_count, lake_cells,
			duration_ms, version, git_sha
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UnixNano(), run.InputPath, run.OutputPath, run.Rows, run.Cols,
		run.Bounds.LatMin, run.Bounds.LatMax, run.Bounds.LonMin, run.Bounds.LonMax, run.EarthRadius, run.SeaLevel,
		run.SeaLevelOrder, run.MinLakeCells, run.LatitudeConvention,
		run.ElevationMin, run.ElevationMax, run.Regions, run.LakeCount, run.LakeCells,
		run.Duration.Milliseconds(), run.Version, run.GitSHA,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert render run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO lakes (
			run_id, label, elevation, cells, row_min, row_max, col_min, col_max,
			centroid_lat, centroid_lon
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare lake insert: %w", err)
	}
	defer stmt.Close()

	for _, l := range lakes {
		if _, err := stmt.ExecContext(ctx,
			run.ID, l.Label, l.Elevation, l.Cells, l.RowMin, l.RowMax, l.ColMin, l.ColMax,
			l.CentroidLat, l.CentroidLon,
		); err != nil {
			return "", fmt.Errorf("failed to insert lake %d: %w", l.Label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit render run: %w", err)
	}
	return run.ID, nil
}

const runColumns = `
	run_id, created_unix_ns, input_path, output_path, grid_rows, grid_cols,
	lat_min, lat_max, lon_min, lon_max, earth_radius, sea_level,
	sea_level_order, min_lake_cells, latitude_convention,
	elevation_min, elevation_max, regions, lake_count, lake_cells,
	duration_ms, version, git_sha`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (Run, error) {
	var r Run
	var createdNs, durationMs int64
	err := s.Scan(
		&r.ID, &createdNs, &r.InputPath, &r.OutputPath, &r.Rows, &r.Cols,
		&r.Bounds.LatMin, &r.Bounds.LatMax, &r.Bounds.LonMin, &r.Bounds.LonMax, &r.EarthRadius, &r.SeaLevel,
		&r.SeaLevelOrder, &r.MinLakeCells, &r.LatitudeConvention,
		&r.ElevationMin, &r.ElevationMax, &r.Regions, &r.LakeCount, &r.LakeCells,
		&durationMs, &r.Version, &r.GitSHA,
	)
	if err != nil {
		return Run{}, err
	}
	r.CreatedAt = time.Unix(0, createdNs)
	r.Duration = time.Duration(durationMs) * time.Millisecond
	return r, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM render_runs ORDER BY created_unix_ns DESC, run_id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query render runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan render run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun loads a single run by id.
func (db *DB) GetRun(ctx context.Context, id string) (Run, error) {
	row := db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM render_runs WHERE run_id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("failed to load render run %s: %w", id, err)
	}
	return r, nil
}

// ListLakes returns the lakes of a run ordered by label.
func (db *DB) ListLakes(ctx context.Context, runID string) ([]LakeRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT run_id, label, elevation, cells, row_min, row_max, col_min, col_max,
			centroid_lat, centroid_lon
		FROM lakes WHERE run_id = ? ORDER BY label`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lakes: %w", err)
	}
	defer rows.Close()

	var lakes []LakeRecord
	for rows.Next() {
		var l LakeRecord
		if err := rows.Scan(
			&l.RunID, &l.Label, &l.Elevation, &l.Cells, &l.RowMin, &l.RowMax, &l.ColMin, &l.ColMax,
			&l.CentroidLat, &l.CentroidLon,
		); err != nil {
			return nil, fmt.Errorf("failed to scan lake: %w", err)
		}
		lakes = append(lakes, l)
	}
	return lakes, rows.Err()
}

// DeleteRun removes a run; its lakes go with it.
func (db *DB) DeleteRun(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM render_runs WHERE run_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete render run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}
