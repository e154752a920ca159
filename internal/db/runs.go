package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/mosaic.offsets/internal/offsets"
)

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// DefaultListLimit caps ListRuns when no positive limit is given.
const DefaultListLimit = 50

// ExposureOffset is one exposure's stored offset.
type ExposureOffset struct {
	Index int     `json:"index"`
	Name  string  `json:"name"`
	XOff  float64 `json:"x_off"`
	YOff  float64 `json:"y_off"`
}

// OffsetRun is a persisted offset determination.
type OffsetRun struct {
	RunID         string           `json:"run_id"`
	CreatedAt     time.Time        `json:"created_at"`
	Format        string           `json:"format"`
	Mode          string           `json:"mode"`
	Scale         float64          `json:"scale"`
	PositionAngle float64          `json:"position_angle"`
	ExposureCount int              `json:"exposure_count"`
	Exposures     []ExposureOffset `json:"exposures,omitempty"`
}

// NewOffsetRun builds an unsaved run from a pipeline result. names labels
// each exposure and may be shorter than the offsets; missing names are
// generated.
func NewOffsetRun(res *offsets.Result, names []string) *OffsetRun {
	run := &OffsetRun{
		Format:        res.Format.String(),
		Mode:          res.Mode.String(),
		Scale:         res.Scale,
		PositionAngle: res.PositionAngle,
		ExposureCount: len(res.Offsets),
		Exposures:     make([]ExposureOffset, len(res.Offsets)),
	}
	for i, o := range res.Offsets {
		name := fmt.Sprintf("exp%03d", i)
		if i < len(names) && names[i] != "" {
			name = names[i]
		}
		run.Exposures[i] = ExposureOffset{Index: i, Name: name, XOff: o.X, YOff: o.Y}
	}
	return run
}

// Result converts a stored run back into a pipeline result.
func (r *OffsetRun) Result() (*offsets.Result, error) {
	format, err := offsets.ParseFormat(r.Format)
	if err != nil {
		return nil, err
	}
	mode, err := offsets.ParseMode(r.Mode)
	if err != nil {
		return nil, err
	}
	res := &offsets.Result{
		Format:        format,
		Mode:          mode,
		Scale:         r.Scale,
		PositionAngle: r.PositionAngle,
		Offsets:       make([]offsets.Offset, len(r.Exposures)),
	}
	for i, e := range r.Exposures {
		res.Offsets[i] = offsets.Offset{X: e.XOff, Y: e.YOff}
	}
	return res, nil
}

// RecordRun stores run, assigning its RunID and CreatedAt.
func (db *DB) RecordRun(run *OffsetRun) error {
	run.RunID = uuid.NewString()
	run.CreatedAt = db.clock.Now().UTC()
	run.ExposureCount = len(run.Exposures)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO offset_runs (
			run_id, created_at_ns, format, mode, scale, position_angle, exposure_count
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.CreatedAt.UnixNano(), run.Format, run.Mode,
		run.Scale, run.PositionAngle, run.ExposureCount,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, e := range run.Exposures {
		_, err = tx.Exec(
			`INSERT INTO run_exposures (run_id, idx, name, x_off, y_off) VALUES (?, ?, ?, ?, ?)`,
			run.RunID, e.Index, e.Name, e.XOff, e.YOff,
		)
		if err != nil {
			return fmt.Errorf("failed to insert exposure %d: %w", e.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// GetRun returns the run with the given ID, exposures included.
func (db *DB) GetRun(id string) (*OffsetRun, error) {
	var (
		run       OffsetRun
		createdNs int64
	)
	err := db.QueryRow(
		`SELECT run_id, created_at_ns, format, mode, scale, position_angle, exposure_count
		FROM offset_runs WHERE run_id = ?`, id,
	).Scan(&run.RunID, &createdNs, &run.Format, &run.Mode, &run.Scale, &run.PositionAngle, &run.ExposureCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	run.CreatedAt = time.Unix(0, createdNs).UTC()

	rows, err := db.Query(
		`SELECT idx, name, x_off, y_off FROM run_exposures WHERE run_id = ? ORDER BY idx`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query exposures: %w", err)
	}
	defer rows.Close()

	run.Exposures = make([]ExposureOffset, 0, run.ExposureCount)
	for rows.Next() {
		var e ExposureOffset
		if err := rows.Scan(&e.Index, &e.Name, &e.XOff, &e.YOff); err != nil {
			return nil, err
		}
		run.Exposures = append(run.Exposures, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns the most recent runs, newest first, without their
// exposures.
func (db *DB) ListRuns(limit int) ([]OffsetRun, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := db.Query(
		`SELECT run_id, created_at_ns, format, mode, scale, position_angle, exposure_count
		FROM offset_runs ORDER BY created_at_ns DESC, run_id LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []OffsetRun{}
	for rows.Next() {
		var (
			run       OffsetRun
			createdNs int64
		)
		if err := rows.Scan(&run.RunID, &createdNs, &run.Format, &run.Mode, &run.Scale, &run.PositionAngle, &run.ExposureCount); err != nil {
			return nil, err
		}
		run.CreatedAt = time.Unix(0, createdNs).UTC()
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// DeleteRun removes a run and its exposures.
func (db *DB) DeleteRun(id string) error {
	res, err := db.Exec(`DELETE FROM offset_runs WHERE run_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
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
