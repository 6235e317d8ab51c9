package sqlite

import (
	"database/sql"
	"fmt"

	"mitoseg/internal/model"
)

// RunRepository implements repository.RunRepository for SQLite.
type RunRepository struct {
	db *DB
}

// NewRunRepository creates a new SQLite run repository.
func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// Insert stores a run and its objects in a single transaction.
func (r *RunRepository) Insert(run *model.BatchResult, records []model.PredictionRecord) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO runs (id, predictor, started_at, finished_at, image_id, record_file, images_processed, total_objects, mean_area)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.RunID, run.Predictor, run.StartedAt, run.FinishedAt, run.ImageID, run.RecordFile,
		run.ImagesProcessed, run.TotalObjects, run.MeanArea)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO objects (run_id, file_name, image_id, class_name, object_number, area,
			centroid_row, centroid_col, min_row, min_col, max_row, max_col, perimeter)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.Exec(run.RunID, rec.FileName, rec.ImageID, rec.ClassName, rec.ObjectNumber, rec.Area,
			rec.Centroid.Row, rec.Centroid.Col, rec.BBox.MinRow, rec.BBox.MinCol, rec.BBox.MaxRow, rec.BBox.MaxCol,
			rec.Perimeter); err != nil {
			return fmt.Errorf("failed to insert object: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// SaveRun lets the repository serve as a predictor ledger.
func (r *RunRepository) SaveRun(run *model.BatchResult, records []model.PredictionRecord) error {
	return r.Insert(run, records)
}

const runColumns = `id, predictor, started_at, finished_at, image_id, record_file, images_processed, total_objects, mean_area`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*model.BatchResult, error) {
	var run model.BatchResult
	err := row.Scan(&run.RunID, &run.Predictor, &run.StartedAt, &run.FinishedAt, &run.ImageID, &run.RecordFile,
		&run.ImagesProcessed, &run.TotalObjects, &run.MeanArea)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// GetByID retrieves a run by its ID. A missing run yields nil without error.
func (r *RunRepository) GetByID(runID string) (*model.BatchResult, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	run, err := scanRun(r.db.Conn().QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, runID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// GetAll returns the most recent runs first. A limit of 0 or less returns every run.
func (r *RunRepository) GetAll(limit int) ([]model.BatchResult, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []model.BatchResult
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetObjects returns the objects of a run in insertion order.
func (r *RunRepository) GetObjects(runID string) ([]model.PredictionRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT file_name, image_id, class_name, object_number, area,
			centroid_row, centroid_col, min_row, min_col, max_row, max_col, perimeter
		FROM objects WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query objects: %w", err)
	}
	defer rows.Close()

	var records []model.PredictionRecord
	for rows.Next() {
		var rec model.PredictionRecord
		if err := rows.Scan(&rec.FileName, &rec.ImageID, &rec.ClassName, &rec.ObjectNumber, &rec.Area,
			&rec.Centroid.Row, &rec.Centroid.Col, &rec.BBox.MinRow, &rec.BBox.MinCol, &rec.BBox.MaxRow, &rec.BBox.MaxCol,
			&rec.Perimeter); err != nil {
			return nil, fmt.Errorf("failed to scan object: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetTotalCount returns the number of stored runs.
func (r *RunRepository) GetTotalCount() (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	if err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return count, nil
}

// Delete removes a run and its objects.
func (r *RunRepository) Delete(runID string) error {
	r.db.Lock()
	defer r.db.Unlock()

	// objects first, the cascade needs foreign keys enabled on the connection
	if _, err := r.db.Conn().Exec(`DELETE FROM objects WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to delete objects: %w", err)
	}
	if _, err := r.db.Conn().Exec(`DELETE FROM runs WHERE id = ?`, runID); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}
