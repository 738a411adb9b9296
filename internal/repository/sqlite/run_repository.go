package sqlite

import (
	"database/sql"
	"fmt"

	"facearchiver/internal/models"
)

// RunRepository implements repository.RunRepository for SQLite.
type RunRepository struct {
	db *DB
}

// NewRunRepository creates a new SQLite run repository.
func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

// Insert adds a new run record to the database.
func (r *RunRepository) Insert(run *models.Run) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO runs (prefix, source_path, archive_dir, face_count, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, run.Prefix, run.SourcePath, run.ArchiveDir, run.FaceCount, run.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	return result.LastInsertId()
}

// GetByID retrieves a single run by its ID.
func (r *RunRepository) GetByID(id int64) (*models.Run, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRow(`
		SELECT id, prefix, source_path, archive_dir, face_count, created_at
		FROM runs WHERE id = ?
	`, id)

	return scanRun(row)
}

// GetByPrefix retrieves a single run by its archive prefix.
func (r *RunRepository) GetByPrefix(prefix string) (*models.Run, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	row := r.db.Conn().QueryRow(`
		SELECT id, prefix, source_path, archive_dir, face_count, created_at
		FROM runs WHERE prefix = ?
	`, prefix)

	return scanRun(row)
}

// GetRecent retrieves the most recent runs, newest first.
func (r *RunRepository) GetRecent(limit int) ([]models.Run, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, prefix, source_path, archive_dir, face_count, created_at
		FROM runs ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		var run models.Run
		if err := rows.Scan(&run.ID, &run.Prefix, &run.SourcePath, &run.ArchiveDir, &run.FaceCount, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, nil
}

// Delete removes a run record.
func (r *RunRepository) Delete(id int64) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}

func scanRun(row *sql.Row) (*models.Run, error) {
	var run models.Run
	if err := row.Scan(&run.ID, &run.Prefix, &run.SourcePath, &run.ArchiveDir, &run.FaceCount, &run.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	return &run, nil
}
