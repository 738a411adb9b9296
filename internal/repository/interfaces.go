package repository

import "facearchiver/internal/models"

// RunRepository defines the interface for archived-run records.
type RunRepository interface {
	Insert(run *models.Run) (int64, error)
	GetByID(id int64) (*models.Run, error)
	GetByPrefix(prefix string) (*models.Run, error)
	GetRecent(limit int) ([]models.Run, error)
	Delete(id int64) error
}

// DetectionRepository defines the interface for per-run face detections.
type DetectionRepository interface {
	InsertBatch(runID int64, detections []models.Detection) error
	GetByRunID(runID int64) ([]models.Detection, error)
	DeleteByRunID(runID int64) error
}
