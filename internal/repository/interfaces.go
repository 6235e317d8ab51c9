package repository

import (
	"mitoseg/internal/model"
)

// RunRepository defines the interface for the batch run ledger.
type RunRepository interface {
	// Create operations
	Insert(run *model.BatchResult, records []model.PredictionRecord) error

	// Read operations
	GetByID(runID string) (*model.BatchResult, error)
	GetAll(limit int) ([]model.BatchResult, error)
	GetObjects(runID string) ([]model.PredictionRecord, error)
	GetTotalCount() (int, error)

	// Delete operations
	Delete(runID string) error
}
