package services

import (
	"context"
	"sync"

	"mitoseg/internal/logger"
	"mitoseg/internal/model"
	"mitoseg/internal/services/websocket"
)

// Predictor processes the input folder once.
type Predictor interface {
	Run(ctx context.Context) (*model.BatchResult, error)
}

// Manager serializes batches of one predictor and publishes their results to
// websocket viewers.
type Manager struct {
	predictor        Predictor
	websocketService *websocket.HubService
	logger           *logger.Logger

	mu sync.Mutex
}

// NewManager creates a manager. hub may be nil when no viewers are served.
func NewManager(predictor Predictor, hub *websocket.HubService, logger *logger.Logger) *Manager {
	return &Manager{
		predictor:        predictor,
		websocketService: hub,
		logger:           logger,
	}
}

// RunBatch runs one batch. Concurrent callers wait for the batch in progress.
func (m *Manager) RunBatch(ctx context.Context) (*model.BatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result, err := m.predictor.Run(ctx)
	if err != nil {
		return nil, err
	}

	if m.websocketService != nil && result.ImagesProcessed > 0 {
		if err := m.websocketService.BroadcastResult(result); err != nil {
			m.logger.Error("Failed to publish run %s: %v", result.RunID, err)
		}
	}
	return result, nil
}
