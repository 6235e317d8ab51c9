package routes

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mitoseg/internal/config"
	"mitoseg/internal/logger"
	"mitoseg/internal/repository/sqlite"
	"mitoseg/internal/services/websocket"
)

func TestSetupRoutes(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		OutputDirectory: filepath.Join(dir, "out"),
		LogDirectory:    filepath.Join(dir, "logs"),
	}
	require.NoError(t, os.MkdirAll(cfg.OutputDirectory, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.OutputDirectory, "run_1.png"), []byte("png"), 0644))

	log, err := logger.NewLogger(cfg.LogDirectory)
	require.NoError(t, err)
	defer log.Close()

	db, err := sqlite.New(filepath.Join(dir, "runs.db"))
	require.NoError(t, err)
	defer db.Close()

	router := SetupRoutes(websocket.NewHubService(log), sqlite.NewRunRepository(db), cfg, log)

	tests := []struct {
		path string
		code int
	}{
		{"/output/run_1.png", http.StatusOK},
		{"/output/missing.png", http.StatusNotFound},
		{"/api/runs", http.StatusOK},
		{"/api/runs/detail?id=none", http.StatusNotFound},
		{"/logs/info", http.StatusOK},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		assert.Equal(t, tt.code, rec.Code, tt.path)
	}
}
