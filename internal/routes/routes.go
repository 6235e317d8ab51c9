package routes

import (
	"net/http"

	"mitoseg/internal/config"
	"mitoseg/internal/handlers"
	"mitoseg/internal/logger"
	"mitoseg/internal/middleware"
	"mitoseg/internal/repository"
	"mitoseg/internal/services/websocket"
)

// SetupRoutes registers the watch-mode HTTP surface: the result stream, the
// run ledger API, rendered outputs and logs.
func SetupRoutes(hub *websocket.HubService, runs repository.RunRepository, cfg *config.Config, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Visualizations and record files
	mux.Handle("/output/", http.StripPrefix("/output/", http.FileServer(http.Dir(cfg.OutputDirectory))))

	// API endpoints
	mux.HandleFunc("/ws", handlers.ViewWebsocketHandler(hub, logger))
	mux.HandleFunc("/api/runs", handlers.ListRunsHandler(runs, logger))
	mux.HandleFunc("/api/runs/detail", handlers.GetRunHandler(runs, logger))

	// Log endpoints
	mux.HandleFunc("/logs/info", handlers.ShowLogsHandler(cfg, "info"))
	mux.HandleFunc("/logs/warning", handlers.ShowLogsHandler(cfg, "warning"))
	mux.HandleFunc("/logs/error", handlers.ShowLogsHandler(cfg, "error"))

	return middleware.RequestLogger(logger)(mux)
}
