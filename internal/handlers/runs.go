package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"mitoseg/internal/logger"
	"mitoseg/internal/model"
	"mitoseg/internal/repository"
)

// RunsData is the response payload of the run list.
type RunsData struct {
	Runs  []model.BatchResult `json:"runs"`
	Total int                 `json:"total"`
	Limit int                 `json:"limit"`
}

// RunDetail is a single run with its measured objects.
type RunDetail struct {
	Run     *model.BatchResult       `json:"run"`
	Objects []model.PredictionRecord `json:"objects"`
}

// ListRunsHandler returns the most recent runs, newest first.
func ListRunsHandler(repo repository.RunRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := atoiDefault(r.URL.Query().Get("limit"), 20)

		runs, err := repo.GetAll(limit)
		if err != nil {
			logger.Error("Error listing runs: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		total, err := repo.GetTotalCount()
		if err != nil {
			logger.Error("Error counting runs: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		if runs == nil {
			runs = []model.BatchResult{}
		}
		writeJSON(w, RunsData{Runs: runs, Total: total, Limit: limit}, logger)
	}
}

// GetRunHandler returns one run (?id=) and its objects.
func GetRunHandler(repo repository.RunRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if id == "" {
			http.Error(w, "Missing run id", http.StatusBadRequest)
			return
		}

		run, err := repo.GetByID(id)
		if err != nil {
			logger.Error("Error reading run %s: %v", id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if run == nil {
			http.NotFound(w, r)
			return
		}

		objects, err := repo.GetObjects(id)
		if err != nil {
			logger.Error("Error reading objects of run %s: %v", id, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if objects == nil {
			objects = []model.PredictionRecord{}
		}
		writeJSON(w, RunDetail{Run: run, Objects: objects}, logger)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}, logger *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}
