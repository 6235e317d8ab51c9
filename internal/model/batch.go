package model

import "time"

// Predictor names used in results and the run ledger.
const (
	PredictorRegion  = "region"
	PredictorMaskBox = "maskbox"
)

// ImageResult summarizes one processed image.
type ImageResult struct {
	FileName   string  `json:"file_name"`
	ImageID    string  `json:"image_id"`
	RecordFile string  `json:"record_file,omitempty"`
	Objects    int     `json:"objects"`
	MeanArea   float64 `json:"mean_area"`
}

// BatchResult summarizes one run over the input folder.
type BatchResult struct {
	RunID           string        `json:"run_id"`
	Predictor       string        `json:"predictor"`
	TotalObjects    int           `json:"total_objects"`
	MeanArea        float64       `json:"mean_area"`
	ImageID         string        `json:"image_id"`
	RecordFile      string        `json:"record_file"`
	ImagesProcessed int           `json:"images_processed"`
	Images          []ImageResult `json:"images,omitempty"`
	StartedAt       time.Time     `json:"started_at"`
	FinishedAt      time.Time     `json:"finished_at"`
}
