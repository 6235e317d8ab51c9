package model

import "mitoseg/internal/measure"

// PredictionRecord is one measured object, written as one output row.
type PredictionRecord struct {
	FileName     string              `json:"file_name"`
	ImageID      string              `json:"image_id"`
	ClassName    string              `json:"class_name"`
	ObjectNumber int                 `json:"object_number"`
	Area         int                 `json:"area"`
	Centroid     measure.Point       `json:"centroid"`
	BBox         measure.BoundingBox `json:"bbox"`
	Perimeter    float64             `json:"perimeter"`
}
