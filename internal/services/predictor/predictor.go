// Package predictor runs segmentation models over an input folder, measures the
// detected objects and writes records and visualizations to the output folder.
package predictor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"mitoseg/internal/measure"
	"mitoseg/internal/model"
)

// Segmenter runs a model on one image file.
type Segmenter interface {
	Segment(path string) (*model.Segmentation, error)
}

// Renderer writes an annotated copy of src to dst.
type Renderer interface {
	Render(src string, seg *model.Segmentation, dst string) error
}

// Ledger persists completed batches.
type Ledger interface {
	SaveRun(result *model.BatchResult, records []model.PredictionRecord) error
}

// Batch stages reported in BatchError.
const (
	StageSetup   = "setup"
	StageList    = "list"
	StageSegment = "segment"
	StageRecord  = "record"
	StageRender  = "render"
	StageCleanup = "cleanup"
	StageLedger  = "ledger"
	StageCancel  = "cancel"
)

// BatchError aborts a batch. It carries the predictor, the file being processed
// and the stage that failed.
type BatchError struct {
	Predictor string
	File      string
	Stage     string
	Err       error
}

func (e *BatchError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("%s predictor: %s: %v", e.Predictor, e.Stage, e.Err)
	}
	return fmt.Sprintf("%s predictor: %s %s: %v", e.Predictor, e.Stage, e.File, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

func newRunID() string {
	return uuid.NewString()
}

func imageID(runID string, seq int) string {
	return fmt.Sprintf("%s_%d", runID, seq)
}

// listImages returns the names of regular files in dir, sorted by name. When
// exts is non-empty only files with one of those extensions (case-insensitive) are kept.
func listImages(dir string, exts ...string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read input folder %s", dir)
	}

	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if len(exts) > 0 && !hasExt(e.Name(), exts) {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// meanArea is the arithmetic mean object area of records, 0 when there are none.
func meanArea(records []model.PredictionRecord) float64 {
	regions := make([]measure.Region, len(records))
	for i, r := range records {
		regions[i] = measure.Region{Label: r.ObjectNumber, Area: r.Area, Centroid: r.Centroid, BBox: r.BBox, Perimeter: r.Perimeter}
	}
	return measure.MeanArea(regions)
}

func hasExt(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
