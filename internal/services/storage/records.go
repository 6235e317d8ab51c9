package storage

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"mitoseg/internal/measure"
	"mitoseg/internal/model"
)

// RegionHeader is the column layout of the region predictor's record file.
var RegionHeader = []string{"File Name", "Image ID", "Class Name", "Object Number", "Area", "Centroid", "BoundingBox"}

// MaskHeader is the column layout of the mask/box predictor's per-image record files.
var MaskHeader = []string{"Class_Name", "Area", "Perimeter"}

// RegionRecordWriter appends object rows to one CSV file shared by a whole batch.
type RegionRecordWriter struct {
	path string
	file *os.File
	csv  *csv.Writer
	rows int
}

// NewRegionRecordWriter creates (truncating) the file at path and writes the header.
func NewRegionRecordWriter(path string) (*RegionRecordWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "create record file")
	}

	w := &RegionRecordWriter{path: path, file: file, csv: csv.NewWriter(file)}
	if err := w.csv.Write(RegionHeader); err != nil {
		file.Close()
		return nil, errors.Wrap(err, "write record header")
	}
	return w, nil
}

// Write appends one row per record and flushes them to disk.
func (w *RegionRecordWriter) Write(records []model.PredictionRecord) error {
	for _, r := range records {
		row := []string{
			r.FileName,
			r.ImageID,
			r.ClassName,
			strconv.Itoa(r.ObjectNumber),
			strconv.Itoa(r.Area),
			FormatCentroid(r.Centroid),
			FormatBBox(r.BBox),
		}
		if err := w.csv.Write(row); err != nil {
			return errors.Wrapf(err, "write record for %s", r.FileName)
		}
		w.rows++
	}
	w.csv.Flush()
	return errors.Wrap(w.csv.Error(), "flush records")
}

// Rows returns the number of object rows written so far.
func (w *RegionRecordWriter) Rows() int {
	return w.rows
}

// Path returns the location of the record file.
func (w *RegionRecordWriter) Path() string {
	return w.path
}

// Close flushes and closes the file.
func (w *RegionRecordWriter) Close() error {
	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		w.file.Close()
		return errors.Wrap(err, "flush records")
	}
	return w.file.Close()
}

// WriteMaskRecords writes a complete per-image record file for the mask/box predictor.
func WriteMaskRecords(path string, records []model.PredictionRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create record file")
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(MaskHeader); err != nil {
		return errors.Wrap(err, "write record header")
	}
	for _, r := range records {
		if err := w.Write([]string{r.ClassName, strconv.Itoa(r.Area), FormatFloat(r.Perimeter)}); err != nil {
			return errors.Wrap(err, "write record")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, "flush records")
	}
	return file.Close()
}

// FormatCentroid renders a centroid as a (row, col) tuple.
func FormatCentroid(p measure.Point) string {
	return fmt.Sprintf("(%s, %s)", FormatFloat(p.Row), FormatFloat(p.Col))
}

// FormatBBox renders a bounding box as a (min_row, min_col, max_row, max_col) tuple.
func FormatBBox(b measure.BoundingBox) string {
	return fmt.Sprintf("(%d, %d, %d, %d)", b.MinRow, b.MinCol, b.MaxRow, b.MaxCol)
}

// FormatFloat prints the shortest representation of v, keeping ".0" on whole numbers.
func FormatFloat(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
