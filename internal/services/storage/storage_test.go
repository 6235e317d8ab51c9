package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mitoseg/internal/measure"
	"mitoseg/internal/model"
)

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "12.0", FormatFloat(12))
	assert.Equal(t, "12.5", FormatFloat(12.5))
	assert.Equal(t, "0.0", FormatFloat(0))
	assert.Equal(t, "12.485281374238571", FormatFloat(12.485281374238571))
}

func TestFormatTuples(t *testing.T) {
	assert.Equal(t, "(12.5, 30.0)", FormatCentroid(measure.Point{Row: 12.5, Col: 30}))
	assert.Equal(t, "(10, 20, 16, 24)", FormatBBox(measure.BoundingBox{MinRow: 10, MinCol: 20, MaxRow: 16, MaxCol: 24}))
}

func TestRegionRecordWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.csv")

	w, err := NewRegionRecordWriter(path)
	require.NoError(t, err)
	assert.Equal(t, path, w.Path())

	require.NoError(t, w.Write([]model.PredictionRecord{{
		FileName:     "cell.png",
		ImageID:      "run_1",
		ClassName:    "mitochondria",
		ObjectNumber: 1,
		Area:         24,
		Centroid:     measure.Point{Row: 12.5, Col: 21.5},
		BBox:         measure.BoundingBox{MinRow: 10, MinCol: 20, MaxRow: 16, MaxCol: 24},
	}}))

	// rows are on disk before Close
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t,
		"File Name,Image ID,Class Name,Object Number,Area,Centroid,BoundingBox\n"+
			"cell.png,run_1,mitochondria,1,24,\"(12.5, 21.5)\",\"(10, 20, 16, 24)\"\n",
		string(data))

	require.NoError(t, w.Write(nil))
	assert.Equal(t, 1, w.Rows())
	require.NoError(t, w.Close())
}

func TestWriteMaskRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "img.csv")

	records := []model.PredictionRecord{
		{ClassName: "cristae", Area: 9, Perimeter: 8},
		{ClassName: "mito", Area: 100, Perimeter: 36},
	}
	require.NoError(t, WriteMaskRecords(path, records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Class_Name,Area,Perimeter\ncristae,9,8.0\nmito,100,36.0\n", string(data))
}

func TestEnsureDirAndRemoveFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))
	require.NoError(t, EnsureDir(dir))
	assert.DirExists(t, dir)

	file := filepath.Join(dir, "x.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	require.NoError(t, RemoveFile(file))
	assert.NoFileExists(t, file)
	assert.NoError(t, RemoveFile(file), "missing file is not an error")
}
