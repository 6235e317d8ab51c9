package measure

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegionProps_RectangleGeometry(t *testing.T) {
	// 6 rows x 4 cols rectangle starting at row 10, col 20
	m := NewMask(64, 48)
	m.FillRect(image.Rect(20, 10, 24, 16))

	regions := RegionProps(Label(m))
	require.Len(t, regions, 1)

	r := regions[0]
	assert.Equal(t, 1, r.Label)
	assert.Equal(t, 24, r.Area)
	assert.Equal(t, BoundingBox{MinRow: 10, MinCol: 20, MaxRow: 16, MaxCol: 24}, r.BBox)
	assert.InDelta(t, 12.5, r.Centroid.Row, 1e-9)
	assert.InDelta(t, 21.5, r.Centroid.Col, 1e-9)
}

func TestLabel_EightConnectivityAndOrder(t *testing.T) {
	m := NewMask(10, 10)
	// diagonal pair: one component under 8-connectivity
	m.Set(1, 1, true)
	m.Set(2, 2, true)
	// separate block further down, first pixel later in raster order
	m.FillRect(image.Rect(5, 6, 8, 8))
	// single pixel on row 0, first in raster order
	m.Set(9, 0, true)

	labels := Label(m)
	require.Equal(t, 3, labels.Count)
	assert.Equal(t, 1, labels.at(9, 0))
	assert.Equal(t, 2, labels.at(1, 1))
	assert.Equal(t, 2, labels.at(2, 2))
	assert.Equal(t, 3, labels.at(6, 7))

	regions := RegionProps(labels)
	require.Len(t, regions, 3)
	assert.Equal(t, []int{1, 2, 6}, []int{regions[0].Area, regions[1].Area, regions[2].Area})
}

func TestPerimeter(t *testing.T) {
	tests := []struct {
		name string
		rect image.Rectangle
		want float64
	}{
		{"single pixel", image.Rect(3, 3, 4, 4), 0},
		{"square 10", image.Rect(5, 5, 15, 15), 36},
		{"square 3", image.Rect(0, 0, 3, 3), 8},
		{"bar 1x5", image.Rect(2, 2, 7, 3), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMask(20, 20)
			m.FillRect(tt.rect)
			regions := Props(m)
			require.Len(t, regions, 1)
			assert.InDelta(t, tt.want, regions[0].Perimeter, 1e-9)
		})
	}
}

func TestPerimeter_DiagonalStep(t *testing.T) {
	m := NewMask(5, 5)
	m.Set(1, 1, true)
	m.Set(2, 2, true)

	regions := RegionProps(Label(m))
	require.Len(t, regions, 1)
	// each pixel sees one diagonal border neighbour: code 11 has no weight
	assert.InDelta(t, 0, regions[0].Perimeter, 1e-9)
	assert.False(t, math.IsNaN(regions[0].Perimeter))
}

func TestProps_WholeMaskIgnoresConnectivity(t *testing.T) {
	m := NewMask(20, 20)
	m.FillRect(image.Rect(0, 0, 2, 2))
	m.FillRect(image.Rect(10, 10, 13, 13))

	regions := Props(m)
	require.Len(t, regions, 1)
	assert.Equal(t, 13, regions[0].Area)
	assert.Equal(t, BoundingBox{MinRow: 0, MinCol: 0, MaxRow: 13, MaxCol: 13}, regions[0].BBox)

	assert.Empty(t, Props(NewMask(4, 4)))
}

func TestMeanArea(t *testing.T) {
	assert.Equal(t, 0.0, MeanArea(nil))
	regions := []Region{{Area: 10}, {Area: 20}, {Area: 45}}
	assert.InDelta(t, 25.0, MeanArea(regions), 1e-9)
}

func TestMaskFromProbabilities_FillsBox(t *testing.T) {
	grid := ProbabilityGrid{Width: 2, Height: 2, Values: []float32{0.9, 0.9, 0.9, 0.9}}
	box := image.Rect(4, 6, 12, 10)

	m := MaskFromProbabilities(grid, box, box, 20, 20, 0.5)

	assert.Equal(t, box.Dx()*box.Dy(), m.Count())
	assert.True(t, m.At(4, 6))
	assert.True(t, m.At(11, 9))
	assert.False(t, m.At(12, 9))
	assert.False(t, m.At(3, 6))
}

func TestMaskFromProbabilities_ClipAndThreshold(t *testing.T) {
	// left half certain, right half empty
	grid := ProbabilityGrid{Width: 2, Height: 1, Values: []float32{1, 0}}
	cover := image.Rect(0, 0, 40, 10)
	clip := image.Rect(0, 0, 40, 5)

	m := MaskFromProbabilities(grid, cover, clip, 40, 10, 0.5)

	assert.True(t, m.At(0, 0))
	assert.True(t, m.At(5, 4))
	assert.False(t, m.At(5, 5), "outside clip")
	assert.False(t, m.At(39, 0), "low probability")
	assert.Greater(t, m.Count(), 0)
	assert.Less(t, m.Count(), 40*5)
}

func TestMaskFromProbabilities_DegenerateCover(t *testing.T) {
	grid := ProbabilityGrid{Width: 1, Height: 1, Values: []float32{1}}
	m := MaskFromProbabilities(grid, image.Rect(5, 5, 5, 9), image.Rect(0, 0, 10, 10), 10, 10, 0.5)
	assert.True(t, m.Empty())
}
