package measure

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Point is a sub-pixel coordinate in (row, col) order.
type Point struct {
	Row float64
	Col float64
}

// BoundingBox is (MinRow, MinCol, MaxRow, MaxCol) with exclusive maxima.
type BoundingBox struct {
	MinRow int
	MinCol int
	MaxRow int
	MaxCol int
}

// Region holds the properties of one labeled object.
type Region struct {
	Label     int
	Area      int
	Centroid  Point
	BBox      BoundingBox
	Perimeter float64
}

// RegionProps measures every label in l, ordered by label.
func RegionProps(l *Labels) []Region {
	if l.Count == 0 {
		return nil
	}

	regions := make([]Region, l.Count)
	rowSums := make([]float64, l.Count)
	colSums := make([]float64, l.Count)
	for i := range regions {
		regions[i] = Region{
			Label: i + 1,
			BBox:  BoundingBox{MinRow: math.MaxInt, MinCol: math.MaxInt, MaxRow: -1, MaxCol: -1},
		}
	}

	for y := 0; y < l.Height; y++ {
		for x := 0; x < l.Width; x++ {
			label := l.Pix[y*l.Width+x]
			if label == 0 {
				continue
			}
			r := &regions[label-1]
			r.Area++
			rowSums[label-1] += float64(y)
			colSums[label-1] += float64(x)
			r.BBox.MinRow = min(r.BBox.MinRow, y)
			r.BBox.MinCol = min(r.BBox.MinCol, x)
			r.BBox.MaxRow = max(r.BBox.MaxRow, y+1)
			r.BBox.MaxCol = max(r.BBox.MaxCol, x+1)
		}
	}

	out := regions[:0]
	for i, r := range regions {
		if r.Area == 0 {
			continue
		}
		r.Centroid = Point{
			Row: rowSums[i] / float64(r.Area),
			Col: colSums[i] / float64(r.Area),
		}
		r.Perimeter = perimeter(l, r.Label, r.BBox)
		out = append(out, r)
	}
	return out
}

// Props measures the whole mask as a single object. It returns no region for an empty mask.
func Props(m *Mask) []Region {
	return RegionProps(wholeMask(m))
}

// MeanArea returns the arithmetic mean of the region areas, or 0 when there are none.
func MeanArea(regions []Region) float64 {
	if len(regions) == 0 {
		return 0
	}
	areas := make([]float64, len(regions))
	for i, r := range regions {
		areas[i] = float64(r.Area)
	}
	return stat.Mean(areas, nil)
}

// perimeterWeights maps a border pixel's neighbourhood code to its contribution.
// The code is 1 for the pixel itself, +2 per 4-neighbour on the border and
// +10 per diagonal neighbour on the border.
var perimeterWeights = func() [50]float64 {
	var w [50]float64
	for _, c := range []int{5, 7, 15, 17, 25, 27} {
		w[c] = 1
	}
	w[21] = math.Sqrt2
	w[33] = math.Sqrt2
	w[13] = (1 + math.Sqrt2) / 2
	w[23] = (1 + math.Sqrt2) / 2
	return w
}()

// perimeter estimates the contour length of one label using a 4-connected border.
func perimeter(l *Labels, label int, box BoundingBox) float64 {
	in := func(x, y int) bool { return l.at(x, y) == label }
	border := func(x, y int) bool {
		return in(x, y) && !(in(x-1, y) && in(x+1, y) && in(x, y-1) && in(x, y+1))
	}

	total := 0.0
	for y := box.MinRow; y < box.MaxRow; y++ {
		for x := box.MinCol; x < box.MaxCol; x++ {
			if !border(x, y) {
				continue
			}
			code := 1
			for _, d := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
				if border(x+d[0], y+d[1]) {
					code += 2
				}
			}
			for _, d := range [4][2]int{{-1, -1}, {1, -1}, {-1, 1}, {1, 1}} {
				if border(x+d[0], y+d[1]) {
					code += 10
				}
			}
			total += perimeterWeights[code]
		}
	}
	return total
}
