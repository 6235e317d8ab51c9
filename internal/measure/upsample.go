package measure

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// ProbabilityGrid is a low-resolution map of per-pixel foreground probabilities
// in row-major order, as produced by mask heads.
type ProbabilityGrid struct {
	Width  int
	Height int
	Values []float32
}

// MaskFromProbabilities stretches grid over the cover rectangle of a
// width×height image with bilinear interpolation and keeps the pixels inside
// clip whose probability exceeds threshold.
func MaskFromProbabilities(grid ProbabilityGrid, cover, clip image.Rectangle, width, height int, threshold float64) *Mask {
	mask := NewMask(width, height)
	if cover.Dx() <= 0 || cover.Dy() <= 0 || grid.Width <= 0 || grid.Height <= 0 {
		return mask
	}

	gray := image.NewGray(image.Rect(0, 0, grid.Width, grid.Height))
	for y := 0; y < grid.Height; y++ {
		for x := 0; x < grid.Width; x++ {
			p := grid.Values[y*grid.Width+x]
			if p < 0 {
				p = 0
			} else if p > 1 {
				p = 1
			}
			gray.SetGray(x, y, color.Gray{Y: uint8(p*255 + 0.5)})
		}
	}

	resized := imaging.Resize(gray, cover.Dx(), cover.Dy(), imaging.Linear)
	cut := uint8(threshold*255 + 0.5)

	area := cover.Intersect(clip).Intersect(image.Rect(0, 0, width, height))
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			off := (y-cover.Min.Y)*resized.Stride + (x-cover.Min.X)*4
			if resized.Pix[off] > cut {
				mask.Pix[y*width+x] = true
			}
		}
	}
	return mask
}
