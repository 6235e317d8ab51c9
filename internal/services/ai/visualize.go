package ai

import (
	"fmt"
	"image"
	"image/color"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"mitoseg/internal/model"
	"mitoseg/internal/services/render"
)

// Visualizer draws instance predictions with OpenCV: translucent masks, boxes
// and "class score%" labels.
type Visualizer struct {
	Alpha float64
}

// NewVisualizer returns a visualizer with half-transparent masks.
func NewVisualizer() *Visualizer {
	return &Visualizer{Alpha: 0.5}
}

// Render reads src, draws seg and writes the result to dst. The encoder is
// chosen from the extension of dst.
func (v *Visualizer) Render(src string, seg *model.Segmentation, dst string) error {
	img, err := readImage(src)
	if err != nil {
		return err
	}
	defer img.Close()

	overlay := img.Clone()
	defer overlay.Close()

	for _, inst := range seg.Instances {
		if inst.Mask == nil || inst.Mask.Width != img.Cols() || inst.Mask.Height != img.Rows() {
			continue
		}
		if err := fillMask(&overlay, inst, classColor(inst.ClassID)); err != nil {
			return err
		}
	}
	if err := gocv.AddWeighted(overlay, v.Alpha, img, 1-v.Alpha, 0, &img); err != nil {
		return errors.Wrap(err, "blend masks")
	}

	for _, inst := range seg.Instances {
		c := classColor(inst.ClassID)
		if err := gocv.Rectangle(&img, inst.Box, c, 2); err != nil {
			return errors.Wrap(err, "draw rectangle")
		}

		label := fmt.Sprintf("%s %.0f%%", seg.ClassName(inst.ClassID), inst.Score*100)
		pt := image.Pt(inst.Box.Min.X, inst.Box.Min.Y-5)
		if pt.Y < 10 {
			pt.Y = inst.Box.Min.Y + 15
		}
		if err := gocv.PutText(&img, label, pt, gocv.FontHersheySimplex, 0.5, c, 1); err != nil {
			return errors.Wrap(err, "draw text")
		}
	}

	if ok := gocv.IMWrite(dst, img); !ok {
		return errors.Errorf("failed to write %s", dst)
	}
	return nil
}

func fillMask(dst *gocv.Mat, inst model.Instance, c color.RGBA) error {
	bytes := make([]byte, len(inst.Mask.Pix))
	for i, on := range inst.Mask.Pix {
		if on {
			bytes[i] = 255
		}
	}
	maskMat, err := gocv.NewMatFromBytes(inst.Mask.Height, inst.Mask.Width, gocv.MatTypeCV8UC1, bytes)
	if err != nil {
		return errors.Wrap(err, "build mask")
	}
	defer maskMat.Close()

	// Scalar channels are BGR
	fill := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(c.B), float64(c.G), float64(c.R), 0), inst.Mask.Height, inst.Mask.Width, gocv.MatTypeCV8UC3)
	defer fill.Close()

	if err := fill.CopyToWithMask(dst, maskMat); err != nil {
		return errors.Wrap(err, "fill mask")
	}
	return nil
}

func classColor(classID int) color.RGBA {
	c := render.ClassColor(classID)
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0}
}
