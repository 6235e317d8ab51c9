// Package render draws segmentation results onto copies of the source images.
package render

import (
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/pkg/errors"
	"golang.org/x/image/font/basicfont"

	"mitoseg/internal/model"
)

// Palette is cycled per class id.
var Palette = []color.NRGBA{
	{R: 255, G: 56, B: 56, A: 255},
	{R: 255, G: 157, B: 151, A: 255},
	{R: 255, G: 112, B: 31, A: 255},
	{R: 255, G: 178, B: 29, A: 255},
	{R: 207, G: 210, B: 49, A: 255},
	{R: 72, G: 249, B: 10, A: 255},
	{R: 146, G: 204, B: 23, A: 255},
	{R: 61, G: 219, B: 134, A: 255},
	{R: 26, G: 147, B: 52, A: 255},
	{R: 0, G: 212, B: 187, A: 255},
}

// ClassColor returns the palette entry for a class id.
func ClassColor(classID int) color.NRGBA {
	if classID < 0 {
		classID = -classID
	}
	return Palette[classID%len(Palette)]
}

// PlotRenderer draws filled masks, boxes and "class score" labels.
type PlotRenderer struct {
	// MaskAlpha is the opacity of mask fills, 0-255.
	MaskAlpha uint8
	LineWidth float64
}

// NewPlotRenderer returns a renderer with the default styling.
func NewPlotRenderer() *PlotRenderer {
	return &PlotRenderer{MaskAlpha: 128, LineWidth: 2}
}

// Render decodes src, draws seg over it and saves it to dst. The output format
// follows the extension of dst.
func (p *PlotRenderer) Render(src string, seg *model.Segmentation, dst string) error {
	img, err := imaging.Open(src)
	if err != nil {
		return errors.Wrapf(err, "open %s", src)
	}

	dc := gg.NewContextForImage(img)
	dc.DrawImage(p.maskLayer(img.Bounds(), seg), 0, 0)

	dc.SetFontFace(basicfont.Face7x13)
	dc.SetLineWidth(p.LineWidth)
	for _, inst := range seg.Instances {
		c := ClassColor(inst.ClassID)
		box := inst.Box

		dc.SetColor(c)
		dc.DrawRectangle(float64(box.Min.X), float64(box.Min.Y), float64(box.Dx()), float64(box.Dy()))
		dc.Stroke()

		label := fmt.Sprintf("%s %.2f", seg.ClassName(inst.ClassID), inst.Score)
		w, h := dc.MeasureString(label)
		y := float64(box.Min.Y)
		if y < h+4 {
			y = h + 4
		}
		dc.DrawRectangle(float64(box.Min.X), y-h-4, w+4, h+4)
		dc.Fill()
		dc.SetColor(color.White)
		dc.DrawString(label, float64(box.Min.X)+2, y-3)
	}

	if err := imaging.Save(dc.Image(), dst); err != nil {
		return errors.Wrapf(err, "save %s", dst)
	}
	return nil
}

func (p *PlotRenderer) maskLayer(bounds image.Rectangle, seg *model.Segmentation) *image.NRGBA {
	layer := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for _, inst := range seg.Instances {
		if inst.Mask == nil {
			continue
		}
		c := ClassColor(inst.ClassID)
		c.A = p.MaskAlpha
		for y := 0; y < inst.Mask.Height && y < bounds.Dy(); y++ {
			for x := 0; x < inst.Mask.Width && x < bounds.Dx(); x++ {
				if inst.Mask.At(x, y) {
					layer.SetNRGBA(x, y, c)
				}
			}
		}
	}
	return layer
}
