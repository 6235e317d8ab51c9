package render

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mitoseg/internal/measure"
	"mitoseg/internal/model"
)

func blackImage(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	img := imaging.New(64, 48, color.NRGBA{A: 255})
	require.NoError(t, imaging.Save(img, path))
	return path
}

func sampleSegmentation() *model.Segmentation {
	box := image.Rect(10, 10, 30, 30)
	mask := measure.NewMask(64, 48)
	mask.FillRect(box)
	return &model.Segmentation{
		Width:      64,
		Height:     48,
		ClassNames: []string{"mito"},
		Instances: []model.Instance{
			{ClassID: 0, ClassName: "mito", Score: 0.9, Box: box, Mask: mask},
		},
	}
}

func TestPlotRenderer_DrawsMaskFill(t *testing.T) {
	src := blackImage(t, "cell.png")
	dst := filepath.Join(t.TempDir(), "run_1.png")

	require.NoError(t, NewPlotRenderer().Render(src, sampleSegmentation(), dst))

	out, err := imaging.Open(dst)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 48), out.Bounds())

	inside := color.NRGBAModel.Convert(out.At(20, 20)).(color.NRGBA)
	assert.Greater(t, inside.R, uint8(100), "mask tinted with class colour")

	outside := color.NRGBAModel.Convert(out.At(50, 40)).(color.NRGBA)
	assert.Equal(t, uint8(0), outside.R)
}

func TestPlotRenderer_FormatFollowsDestination(t *testing.T) {
	src := blackImage(t, "cell.png")
	dir := t.TempDir()

	require.NoError(t, NewPlotRenderer().Render(src, sampleSegmentation(), filepath.Join(dir, "run_1.jpg")))
	_, err := imaging.Open(filepath.Join(dir, "run_1.jpg"))
	assert.NoError(t, err)

	err = NewPlotRenderer().Render(src, sampleSegmentation(), filepath.Join(dir, "run_1.xyz"))
	assert.Error(t, err)
}

func TestPlotRenderer_MissingSource(t *testing.T) {
	err := NewPlotRenderer().Render(filepath.Join(t.TempDir(), "none.png"), &model.Segmentation{}, filepath.Join(t.TempDir(), "out.png"))
	assert.Error(t, err)
}

func TestClassColorCycles(t *testing.T) {
	assert.Equal(t, ClassColor(0), ClassColor(len(Palette)))
	assert.NotEqual(t, ClassColor(0), ClassColor(1))
}
