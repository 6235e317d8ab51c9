package ai

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"mitoseg/internal/config"
	"mitoseg/internal/dataset"
	"mitoseg/internal/measure"
	"mitoseg/internal/model"
)

func TestZooConfigPath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("zoo", "COCO-InstanceSegmentation", "mask_rcnn_R_101_FPN_3x.pbtxt"),
		ZooConfigPath("zoo", "COCO-InstanceSegmentation/mask_rcnn_R_101_FPN_3x.yaml"))
}

func TestLoadRegionModel_RepeatedLoadsKeepRegistration(t *testing.T) {
	dir := t.TempDir()
	annotations := filepath.Join(dir, "train.json")
	require.NoError(t, os.WriteFile(annotations, []byte(`{"categories": [{"id": 1, "name": "mitochondria"}]}`), 0644))

	cfg := &config.Config{
		TrainJSONPath:     annotations,
		TrainImagesDir:    dir,
		RegionModelDir:    filepath.Join(dir, "weights"),
		RegionModelZooDir: filepath.Join(dir, "zoo"),
	}
	t.Cleanup(func() { dataset.Default().Remove(TrainDataset) })

	for i := 0; i < 2; i++ {
		_, _, err := LoadRegionModel(cfg, config.DefaultRegionModel, 0.5)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model file not found")
		assert.NotErrorIs(t, err, dataset.ErrAlreadyRegistered)
	}
	assert.True(t, dataset.Default().IsRegistered(TrainDataset))
}

func TestLoadMaskBoxModel_MissingFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		MaskBoxDataPath:  filepath.Join(dir, "data.yaml"),
		MaskBoxModelPath: filepath.Join(dir, "best.onnx"),
	}

	_, err := LoadMaskBoxModel(cfg, 0.25)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(cfg.MaskBoxDataPath, []byte("names: [mito]\n"), 0644))
	_, err = LoadMaskBoxModel(cfg, 0.25)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model file not found")
}

func TestSigmoid(t *testing.T) {
	assert.InDelta(t, 0.5, sigmoid(0), 1e-12)
	assert.Greater(t, sigmoid(6), 0.99)
	assert.Less(t, sigmoid(-6), 0.01)
}

func TestVisualizer_RenderTintsMasks(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.png")
	black := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 32, 32, gocv.MatTypeCV8UC3)
	defer black.Close()
	require.True(t, gocv.IMWrite(src, black))

	mask := measure.NewMask(32, 32)
	box := image.Rect(2, 2, 30, 30)
	mask.FillRect(box)
	seg := &model.Segmentation{Width: 32, Height: 32, ClassNames: []string{"mito"}, Instances: []model.Instance{
		{ClassID: 0, Score: 0.9, Box: box, Mask: mask},
	}}

	dst := filepath.Join(dir, "out.png")
	require.NoError(t, NewVisualizer().Render(src, seg, dst))

	out := gocv.IMRead(dst, gocv.IMReadColor)
	defer out.Close()
	require.False(t, out.Empty())
	px := out.GetVecbAt(25, 6)
	assert.NotZero(t, int(px[0])+int(px[1])+int(px[2]), "mask pixel is tinted")

	// size mismatch leaves the mask out but still writes the image
	seg.Instances[0].Mask = measure.NewMask(8, 8)
	require.NoError(t, NewVisualizer().Render(src, seg, dst))

	assert.Error(t, NewVisualizer().Render(filepath.Join(dir, "missing.png"), seg, dst))
}
