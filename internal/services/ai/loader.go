// Package ai wraps the OpenCV DNN runtime for the two segmentation models.
package ai

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"mitoseg/internal/config"
	"mitoseg/internal/dataset"
)

const (
	// TrainDataset is the catalog name of the dataset defining the region model's classes.
	TrainDataset = "train"
	// RegionWeightsFile is the frozen graph expected inside REGION_MODEL_DIR.
	RegionWeightsFile = "model_final.pb"
)

// ZooConfigPath resolves an architecture identifier such as
// "COCO-InstanceSegmentation/mask_rcnn_R_101_FPN_3x.yaml" to its graph config in the zoo.
func ZooConfigPath(zooDir, architecture string) string {
	return filepath.Join(zooDir, strings.TrimSuffix(architecture, filepath.Ext(architecture))+".pbtxt")
}

// LoadRegionModel registers the training dataset (once per process), reads its
// class metadata and loads the region network for architecture.
func LoadRegionModel(cfg *config.Config, architecture string, threshold float64) (*RegionSegmenter, *dataset.Metadata, error) {
	catalog := dataset.Default()
	if !catalog.IsRegistered(TrainDataset) {
		err := catalog.Register(TrainDataset, cfg.TrainJSONPath, cfg.TrainImagesDir)
		if err != nil && !errors.Is(err, dataset.ErrAlreadyRegistered) {
			return nil, nil, errors.Wrap(err, "register training dataset")
		}
	}

	ds, err := catalog.Get(TrainDataset)
	if err != nil {
		return nil, nil, errors.Wrap(err, "load training metadata")
	}
	metadata := &ds.Metadata

	graph := ZooConfigPath(cfg.RegionModelZooDir, architecture)
	weights := filepath.Join(cfg.RegionModelDir, RegionWeightsFile)
	net, err := loadNet(weights, graph)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "load region model %s", architecture)
	}

	return &RegionSegmenter{
		net:       net,
		metadata:  metadata,
		threshold: threshold,
	}, metadata, nil
}

// LoadMaskBoxModel loads the ONNX mask/box network and its class names.
func LoadMaskBoxModel(cfg *config.Config, confidence float64) (*MaskBoxSegmenter, error) {
	names, err := dataset.LoadClassNames(cfg.MaskBoxDataPath)
	if err != nil {
		return nil, errors.Wrap(err, "load class names")
	}

	net, err := loadNet(cfg.MaskBoxModelPath, "")
	if err != nil {
		return nil, errors.Wrap(err, "load mask/box model")
	}

	return &MaskBoxSegmenter{
		net:        net,
		classNames: names,
		confidence: confidence,
		iou:        cfg.MaskBoxIoU,
		inputSize:  cfg.MaskBoxInputSize,
	}, nil
}

// loadNet reads a network on the CPU target. An empty configPath selects the ONNX reader.
func loadNet(modelPath, configPath string) (gocv.Net, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return gocv.Net{}, errors.Errorf("model file not found: %s", modelPath)
	}

	var net gocv.Net
	if configPath == "" {
		net = gocv.ReadNetFromONNX(modelPath)
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return gocv.Net{}, errors.Errorf("config file not found: %s", configPath)
		}
		net = gocv.ReadNet(modelPath, configPath)
	}

	if net.Empty() {
		return gocv.Net{}, errors.New("failed to load network")
	}
	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return gocv.Net{}, errors.New("failed to set preferable backend or target")
	}
	return net, nil
}

func readImage(path string) (gocv.Mat, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		img.Close()
		return gocv.Mat{}, errors.Errorf("cannot decode image %s", path)
	}
	return img, nil
}
