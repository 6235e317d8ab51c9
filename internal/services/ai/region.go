package ai

import (
	"image"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"mitoseg/internal/dataset"
	"mitoseg/internal/measure"
	"mitoseg/internal/model"
)

// Mask R-CNN output layers.
const (
	regionDetectionsLayer = "detection_out_final"
	regionMasksLayer      = "detection_masks"
)

// MaskThreshold binarizes mask probabilities.
const MaskThreshold = 0.5

// RegionSegmenter runs the Mask R-CNN graph. Each detection row is
// [batch, class, score, left, top, right, bottom] with normalized coordinates.
type RegionSegmenter struct {
	net       gocv.Net
	metadata  *dataset.Metadata
	threshold float64
	mu        sync.Mutex
}

// Segment reads the image at path and returns instances scoring at least the threshold.
func (s *RegionSegmenter) Segment(path string) (*model.Segmentation, error) {
	img, err := readImage(path)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	width, height := img.Cols(), img.Rows()
	blob := gocv.BlobFromImage(img, 1.0, image.Pt(width, height), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.net.SetInput(blob, "")
	outs := s.net.ForwardLayers([]string{regionDetectionsLayer, regionMasksLayer})
	defer func() {
		for i := range outs {
			outs[i].Close()
		}
	}()
	if len(outs) != 2 {
		return nil, errors.Errorf("expected 2 outputs, got %d", len(outs))
	}

	dets, err := outs[0].DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "read detections")
	}
	masks, err := outs[1].DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "read masks")
	}
	dims := outs[1].Size()
	if len(dims) != 4 {
		return nil, errors.Errorf("unexpected mask shape %v", dims)
	}
	maskCount, maskClasses, mh, mw := dims[0], dims[1], dims[2], dims[3]

	seg := &model.Segmentation{
		Width:      width,
		Height:     height,
		ClassNames: s.metadata.ThingClasses,
	}
	bounds := image.Rect(0, 0, width, height)

	for i := 0; i < len(dets)/7 && i < maskCount; i++ {
		d := dets[i*7 : i*7+7]
		score := float64(d[2])
		classID := int(d[1])
		if score < s.threshold || classID < 0 || classID >= s.metadata.NumClasses() || classID >= maskClasses {
			continue
		}

		box := image.Rect(
			int(d[3]*float32(width)), int(d[4]*float32(height)),
			int(d[5]*float32(width)), int(d[6]*float32(height)),
		).Intersect(bounds)
		if box.Empty() {
			continue
		}

		off := (i*maskClasses + classID) * mh * mw
		grid := measure.ProbabilityGrid{Width: mw, Height: mh, Values: masks[off : off+mh*mw]}
		seg.Instances = append(seg.Instances, model.Instance{
			ClassID:   classID,
			ClassName: seg.ClassName(classID),
			Score:     score,
			Box:       box,
			Mask:      measure.MaskFromProbabilities(grid, box, bounds, width, height, MaskThreshold),
		})
	}

	return seg, nil
}

// Close releases the network.
func (s *RegionSegmenter) Close() error {
	return s.net.Close()
}
