package ai

import (
	"image"
	"math"
	"sync"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/mat"

	"mitoseg/internal/measure"
	"mitoseg/internal/model"
)

// YOLOv8-seg output layers: output0 is [1, 4+classes+coefficients, anchors],
// output1 holds the mask prototypes [1, coefficients, h, w].
const (
	maskBoxPredictionsLayer = "output0"
	maskBoxPrototypesLayer  = "output1"
	maskCoefficients        = 32
)

// MaskBoxSegmenter runs a YOLOv8 segmentation model exported to ONNX.
type MaskBoxSegmenter struct {
	net        gocv.Net
	classNames []string
	confidence float64
	iou        float64
	inputSize  int
	mu         sync.Mutex
}

// ClassNames returns the model's classes in index order.
func (s *MaskBoxSegmenter) ClassNames() []string {
	return s.classNames
}

type candidate struct {
	classID int
	score   float32
	box     image.Rectangle
	coef    []float64
}

// Segment runs the model on the image at path. Boxes are suppressed per class
// and masks are cropped to their boxes.
func (s *MaskBoxSegmenter) Segment(path string) (*model.Segmentation, error) {
	img, err := readImage(path)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	width, height := img.Cols(), img.Rows()
	size := image.Pt(s.inputSize, s.inputSize)
	blob := gocv.BlobFromImage(img, 1.0/255.0, size, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.net.SetInput(blob, "")
	outs := s.net.ForwardLayers([]string{maskBoxPredictionsLayer, maskBoxPrototypesLayer})
	defer func() {
		for i := range outs {
			outs[i].Close()
		}
	}()
	if len(outs) != 2 {
		return nil, errors.Errorf("expected 2 outputs, got %d", len(outs))
	}

	preds, err := outs[0].DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "read predictions")
	}
	protos, err := outs[1].DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "read prototypes")
	}
	predDims, protoDims := outs[0].Size(), outs[1].Size()
	if len(predDims) != 3 || len(protoDims) != 4 || protoDims[1] != maskCoefficients {
		return nil, errors.Errorf("unexpected output shapes %v %v", predDims, protoDims)
	}

	rows, anchors := predDims[1], predDims[2]
	numClasses := rows - 4 - maskCoefficients
	if numClasses <= 0 {
		return nil, errors.Errorf("model has no class scores (%d rows)", rows)
	}
	at := func(r, a int) float32 { return preds[r*anchors+a] }

	sx := float64(width) / float64(s.inputSize)
	sy := float64(height) / float64(s.inputSize)
	bounds := image.Rect(0, 0, width, height)
	offset := width + height

	var candidates []candidate
	var shifted []image.Rectangle
	var scores []float32
	for a := 0; a < anchors; a++ {
		classID, score := 0, at(4, a)
		for c := 1; c < numClasses; c++ {
			if v := at(4+c, a); v > score {
				classID, score = c, v
			}
		}
		if float64(score) < s.confidence {
			continue
		}

		cx, cy, bw, bh := float64(at(0, a)), float64(at(1, a)), float64(at(2, a)), float64(at(3, a))
		box := image.Rect(
			int((cx-bw/2)*sx), int((cy-bh/2)*sy),
			int((cx+bw/2)*sx), int((cy+bh/2)*sy),
		).Intersect(bounds)
		if box.Empty() {
			continue
		}

		coef := make([]float64, maskCoefficients)
		for k := range coef {
			coef[k] = float64(at(4+numClasses+k, a))
		}
		candidates = append(candidates, candidate{classID: classID, score: score, box: box, coef: coef})
		// boxes of different classes never overlap after the shift
		shifted = append(shifted, box.Add(image.Pt(classID*offset, classID*offset)))
		scores = append(scores, score)
	}

	seg := &model.Segmentation{Width: width, Height: height, ClassNames: s.classNames}
	if len(candidates) == 0 {
		return seg, nil
	}

	ph, pw := protoDims[2], protoDims[3]
	protoData := make([]float64, maskCoefficients*ph*pw)
	for i := range protoData {
		protoData[i] = float64(protos[i])
	}
	protoMat := mat.NewDense(maskCoefficients, ph*pw, protoData)

	keep := gocv.NMSBoxes(shifted, scores, float32(s.confidence), float32(s.iou))
	for _, idx := range keep {
		c := candidates[idx]

		var logits mat.Dense
		logits.Mul(mat.NewDense(1, maskCoefficients, c.coef), protoMat)
		values := make([]float32, ph*pw)
		for i, v := range logits.RawRowView(0) {
			values[i] = float32(sigmoid(v))
		}

		grid := measure.ProbabilityGrid{Width: pw, Height: ph, Values: values}
		seg.Instances = append(seg.Instances, model.Instance{
			ClassID:   c.classID,
			ClassName: seg.ClassName(c.classID),
			Score:     float64(c.score),
			Box:       c.box,
			Mask:      measure.MaskFromProbabilities(grid, bounds, c.box, width, height, MaskThreshold),
		})
	}

	return seg, nil
}

// Close releases the network.
func (s *MaskBoxSegmenter) Close() error {
	return s.net.Close()
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
