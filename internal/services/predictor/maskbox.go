package predictor

import (
	"context"
	"math"
	"path/filepath"
	"time"

	"mitoseg/internal/logger"
	"mitoseg/internal/measure"
	"mitoseg/internal/model"
	"mitoseg/internal/services/storage"
)

// MaskBoxExtensions are the image types the mask/box predictor picks up.
var MaskBoxExtensions = []string{".png", ".jpg", ".jpeg"}

// MaskBox runs the mask/box framework and writes one record file per image.
type MaskBox struct {
	segmenter Segmenter
	renderer  Renderer
	ledger    Ledger
	inputDir  string
	outputDir string
	logger    *logger.Logger

	now   func() time.Time
	newID func() string
}

// NewMaskBox creates the mask/box predictor. ledger may be nil.
func NewMaskBox(segmenter Segmenter, renderer Renderer, ledger Ledger, inputDir, outputDir string, logger *logger.Logger) *MaskBox {
	return &MaskBox{
		segmenter: segmenter,
		renderer:  renderer,
		ledger:    ledger,
		inputDir:  inputDir,
		outputDir: outputDir,
		logger:    logger,
		now:       time.Now,
		newID:     newRunID,
	}
}

// Run processes every image of the input folder. The summary carries totals for
// the run and the identifiers of the last image that produced records.
func (p *MaskBox) Run(ctx context.Context) (*model.BatchResult, error) {
	result := &model.BatchResult{
		RunID:     p.newID(),
		Predictor: model.PredictorMaskBox,
		StartedAt: p.now(),
	}
	fail := func(file, stage string, err error) (*model.BatchResult, error) {
		return nil, &BatchError{Predictor: model.PredictorMaskBox, File: file, Stage: stage, Err: err}
	}

	if err := storage.EnsureDir(p.outputDir); err != nil {
		return fail("", StageSetup, err)
	}
	names, err := listImages(p.inputDir, MaskBoxExtensions...)
	if err != nil {
		return fail("", StageList, err)
	}

	var all []model.PredictionRecord
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return fail(name, StageCancel, err)
		}

		id := imageID(result.RunID, i+1)
		image, records, err := p.processImage(name, id)
		if err != nil {
			return nil, err
		}
		result.ImagesProcessed++
		if image == nil {
			continue
		}

		result.TotalObjects += image.Objects
		result.ImageID = image.ImageID
		result.RecordFile = image.RecordFile
		result.Images = append(result.Images, *image)
		all = append(all, records...)
	}

	result.MeanArea = round2(meanArea(all))
	result.FinishedAt = p.now()

	if p.ledger != nil && result.ImagesProcessed > 0 {
		if err := p.ledger.SaveRun(result, all); err != nil {
			return fail("", StageLedger, err)
		}
	}

	p.logger.Info("Mask/box run %s: %d images, %d objects, mean area %.2f", result.RunID, result.ImagesProcessed, result.TotalObjects, result.MeanArea)
	return result, nil
}

// processImage returns a nil ImageResult when the model found no masks; in that
// case both the source and its visualization are gone afterwards.
func (p *MaskBox) processImage(name, id string) (*model.ImageResult, []model.PredictionRecord, error) {
	fail := func(stage string, err error) (*model.ImageResult, []model.PredictionRecord, error) {
		return nil, nil, &BatchError{Predictor: model.PredictorMaskBox, File: name, Stage: stage, Err: err}
	}
	path := filepath.Join(p.inputDir, name)

	seg, err := p.segmenter.Segment(path)
	if err != nil {
		return fail(StageSegment, err)
	}

	dst := filepath.Join(p.outputDir, id+filepath.Ext(name))
	if err := p.renderer.Render(path, seg, dst); err != nil {
		return fail(StageRender, err)
	}

	if !hasMasks(seg) {
		p.logger.Warning("No masks found in %s", name)
		if err := storage.RemoveFile(path); err != nil {
			return fail(StageCleanup, err)
		}
		if err := storage.RemoveFile(dst); err != nil {
			return fail(StageCleanup, err)
		}
		return nil, nil, nil
	}

	records := maskRecords(name, id, seg)
	recordFile := id + ".csv"
	if err := storage.WriteMaskRecords(filepath.Join(p.outputDir, recordFile), records); err != nil {
		return fail(StageRecord, err)
	}

	image := &model.ImageResult{
		FileName:   name,
		ImageID:    id,
		RecordFile: recordFile,
		Objects:    len(records),
		MeanArea:   round2(meanArea(records)),
	}

	if err := storage.RemoveFile(path); err != nil {
		return fail(StageCleanup, err)
	}

	p.logger.Info("Processed %s as %s: %d objects", name, id, len(records))
	return image, records, nil
}

func hasMasks(seg *model.Segmentation) bool {
	for _, inst := range seg.Instances {
		if inst.Mask != nil {
			return true
		}
	}
	return false
}

// maskRecords measures each mask as a single region, grouped by class in
// class-index order and by detection order within a class. Masks whose class
// is outside the model's class list come last.
func maskRecords(fileName, id string, seg *model.Segmentation) []model.PredictionRecord {
	groups := make([][]model.Instance, len(seg.ClassNames)+1)
	for _, inst := range seg.Instances {
		if inst.Mask == nil {
			continue
		}
		g := inst.ClassID
		if g < 0 || g >= len(seg.ClassNames) {
			g = len(seg.ClassNames)
		}
		groups[g] = append(groups[g], inst)
	}

	var records []model.PredictionRecord
	for _, group := range groups {
		for _, inst := range group {
			for _, r := range measure.Props(inst.Mask) {
				records = append(records, model.PredictionRecord{
					FileName:     fileName,
					ImageID:      id,
					ClassName:    seg.ClassName(inst.ClassID),
					ObjectNumber: len(records) + 1,
					Area:         r.Area,
					Centroid:     r.Centroid,
					BBox:         r.BBox,
					Perimeter:    r.Perimeter,
				})
			}
		}
	}
	return records
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
