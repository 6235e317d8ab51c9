package predictor

import (
	"context"
	"path/filepath"
	"time"

	"mitoseg/internal/logger"
	"mitoseg/internal/measure"
	"mitoseg/internal/model"
	"mitoseg/internal/services/storage"
)

// Region runs the region framework over every file of the input folder and
// appends one row per object to a record file shared by the whole run.
type Region struct {
	segmenter Segmenter
	renderer  Renderer
	ledger    Ledger
	inputDir  string
	outputDir string
	logger    *logger.Logger

	now   func() time.Time
	newID func() string
}

// NewRegion creates the region predictor. ledger may be nil.
func NewRegion(segmenter Segmenter, renderer Renderer, ledger Ledger, inputDir, outputDir string, logger *logger.Logger) *Region {
	return &Region{
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

// Run processes the input folder once. Source images are deleted as they are
// consumed; the first failure aborts the batch with a *BatchError.
func (p *Region) Run(ctx context.Context) (*model.BatchResult, error) {
	result := &model.BatchResult{
		RunID:     p.newID(),
		Predictor: model.PredictorRegion,
		StartedAt: p.now(),
	}
	fail := func(file, stage string, err error) (*model.BatchResult, error) {
		return nil, &BatchError{Predictor: model.PredictorRegion, File: file, Stage: stage, Err: err}
	}

	if err := storage.EnsureDir(p.outputDir); err != nil {
		return fail("", StageSetup, err)
	}
	names, err := listImages(p.inputDir)
	if err != nil {
		return fail("", StageList, err)
	}

	recordFile := result.RunID + ".csv"
	recordPath := filepath.Join(p.outputDir, recordFile)
	writer, err := storage.NewRegionRecordWriter(recordPath)
	if err != nil {
		return fail(recordFile, StageSetup, err)
	}

	var all []model.PredictionRecord
	batchErr := func() error {
		for i, name := range names {
			if err := ctx.Err(); err != nil {
				return &BatchError{Predictor: model.PredictorRegion, File: name, Stage: StageCancel, Err: err}
			}

			id := imageID(result.RunID, i+1)
			records, err := p.processImage(name, id, writer)
			if err != nil {
				return err
			}
			result.ImagesProcessed++
			if len(records) == 0 {
				continue
			}

			result.TotalObjects += len(records)
			result.ImageID = id
			result.Images = append(result.Images, model.ImageResult{
				FileName:   name,
				ImageID:    id,
				RecordFile: recordFile,
				Objects:    len(records),
				MeanArea:   meanArea(records),
			})
			all = append(all, records...)
		}
		return nil
	}()

	if err := writer.Close(); err != nil && batchErr == nil {
		batchErr = &BatchError{Predictor: model.PredictorRegion, File: recordFile, Stage: StageRecord, Err: err}
	}
	if writer.Rows() == 0 {
		if err := storage.RemoveFile(recordPath); err != nil && batchErr == nil {
			batchErr = &BatchError{Predictor: model.PredictorRegion, File: recordFile, Stage: StageCleanup, Err: err}
		}
	} else {
		result.RecordFile = recordFile
	}
	if batchErr != nil {
		return nil, batchErr
	}

	result.MeanArea = meanArea(all)
	result.FinishedAt = p.now()

	if p.ledger != nil && result.ImagesProcessed > 0 {
		if err := p.ledger.SaveRun(result, all); err != nil {
			return fail("", StageLedger, err)
		}
	}

	p.logger.Info("Region run %s: %d images, %d objects, mean area %.2f", result.RunID, result.ImagesProcessed, result.TotalObjects, result.MeanArea)
	return result, nil
}

func (p *Region) processImage(name, id string, writer *storage.RegionRecordWriter) ([]model.PredictionRecord, error) {
	fail := func(stage string, err error) ([]model.PredictionRecord, error) {
		return nil, &BatchError{Predictor: model.PredictorRegion, File: name, Stage: stage, Err: err}
	}
	path := filepath.Join(p.inputDir, name)

	seg, err := p.segmenter.Segment(path)
	if err != nil {
		return fail(StageSegment, err)
	}

	if len(seg.Instances) == 0 {
		p.logger.Warning("No objects detected in %s", name)
		if err := storage.RemoveFile(path); err != nil {
			return fail(StageCleanup, err)
		}
		return nil, nil
	}

	records := regionRecords(name, id, seg)
	if err := writer.Write(records); err != nil {
		return fail(StageRecord, err)
	}

	dst := filepath.Join(p.outputDir, id+filepath.Ext(name))
	if err := p.renderer.Render(path, seg, dst); err != nil {
		return fail(StageRender, err)
	}

	if err := storage.RemoveFile(path); err != nil {
		return fail(StageCleanup, err)
	}

	p.logger.Info("Processed %s as %s: %d objects", name, id, len(records))
	return records, nil
}

// regionRecords measures every connected component of every instance mask.
// Class names are matched to components by position; components beyond the
// number of instances are labelled Unknown.
func regionRecords(fileName, id string, seg *model.Segmentation) []model.PredictionRecord {
	var regions []measure.Region
	for _, inst := range seg.Instances {
		if inst.Mask == nil {
			continue
		}
		regions = append(regions, measure.RegionProps(measure.Label(inst.Mask))...)
	}

	records := make([]model.PredictionRecord, 0, len(regions))
	for i, r := range regions {
		className := model.UnknownClass
		if i < len(seg.Instances) {
			className = seg.ClassName(seg.Instances[i].ClassID)
		}
		records = append(records, model.PredictionRecord{
			FileName:     fileName,
			ImageID:      id,
			ClassName:    className,
			ObjectNumber: i + 1,
			Area:         r.Area,
			Centroid:     r.Centroid,
			BBox:         r.BBox,
			Perimeter:    r.Perimeter,
		})
	}
	return records
}
