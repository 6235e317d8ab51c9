// Package watcher reruns a predictor whenever new images land in the input folder.
package watcher

import (
	"context"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"mitoseg/internal/logger"
	"mitoseg/internal/model"
	"mitoseg/internal/services/predictor"
)

// Runner processes the input folder once.
type Runner func(ctx context.Context) (*model.BatchResult, error)

// Service watches a folder and runs batches, one at a time, after bursts of
// file events settle.
type Service struct {
	dir      string
	delay    time.Duration
	run      Runner
	onResult func(*model.BatchResult)
	logger   *logger.Logger
}

// New creates a watcher for dir. onResult may be nil.
func New(dir string, delay time.Duration, run Runner, onResult func(*model.BatchResult), logger *logger.Logger) *Service {
	return &Service{
		dir:      dir,
		delay:    delay,
		run:      run,
		onResult: onResult,
		logger:   logger,
	}
}

// Run processes files already present, then keeps watching until ctx is done.
// A failed batch is logged and the watcher keeps going. A file that fails is
// left in place, so later batches stop on it again until it is removed.
func (s *Service) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create watcher")
	}
	defer w.Close()

	if err := w.Add(s.dir); err != nil {
		return errors.Wrapf(err, "watch %s", s.dir)
	}

	trigger := make(chan struct{}, 1)
	notify := func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}
	debounced := debounce.New(s.delay)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
					debounced(notify)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.logger.Warning("Watcher error: %v", err)
			}
		}
	}()

	s.logger.Info("Watching %s", s.dir)
	notify()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-trigger:
			s.runBatch(ctx)
		}
	}
}

func (s *Service) runBatch(ctx context.Context) {
	result, err := s.run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		var batchErr *predictor.BatchError
		if errors.As(err, &batchErr) && batchErr.File != "" {
			s.logger.Error("Batch stopped at %s (stage %s): %v; remove %s from %s to let later images through",
				batchErr.File, batchErr.Stage, batchErr.Err, batchErr.File, s.dir)
			return
		}
		s.logger.Error("Batch failed: %v", err)
		return
	}
	if result.ImagesProcessed == 0 {
		return
	}
	if s.onResult != nil {
		s.onResult(result)
	}
}
