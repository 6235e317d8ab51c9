package app

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"mitoseg/internal/config"
	"mitoseg/internal/logger"
	"mitoseg/internal/model"
	"mitoseg/internal/repository/sqlite"
	"mitoseg/internal/routes"
	"mitoseg/internal/services"
	"mitoseg/internal/services/ai"
	"mitoseg/internal/services/predictor"
	"mitoseg/internal/services/render"
	"mitoseg/internal/services/watcher"
	"mitoseg/internal/services/websocket"
)

type App struct {
	config *config.Config
	logger *logger.Logger
	db     *sqlite.DB
	runs   *sqlite.RunRepository
}

// NewApp validates cfg and opens the log directory and the run ledger.
func NewApp(cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logger.NewLogger(cfg.LogDirectory)
	if err != nil {
		return nil, errors.Wrap(err, "create logger")
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Close()
		return nil, errors.Wrap(err, "open run ledger")
	}

	return &App{
		config: cfg,
		logger: log,
		db:     db,
		runs:   sqlite.NewRunRepository(db),
	}, nil
}

// Logger returns the application logger.
func (a *App) Logger() *logger.Logger {
	return a.logger
}

// NewPredictor loads the model for name and builds its batch predictor. The
// returned closer releases the model.
func (a *App) NewPredictor(name string) (services.Predictor, io.Closer, error) {
	cfg := a.config
	switch name {
	case model.PredictorRegion:
		segmenter, metadata, err := ai.LoadRegionModel(cfg, cfg.RegionModel, cfg.RegionScoreThreshold)
		if err != nil {
			return nil, nil, err
		}
		a.logger.Info("Loaded region model %s with %d classes", cfg.RegionModel, metadata.NumClasses())
		p := predictor.NewRegion(segmenter, ai.NewVisualizer(), a.runs, cfg.InputDirectory, cfg.OutputDirectory, a.logger)
		return p, segmenter, nil

	case model.PredictorMaskBox:
		segmenter, err := ai.LoadMaskBoxModel(cfg, cfg.MaskBoxConfidence)
		if err != nil {
			return nil, nil, err
		}
		a.logger.Info("Loaded mask/box model %s with %d classes", cfg.MaskBoxModelPath, len(segmenter.ClassNames()))
		p := predictor.NewMaskBox(segmenter, render.NewPlotRenderer(), a.runs, cfg.InputDirectory, cfg.OutputDirectory, a.logger)
		return p, segmenter, nil

	default:
		return nil, nil, errors.Errorf("unknown predictor %q (want %s or %s)", name, model.PredictorRegion, model.PredictorMaskBox)
	}
}

// RunOnce loads the named predictor and processes the input folder a single time.
func (a *App) RunOnce(ctx context.Context, name string) (*model.BatchResult, error) {
	p, closer, err := a.NewPredictor(name)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	return services.NewManager(p, nil, a.logger).RunBatch(ctx)
}

// Watch serves the HTTP surface and reruns the named predictor whenever new
// images arrive, until ctx is cancelled.
func (a *App) Watch(ctx context.Context, name string) error {
	p, closer, err := a.NewPredictor(name)
	if err != nil {
		return err
	}
	defer closer.Close()

	hub := websocket.NewHubService(a.logger)
	manager := services.NewManager(p, hub, a.logger)
	watch := watcher.New(a.config.InputDirectory, a.config.WatchDebounce, manager.RunBatch, nil, a.logger)

	server := &http.Server{
		Addr:    a.config.WatchAddr,
		Handler: routes.SetupRoutes(hub, a.runs, a.config, a.logger),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		return watch.Run(ctx)
	})
	g.Go(func() error {
		a.logger.Info("Serving results on %s", a.config.WatchAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return errors.Wrap(err, "serve http")
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// History returns the most recent runs from the ledger.
func (a *App) History(limit int) ([]model.BatchResult, error) {
	return a.runs.GetAll(limit)
}

// Close releases the ledger and the log files.
func (a *App) Close() error {
	dbErr := a.db.Close()
	logErr := a.logger.Close()
	if dbErr != nil {
		return dbErr
	}
	return logErr
}
