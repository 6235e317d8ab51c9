// Package main is the mitoseg command: batch segmentation of microscopy images.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"mitoseg/internal/app"
	"mitoseg/internal/config"
	"mitoseg/internal/model"
	"mitoseg/internal/services/storage"
)

const (
	// Flags.
	flagInput     = "input"
	flagOutput    = "output"
	flagThreshold = "threshold"
	flagPredictor = "predictor"
	flagLimit     = "limit"
)

var thresholdFlag = &cli.Float64Flag{
	Name:  flagThreshold,
	Usage: "minimum detection score, overrides the configured value",
}

// folderFlags are accepted both before and after the command name.
func folderFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  flagInput,
			Usage: "input image `DIR`, consumed by every run",
		},
		&cli.StringFlag{
			Name:  flagOutput,
			Usage: "output `DIR` for visualizations and record files",
		},
	}
}

var mitosegApp = &cli.App{
	Name:            "mitoseg",
	Usage:           "segment mitochondria in microscopy images and measure every object",
	HideHelpCommand: true,
	Flags:           folderFlags(),
	Commands: []*cli.Command{
		{
			Name:   model.PredictorRegion,
			Usage:  "run the region model once over the input folder",
			Flags:  append(folderFlags(), thresholdFlag),
			Action: runAction(model.PredictorRegion),
		},
		{
			Name:   model.PredictorMaskBox,
			Usage:  "run the mask/box model once over the input folder",
			Flags:  append(folderFlags(), thresholdFlag),
			Action: runAction(model.PredictorMaskBox),
		},
		{
			Name:  "watch",
			Usage: "rerun a predictor whenever images arrive and stream results over HTTP",
			Flags: append(folderFlags(),
				&cli.StringFlag{
					Name:  flagPredictor,
					Value: model.PredictorRegion,
					Usage: "predictor to run (region or maskbox)",
				},
				thresholdFlag,
			),
			Action: WatchAction,
		},
		{
			Name:  "history",
			Usage: "list past runs from the ledger",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  flagLimit,
					Value: 20,
					Usage: "number of runs to show",
				},
			},
			Action: HistoryAction,
		},
	},
}

func main() {
	if err := mitosegApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// loadConfig reads the environment and applies command-line overrides.
func loadConfig(c *cli.Context, predictor string) *config.Config {
	cfg := config.Load()
	applyOverrides(cfg, c, predictor)
	return cfg
}

func applyOverrides(cfg *config.Config, c *cli.Context, predictor string) {
	if dir, ok := lookupString(c, flagInput); ok {
		cfg.InputDirectory = dir
	}
	if dir, ok := lookupString(c, flagOutput); ok {
		cfg.OutputDirectory = dir
	}
	if c.IsSet(flagThreshold) {
		if predictor == model.PredictorMaskBox {
			cfg.MaskBoxConfidence = c.Float64(flagThreshold)
		} else {
			cfg.RegionScoreThreshold = c.Float64(flagThreshold)
		}
	}
}

// lookupString returns the value of a flag defined at several levels from the
// innermost context that set it.
func lookupString(c *cli.Context, name string) (string, bool) {
	for _, ctx := range c.Lineage() {
		if ctx.App == nil {
			continue
		}
		for _, set := range ctx.LocalFlagNames() {
			if set == name {
				return ctx.String(name), true
			}
		}
	}
	return "", false
}

func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

func runAction(predictor string) cli.ActionFunc {
	return func(c *cli.Context) error {
		a, err := app.NewApp(loadConfig(c, predictor))
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signalContext(c)
		defer stop()

		result, err := a.RunOnce(ctx, predictor)
		if err != nil {
			return errors.Wrapf(err, "%s run failed", predictor)
		}
		printSummary(c.App.Writer, result)
		return nil
	}
}

// WatchAction runs watch mode until interrupted.
func WatchAction(c *cli.Context) error {
	predictor := c.String(flagPredictor)
	a, err := app.NewApp(loadConfig(c, predictor))
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext(c)
	defer stop()

	return a.Watch(ctx, predictor)
}

// HistoryAction prints the most recent runs as a table.
func HistoryAction(c *cli.Context) error {
	a, err := app.NewApp(loadConfig(c, ""))
	if err != nil {
		return err
	}
	defer a.Close()

	runs, err := a.History(c.Int(flagLimit))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, historyTable(runs))
	return nil
}

// printSummary writes "total_objects mean_area image_id record_file".
func printSummary(w io.Writer, result *model.BatchResult) {
	fmt.Fprintln(w, result.TotalObjects, storage.FormatFloat(result.MeanArea), result.ImageID, result.RecordFile)
}

func historyTable(runs []model.BatchResult) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Run", "Predictor", "Started", "Images", "Objects", "Mean area", "Record file"})
	for i, run := range runs {
		t.AppendRow(table.Row{
			i + 1,
			run.RunID,
			run.Predictor,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.ImagesProcessed,
			run.TotalObjects,
			fmt.Sprintf("%.2f", run.MeanArea),
			run.RecordFile,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "", "Total", len(runs)})
	return t.Render()
}
