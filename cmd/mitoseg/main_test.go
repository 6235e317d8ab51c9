package main

import (
	"bytes"
	"flag"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/urfave/cli/v2"

	"mitoseg/internal/config"
	"mitoseg/internal/model"
)

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	printSummary(&buf, &model.BatchResult{TotalObjects: 3, MeanArea: 14, ImageID: "run_3", RecordFile: "run.csv"})
	assert.Equal(t, "3 14.0 run_3 run.csv\n", buf.String())
}

func TestHistoryTable(t *testing.T) {
	out := historyTable([]model.BatchResult{{
		RunID:           "abc",
		Predictor:       model.PredictorMaskBox,
		StartedAt:       time.Date(2024, 3, 1, 12, 0, 0, 0, time.Local),
		ImagesProcessed: 2,
		TotalObjects:    7,
		MeanArea:        12.345,
		RecordFile:      "abc_2.csv",
	}})

	assert.Contains(t, out, "abc")
	assert.Contains(t, out, "maskbox")
	assert.Contains(t, out, "2024-03-01 12:00:00")
	assert.Contains(t, out, "12.35")
	assert.Contains(t, out, "abc_2.csv")
}

func TestApplyOverrides(t *testing.T) {
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String(flagInput, "", "")
	set.String(flagOutput, "", "")
	set.Float64(flagThreshold, 0, "")
	assert.NoError(t, set.Parse([]string{"--input", "in", "--threshold", "0.7"}))
	c := cli.NewContext(mitosegApp, set, nil)

	cfg := &config.Config{InputDirectory: "a", OutputDirectory: "b", RegionScoreThreshold: 0.5, MaskBoxConfidence: 0.25}
	applyOverrides(cfg, c, model.PredictorMaskBox)
	assert.Equal(t, "in", cfg.InputDirectory)
	assert.Equal(t, "b", cfg.OutputDirectory)
	assert.Equal(t, 0.7, cfg.MaskBoxConfidence)
	assert.Equal(t, 0.5, cfg.RegionScoreThreshold)

	applyOverrides(cfg, c, model.PredictorRegion)
	assert.Equal(t, 0.7, cfg.RegionScoreThreshold)
}

func TestApplyOverrides_FolderFlagsAtEitherLevel(t *testing.T) {
	appSet := flag.NewFlagSet("mitoseg", flag.ContinueOnError)
	appSet.String(flagInput, "", "")
	appSet.String(flagOutput, "", "")
	assert.NoError(t, appSet.Parse([]string{"--input", "root-in", "--output", "root-out"}))
	parent := cli.NewContext(mitosegApp, appSet, nil)

	cmdSet := flag.NewFlagSet(model.PredictorRegion, flag.ContinueOnError)
	cmdSet.String(flagInput, "", "")
	cmdSet.String(flagOutput, "", "")
	cmdSet.Float64(flagThreshold, 0, "")
	assert.NoError(t, cmdSet.Parse([]string{"--output", "cmd-out"}))
	c := cli.NewContext(mitosegApp, cmdSet, parent)

	cfg := &config.Config{InputDirectory: "a", OutputDirectory: "b"}
	applyOverrides(cfg, c, model.PredictorRegion)
	assert.Equal(t, "root-in", cfg.InputDirectory)
	assert.Equal(t, "cmd-out", cfg.OutputDirectory)
}

func TestSubcommandsAcceptFolderFlags(t *testing.T) {
	for _, cmd := range mitosegApp.Commands {
		if cmd.Name == "history" {
			continue
		}
		var names []string
		for _, f := range cmd.Flags {
			names = append(names, f.Names()...)
		}
		assert.Contains(t, names, flagInput, cmd.Name)
		assert.Contains(t, names, flagOutput, cmd.Name)
	}
}
