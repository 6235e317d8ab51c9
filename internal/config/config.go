package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultRegionModel is the architecture identifier used when REGION_MODEL is unset.
const DefaultRegionModel = "COCO-InstanceSegmentation/mask_rcnn_R_101_FPN_3x.yaml"

type Config struct {
	TrainJSONPath        string
	TrainImagesDir       string
	RegionModelDir       string // katalog z model_final.pb
	RegionModelZooDir    string // konfiguracje grafów dla identyfikatorów architektur
	RegionModel          string
	RegionScoreThreshold float64
	MaskBoxModelPath     string
	MaskBoxDataPath      string // YAML z listą "names"
	MaskBoxConfidence    float64
	MaskBoxIoU           float64
	MaskBoxInputSize     int
	InputDirectory       string
	OutputDirectory      string
	LogDirectory         string
	DatabasePath         string
	WatchAddr            string
	WatchDebounce        time.Duration
}

// Load reads the configuration from the environment. A .env file in the
// working directory, when present, seeds variables that are not already set.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		TrainJSONPath:        getEnv("TRAIN_JSON_PATH", filepath.Join("data", "train", "_annotations.coco.json")),
		TrainImagesDir:       getEnv("TRAIN_IMAGES_DIR", filepath.Join("data", "train")),
		RegionModelDir:       getEnv("REGION_MODEL_DIR", filepath.Join("models", "region")),
		RegionModelZooDir:    getEnv("REGION_MODEL_ZOO_DIR", filepath.Join("models", "zoo")),
		RegionModel:          getEnv("REGION_MODEL", DefaultRegionModel),
		RegionScoreThreshold: getEnvAsFloat("REGION_SCORE_THRESHOLD", 0.5),
		MaskBoxModelPath:     getEnv("MASKBOX_MODEL_PATH", filepath.Join("models", "maskbox", "best.onnx")),
		MaskBoxDataPath:      getEnv("MASKBOX_DATA_PATH", filepath.Join("models", "maskbox", "data.yaml")),
		MaskBoxConfidence:    getEnvAsFloat("MASKBOX_CONFIDENCE", 0.25),
		MaskBoxIoU:           getEnvAsFloat("MASKBOX_IOU", 0.45),
		MaskBoxInputSize:     getEnvAsInt("MASKBOX_INPUT_SIZE", 640),
		InputDirectory:       getEnv("INPUT_DIR", filepath.Join("images", "input")),
		OutputDirectory:      getEnv("OUTPUT_DIR", filepath.Join("images", "output")),
		LogDirectory:         getEnv("LOG_DIR", "logs"),
		DatabasePath:         getEnv("DB_PATH", filepath.Join("data", "mitoseg.db")),
		WatchAddr:            getEnv("WATCH_ADDR", ":8080"),
		WatchDebounce:        time.Duration(getEnvAsInt("WATCH_DEBOUNCE_MS", 2000)) * time.Millisecond,
	}
}

// Validate checks the values that cannot be repaired by falling back to defaults.
func (c *Config) Validate() error {
	if c.RegionScoreThreshold < 0 || c.RegionScoreThreshold > 1 {
		return fmt.Errorf("region score threshold must be in [0,1], got %v", c.RegionScoreThreshold)
	}
	if c.MaskBoxConfidence < 0 || c.MaskBoxConfidence > 1 {
		return fmt.Errorf("mask/box confidence must be in [0,1], got %v", c.MaskBoxConfidence)
	}
	if c.MaskBoxIoU < 0 || c.MaskBoxIoU > 1 {
		return fmt.Errorf("mask/box IoU must be in [0,1], got %v", c.MaskBoxIoU)
	}
	if c.MaskBoxInputSize <= 0 {
		return fmt.Errorf("mask/box input size must be positive, got %d", c.MaskBoxInputSize)
	}
	if c.InputDirectory == "" || c.OutputDirectory == "" {
		return fmt.Errorf("input and output directories are required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
