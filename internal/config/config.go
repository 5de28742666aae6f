// Package config holds the tunable parameters and file locations of the
// occupancy pipeline. Every component receives the section it needs instead
// of reading package-level constants.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Paths locates the pipeline inputs and outputs.
type Paths struct {
	DataDir    string `json:"data_dir"`
	LabelsFile string `json:"labels_file"`
	SlotsFile  string `json:"slots_file"`
	ModelFile  string `json:"model_file"`

	// LayoutDB, when set, replaces SlotsFile and LabelsFile as the source of
	// slots and labels. Layout selects the camera layout inside it.
	LayoutDB string `json:"layout_db,omitempty"`
	Layout   string `json:"layout,omitempty"`

	// PlotDir receives feature scatter plots when set.
	PlotDir string `json:"plot_dir,omitempty"`
}

// Preprocess holds the image normalization and binarization parameters.
type Preprocess struct {
	CLAHEClipLimit float64 `json:"clahe_clip_limit"`
	CLAHETileSize  int     `json:"clahe_tile_size"`
	BlurKernel     int     `json:"blur_kernel"`    // Gaussian kernel size (odd)
	AdaptiveBlock  int     `json:"adaptive_block"` // Adaptive threshold window (odd)
	AdaptiveC      float64 `json:"adaptive_c"`     // Constant subtracted from the weighted local mean
	MedianKernel   int     `json:"median_kernel"`  // Speckle filter aperture (odd)
}

// Train holds the split and classifier parameters.
type Train struct {
	TrainFraction float64 `json:"train_fraction"`
	C             float64 `json:"c"`
	// Gamma of the RBF kernel. Zero selects 1 / (n_features * Var(X)).
	Gamma            float64 `json:"gamma"`
	Tolerance        float64 `json:"tolerance"`
	MaxIter          int     `json:"max_iter"`
	CacheRows        int     `json:"cache_rows"`
	Probability      bool    `json:"probability"`
	ProbabilityFolds int     `json:"probability_folds"`
	Seed             int64   `json:"seed"`

	// ScaleOnFullDataset fits the feature scaler on every row before the
	// chronological split instead of on the training rows only.
	ScaleOnFullDataset bool `json:"scale_on_full_dataset"`
}

// Config is the root configuration.
type Config struct {
	Paths      Paths      `json:"paths"`
	Preprocess Preprocess `json:"preprocess"`
	Train      Train      `json:"train"`

	// Workers is the number of frames processed concurrently while building
	// the dataset. 1 keeps the build strictly sequential.
	Workers int `json:"workers"`
}

// DefaultPreprocess returns the preprocessing parameters the shipped models were trained with.
func DefaultPreprocess() Preprocess {
	return Preprocess{
		CLAHEClipLimit: 2.0,
		CLAHETileSize:  8,
		BlurKernel:     5,
		AdaptiveBlock:  25,
		AdaptiveC:      15,
		MedianKernel:   5,
	}
}

// DefaultTrain returns the default split and classifier parameters.
func DefaultTrain() Train {
	return Train{
		TrainFraction:    0.8,
		C:                1.0,
		Gamma:            0,
		Tolerance:        1e-3,
		MaxIter:          10_000_000,
		CacheRows:        4096,
		Probability:      true,
		ProbabilityFolds: 5,
		Seed:             42,
	}
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    "data",
			LabelsFile: "ground_truth.json",
			SlotsFile:  "plazas.json",
			ModelFile:  "model.json",
		},
		Preprocess: DefaultPreprocess(),
		Train:      DefaultTrain(),
		Workers:    1,
	}
}

// Load reads a JSON configuration file on top of the defaults.
// Fields omitted from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return cfg, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return cfg, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c Config) Validate() error {
	if err := c.Preprocess.Validate(); err != nil {
		return err
	}
	if err := c.Train.Validate(); err != nil {
		return err
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Paths.LayoutDB != "" && c.Paths.Layout == "" {
		return fmt.Errorf("layout name is required when a layout database is used")
	}
	return nil
}

// Validate checks kernel sizes and CLAHE settings.
func (p Preprocess) Validate() error {
	if p.CLAHEClipLimit <= 0 {
		return fmt.Errorf("clahe_clip_limit must be positive, got %g", p.CLAHEClipLimit)
	}
	if p.CLAHETileSize < 1 {
		return fmt.Errorf("clahe_tile_size must be at least 1, got %d", p.CLAHETileSize)
	}
	if !oddAtLeast(p.BlurKernel, 1) {
		return fmt.Errorf("blur_kernel must be odd and positive, got %d", p.BlurKernel)
	}
	if !oddAtLeast(p.AdaptiveBlock, 3) {
		return fmt.Errorf("adaptive_block must be odd and at least 3, got %d", p.AdaptiveBlock)
	}
	if !oddAtLeast(p.MedianKernel, 3) {
		return fmt.Errorf("median_kernel must be odd and at least 3, got %d", p.MedianKernel)
	}
	return nil
}

// Validate checks the split fraction and classifier settings.
func (t Train) Validate() error {
	if t.TrainFraction <= 0 || t.TrainFraction >= 1 {
		return fmt.Errorf("train_fraction must be in (0, 1), got %g", t.TrainFraction)
	}
	if t.C <= 0 {
		return fmt.Errorf("c must be positive, got %g", t.C)
	}
	if t.Gamma < 0 {
		return fmt.Errorf("gamma must be zero (scale) or positive, got %g", t.Gamma)
	}
	if t.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive, got %g", t.Tolerance)
	}
	if t.MaxIter < 1 {
		return fmt.Errorf("max_iter must be positive, got %d", t.MaxIter)
	}
	if t.Probability && t.ProbabilityFolds < 2 {
		return fmt.Errorf("probability_folds must be at least 2, got %d", t.ProbabilityFolds)
	}
	return nil
}

// WithCLAHE returns a copy of p with custom contrast normalization settings.
func (p Preprocess) WithCLAHE(clipLimit float64, tileSize int) Preprocess {
	p.CLAHEClipLimit = clipLimit
	p.CLAHETileSize = tileSize
	return p
}

// WithAdaptiveThreshold returns a copy of p with a custom threshold window and constant.
// An even block size is bumped to the next odd value.
func (p Preprocess) WithAdaptiveThreshold(block int, c float64) Preprocess {
	if block%2 == 0 {
		block++
	}
	p.AdaptiveBlock = block
	p.AdaptiveC = c
	return p
}

func oddAtLeast(v, min int) bool {
	return v >= min && v%2 == 1
}
