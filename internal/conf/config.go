// Package conf loads the yolokit settings from defaults, an optional YAML file, the environment
// and command line flags.
package conf

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/sensorable/yolokit/internal/errors"
)

// EnvPrefix is the prefix of environment variable overrides, e.g. YOLOKIT_HEALTH_GRID_RESOLUTION.
const EnvPrefix = "YOLOKIT"

// Settings holds all yolokit settings.
type Settings struct {
	Log     LogSettings     `mapstructure:"log"`
	Convert ConvertSettings `mapstructure:"convert"`
	Health  HealthSettings  `mapstructure:"health"`
}

// LogSettings configures the console and file logger.
type LogSettings struct {
	Level string `mapstructure:"level"` // debug, info, warn or error
	File  string `mapstructure:"file"`  // Log file, truncated per run. Empty disables it.
}

// ConvertSettings configures the COCO to YOLO converter.
type ConvertSettings struct {
	Clamp      bool   `mapstructure:"clamp"`       // Clip normalized boxes to [0,1].
	CopyImages bool   `mapstructure:"copy_images"` // Copy the .jpg images into <output>/images.
	TFRecord   string `mapstructure:"tfrecord"`    // TFRecord output path. Empty disables export.
	NumShards  int    `mapstructure:"num_shards"`  // Number of TFRecord shard files.
}

// HealthSettings configures the dataset health checker.
type HealthSettings struct {
	Splits         []string `mapstructure:"splits"`          // Split directories to scan.
	GridResolution int      `mapstructure:"grid_resolution"` // Heatmap cells per side.
	ImageSize      int      `mapstructure:"image_size"`      // Rendered chart size in pixels.
	OutputDir      string   `mapstructure:"output_dir"`      // Directory under the dataset root.
}

// SetDefaults registers the default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "main.log")

	v.SetDefault("convert.clamp", false)
	v.SetDefault("convert.copy_images", false)
	v.SetDefault("convert.tfrecord", "")
	v.SetDefault("convert.num_shards", 1)

	v.SetDefault("health.splits", []string{"train", "val"})
	v.SetDefault("health.grid_resolution", 1000)
	v.SetDefault("health.image_size", 800)
	v.SetDefault("health.output_dir", "health")
}

// NewViper returns a viper instance with defaults and environment overrides set up.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional config file at configPath into v and returns the validated settings.
func Load(v *viper.Viper, configPath string) (*Settings, error) {
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Newf("failed to read config file: %w", err).
				Category(errors.CategoryConfiguration).
				Context("path", configPath).
				Build()
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, errors.Newf("failed to decode settings: %w", err).
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Validate checks the settings ranges.
func (s *Settings) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.New(fmt.Errorf(format, args...)).Category(errors.CategoryValidation).Build()
	}

	if s.Convert.NumShards < 1 {
		return invalid("convert.num_shards must be at least 1, got %d", s.Convert.NumShards)
	}

	splits := s.Health.Splits[:0:0]
	for _, split := range s.Health.Splits {
		if split = strings.TrimSpace(split); split != "" {
			splits = append(splits, split)
		}
	}
	if len(splits) == 0 {
		return invalid("health.splits must name at least one split")
	}
	s.Health.Splits = splits

	if s.Health.GridResolution < 1 || s.Health.GridResolution > 10000 {
		return invalid("health.grid_resolution must be in [1, 10000], got %d",
			s.Health.GridResolution)
	}
	if s.Health.ImageSize < 64 || s.Health.ImageSize > 8192 {
		return invalid("health.image_size must be in [64, 8192], got %d", s.Health.ImageSize)
	}
	if strings.TrimSpace(s.Health.OutputDir) == "" {
		return invalid("health.output_dir must not be empty")
	}

	return nil
}
