package yolokit

// The COCO to YOLO conversion pipeline.

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/sensorable/yolokit/internal/errors"
	"github.com/sensorable/yolokit/internal/logger"
)

// Output layout of a converted dataset.
const (
	ClassManifestFile = "classes.yaml"
	LabelsDir         = "labels"
	ImagesDir         = "images"
)

// ConvertOptions configures a conversion run.
type ConvertOptions struct {
	ImageDir        string // Folder with the source images, named <12-digit-id>.jpg.
	AnnotationsPath string // The COCO annotation JSON document.
	OutputDir       string // Receives labels/, classes.yaml and optionally images/.

	Clamp      bool   // Clip normalized boxes to [0,1].
	CopyImages bool   // Copy the source .jpg images into <OutputDir>/images.
	TFRecord   string // If set, also export the dataset as TFRecord to this path.
	NumShards  int    // Number of TFRecord shard files.
}

// ConvertStats summarises a conversion run.
type ConvertStats struct {
	Classes      int
	Annotations  int // Source annotations.
	Converted    int // Annotations written to label files.
	Skipped      int // Annotations skipped as recoverable failures.
	LabelFiles   int
	ImagesCopied int
	Records      int // TFRecord examples written.
}

// Converter converts a COCO annotation document into a YOLO label directory.
type Converter struct {
	fs   afero.Fs
	log  logger.Logger
	opts ConvertOptions
}

// NewConverter returns a Converter reading and writing through fs.
func NewConverter(fs afero.Fs, log logger.Logger, opts ConvertOptions) *Converter {
	if opts.NumShards <= 0 {
		opts.NumShards = 1
	}
	return &Converter{fs: fs, log: log.Module("convert"), opts: opts}
}

// Run performs the conversion. Only a failure to load the annotations or to create the output
// is returned as an error; per-annotation and per-image problems are logged and skipped.
func (c *Converter) Run() (ConvertStats, error) {
	var stats ConvertStats
	c.log.Info("Starting conversion",
		logger.String("images", c.opts.ImageDir),
		logger.String("annotations", c.opts.AnnotationsPath),
		logger.String("output", c.opts.OutputDir),
		logger.Bool("clamp", c.opts.Clamp),
		logger.Bool("copy_images", c.opts.CopyImages))

	dataset, err := LoadCOCO(c.fs, c.opts.AnnotationsPath)
	if err != nil {
		return stats, err
	}
	c.log.Info("Annotations read",
		logger.Int("categories", len(dataset.Categories)),
		logger.Int("images", len(dataset.Images)),
		logger.Int("annotations", len(dataset.Annotations)))

	labelDir := filepath.Join(c.opts.OutputDir, LabelsDir)
	if err := c.fs.MkdirAll(labelDir, 0o755); err != nil {
		return stats, errors.Newf("cannot create output directory: %w", err).
			Category(errors.CategoryFileIO).
			Context("path", labelDir).
			Build()
	}

	// Class manifest.
	classes := NewClassList(dataset.Categories, c.log)
	stats.Classes = classes.Len()
	manifestPath := filepath.Join(c.opts.OutputDir, ClassManifestFile)
	if err := WriteClassManifest(c.fs, manifestPath, classes.Manifest()); err != nil {
		return stats, errors.New(err).Category(errors.CategoryFileIO).Build()
	}
	c.log.Info("Classes written", logger.String("path", manifestPath),
		logger.Int("nc", classes.Len()))

	// Labels.
	data, fromStats := FromCOCO(c.fs, dataset, classes, c.opts.ImageDir, c.log)
	stats.Annotations = fromStats.Annotations

	yoloData := ToYOLO(data, c.opts.Clamp, c.log)
	for _, f := range yoloData {
		stats.Converted += len(f.Annotations)
	}
	stats.Skipped = stats.Annotations - stats.Converted

	if err := WriteYOLO(c.fs, labelDir, yoloData); err != nil {
		return stats, errors.New(err).Category(errors.CategoryFileIO).Build()
	}
	stats.LabelFiles = len(yoloData)
	c.log.Info("Labels written",
		logger.Int("files", stats.LabelFiles),
		logger.Int("annotations", stats.Converted),
		logger.Int("skipped", stats.Skipped))

	if c.opts.CopyImages {
		stats.ImagesCopied = c.copyImages()
	}

	if c.opts.TFRecord != "" {
		n, err := WriteTFRecord(c.fs, c.opts.TFRecord, data, classes, c.opts.NumShards, c.log)
		if err != nil {
			return stats, errors.New(fmt.Errorf("TFRecord export failed: %w", err)).
				Category(errors.CategoryFileIO).
				Context("path", c.opts.TFRecord).
				Build()
		}
		stats.Records = n
	}

	c.log.Info("Conversion finished")
	return stats, nil
}

// copyImages copies the .jpg images of the image folder into the output images folder. Failures
// are logged per file. Returns the number of copied images.
func (c *Converter) copyImages() int {
	outDir := filepath.Join(c.opts.OutputDir, ImagesDir)
	if err := c.fs.MkdirAll(outDir, 0o755); err != nil {
		c.log.Error("Cannot create the image output directory", logger.String("path", outDir),
			logger.Error(err))
		return 0
	}

	files, err := filesByExtInDir(c.fs, c.opts.ImageDir, ".jpg")
	if err != nil {
		c.log.Error("Cannot list images", logger.Error(err))
		return 0
	}

	copied := 0
	for _, src := range files {
		dst := filepath.Join(outDir, filepath.Base(src))
		if err := copyFile(c.fs, src, dst); err != nil {
			c.log.Warn("Failed to copy image", logger.String("path", src), logger.Error(err))
			continue
		}
		copied++
	}
	c.log.Info("Images copied", logger.Int("count", copied), logger.String("path", outDir))

	return copied
}
