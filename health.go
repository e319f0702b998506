package yolokit

// The YOLO dataset health check.

import (
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/sensorable/yolokit/internal/errors"
	"github.com/sensorable/yolokit/internal/logger"
)

// Dataset layout read and written by the health check.
const (
	DataYAMLFile       = "data.yaml"
	ResultsFile        = "resultados.yml"
	DefaultHealthDir   = "health"
	DefaultRenderSize  = 800
	MinRenderSize      = 64
	labelFileExtension = ".txt"
)

// DefaultSplits are the splits scanned when none are configured.
var DefaultSplits = []string{"train", "val"}

// SplitResult holds the statistics of one dataset split.
type SplitResult struct {
	TotalImages             int         `yaml:"total_imagens"`
	TotalAnnotations        int         `yaml:"total_anotacoes"`
	ImagesWithoutAnnotation int         `yaml:"imagens_sem_anotacao"`
	EmptyAnnotations        int         `yaml:"anotacoes_vazias"`
	ClassCounts             map[int]int `yaml:"classes_contagem"`
}

// Results maps split names to their statistics.
type Results map[string]SplitResult

// HealthOptions configures a health check run.
type HealthOptions struct {
	DatasetDir     string   // Dataset root with data.yaml and one directory per split.
	Splits         []string // Split directories to scan.
	GridResolution int      // Heatmap cells per side.
	RenderSize     int      // Rendered chart width in pixels.
	OutputDir      string   // Output directory name under DatasetDir.
}

// HealthChecker computes per-split statistics and heatmaps of a YOLO dataset.
type HealthChecker struct {
	fs   afero.Fs
	log  logger.Logger
	opts HealthOptions
}

// NewHealthChecker returns a HealthChecker reading and writing through fs. Zero options take
// their defaults.
func NewHealthChecker(fs afero.Fs, log logger.Logger, opts HealthOptions) *HealthChecker {
	if len(opts.Splits) == 0 {
		opts.Splits = DefaultSplits
	}
	if opts.GridResolution <= 0 {
		opts.GridResolution = DefaultGridResolution
	}
	if opts.RenderSize <= 0 {
		opts.RenderSize = DefaultRenderSize
	} else if opts.RenderSize < MinRenderSize {
		opts.RenderSize = MinRenderSize
	}
	if opts.OutputDir == "" {
		opts.OutputDir = DefaultHealthDir
	}
	return &HealthChecker{fs: fs, log: log.Module("health"), opts: opts}
}

// OutputPath returns the directory receiving the charts and the results file.
func (hc *HealthChecker) OutputPath() string {
	return filepath.Join(hc.opts.DatasetDir, hc.opts.OutputDir)
}

// Run scans every split, writes the charts per split and the results file at the end.
//
// A data.yaml that cannot be loaded aborts the run. Problems with single label files or charts
// are logged and the run continues.
func (hc *HealthChecker) Run() (Results, error) {
	hc.log.Info("Starting dataset analysis",
		logger.String("dataset", hc.opts.DatasetDir),
		logger.Strings("splits", hc.opts.Splits))

	manifest, err := ReadClassManifest(hc.fs, filepath.Join(hc.opts.DatasetDir, DataYAMLFile))
	if err != nil {
		return nil, err
	}
	hc.log.Info("Class manifest loaded", logger.Int("classes", len(manifest.Names)))

	outDir := hc.OutputPath()
	if err := hc.fs.MkdirAll(outDir, 0o755); err != nil {
		return nil, errors.Newf("cannot create output directory: %w", err).
			Category(errors.CategoryFileIO).
			Context("path", outDir).
			Build()
	}

	results := make(Results, len(hc.opts.Splits))
	for _, split := range hc.opts.Splits {
		res, heatmap, err := hc.ScanSplit(split)
		if err != nil {
			return nil, err
		}
		results[split] = res
		hc.log.Info("Split analysed",
			logger.String("split", split),
			logger.Int("images", res.TotalImages),
			logger.Int("annotations", res.TotalAnnotations),
			logger.Int("images_without_annotation", res.ImagesWithoutAnnotation),
			logger.Int("empty_annotations", res.EmptyAnnotations))

		hc.saveChart(filepath.Join(outDir, "class_distribution_"+split+".png"),
			RenderClassDistribution(res.ClassCounts, "Class distribution - "+split,
				hc.opts.RenderSize))
		hc.saveChart(filepath.Join(outDir, "heatmap_"+split+".png"),
			RenderHeatmap(heatmap, "Annotation heatmap - "+split, hc.opts.RenderSize))
	}

	resultsPath := filepath.Join(outDir, ResultsFile)
	if err := WriteResults(hc.fs, resultsPath, results); err != nil {
		return results, errors.New(err).Category(errors.CategoryFileIO).Build()
	}
	hc.log.Info("Results saved", logger.String("path", resultsPath))

	return results, nil
}

// saveChart writes a rendered chart. A failure is logged and does not stop the run.
func (hc *HealthChecker) saveChart(path string, img image.Image) {
	if err := saveImage(hc.fs, path, img); err != nil {
		hc.log.Error("Failed to save chart", logger.String("path", path),
			logger.Error(errors.New(err).Category(errors.CategoryRender).Build()))
		return
	}
	hc.log.Debug("Chart saved", logger.String("path", path))
}

// ScanSplit computes the statistics and the heatmap of one split.
//
// Images are enumerated from <split>/images and their labels looked up in <split>/labels. A label
// file shared by images with the same base name is scanned once; label files without an image are
// scanned too but add no image. Without an images directory every label file counts as one image. A split with neither directory is
// logged and yields an empty result.
func (hc *HealthChecker) ScanSplit(split string) (SplitResult, *Heatmap, error) {
	log := hc.log.With(logger.String("split", split))
	res := SplitResult{ClassCounts: make(map[int]int)}

	heatmap, err := NewHeatmap(hc.opts.GridResolution)
	if err != nil {
		return res, nil, errors.New(err).Category(errors.CategoryValidation).Build()
	}

	splitDir := filepath.Join(hc.opts.DatasetDir, split)
	imageDir := filepath.Join(splitDir, ImagesDir)
	labelDir := filepath.Join(splitDir, LabelsDir)

	var labelFiles []string
	seen := make(map[string]bool)
	switch {
	case dirExists(hc.fs, imageDir):
		images, err := filesByExtInDir(hc.fs, imageDir, imageExtensions...)
		if err != nil {
			log.Error("Cannot list images", logger.Error(err))
			break
		}
		for _, imagePath := range images {
			res.TotalImages++
			_, baseNoExt, _, err := splitPath(imagePath)
			if err != nil {
				continue
			}
			labelPath := filepath.Join(labelDir, baseNoExt+labelFileExtension)
			ok, err := afero.Exists(hc.fs, labelPath)
			if err != nil {
				log.Warn("Cannot check label file", logger.String("path", labelPath),
					logger.Error(errors.New(err).Category(errors.CategoryFileIO).Build()))
			}
			if !ok {
				res.ImagesWithoutAnnotation++
				log.Debug("Image without label file", logger.String("image", imagePath))
				continue
			}
			if seen[labelPath] {
				log.Warn("Label file shared by several images, counting it once",
					logger.String("path", labelPath), logger.String("image", imagePath))
				continue
			}
			seen[labelPath] = true
			labelFiles = append(labelFiles, labelPath)
		}

		// Label files without an image still count towards the annotations.
		if dirExists(hc.fs, labelDir) {
			labels, err := filesByExtInDir(hc.fs, labelDir, labelFileExtension)
			if err != nil {
				log.Error("Cannot list label files", logger.Error(err))
				break
			}
			for _, labelPath := range labels {
				if seen[labelPath] {
					continue
				}
				log.Warn("Label file without image", logger.String("path", labelPath))
				seen[labelPath] = true
				labelFiles = append(labelFiles, labelPath)
			}
		}

	case dirExists(hc.fs, labelDir):
		labels, err := filesByExtInDir(hc.fs, labelDir, labelFileExtension)
		if err != nil {
			log.Error("Cannot list label files", logger.Error(err))
			break
		}
		res.TotalImages = len(labels)
		labelFiles = labels

	default:
		log.Warn("Split not found, reporting it as empty", logger.String("path", splitDir))
	}

	for _, path := range labelFiles {
		hc.scanLabelFile(path, &res, heatmap, log)
	}

	return res, heatmap, nil
}

// scanLabelFile accumulates the annotations of one label file into res and heatmap.
//
// An unreadable file is skipped. A malformed line stops the file: lines before it stay counted.
func (hc *HealthChecker) scanLabelFile(path string, res *SplitResult, heatmap *Heatmap,
	log logger.Logger) {

	lines, err := readLines(hc.fs, path)
	if err != nil {
		log.Warn("Skipping unreadable label file", logger.String("path", path),
			logger.Error(errors.New(err).Category(errors.CategoryFileIO).Build()))
		return
	}

	if !hasContent(lines) {
		res.EmptyAnnotations++
		return
	}

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		a, err := parseYOLOAnnotation(line)
		if err != nil {
			log.Warn("Malformed label line, skipping the rest of the file",
				logger.String("path", path),
				logger.Int("line", i+1),
				logger.Error(errors.New(err).Category(errors.CategoryFileParsing).Build()))
			break
		}

		res.TotalAnnotations++
		res.ClassCounts[a.ClassID]++
		heatmap.Add(a.Box)
	}
}

// hasContent reports whether any line is non-blank.
func hasContent(lines []string) bool {
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			return true
		}
	}
	return false
}

// WriteResults writes the per-split results as YAML to path.
func WriteResults(fs afero.Fs, path string, results Results) error {
	return writeFile(fs, path, func(w io.Writer) error {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(results); err != nil {
			return fmt.Errorf("cannot encode results: %w", err)
		}
		return enc.Close()
	})
}

// ReadResults reads a results file written by WriteResults.
func ReadResults(fs afero.Fs, path string) (Results, error) {
	enc, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	var results Results
	if err := yaml.Unmarshal(enc, &results); err != nil {
		return nil, fmt.Errorf("failed to parse results %q: %w", path, err)
	}
	return results, nil
}
