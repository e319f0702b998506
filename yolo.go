package yolokit

// YOLO specific functionality.

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/sensorable/yolokit/internal/errors"
	"github.com/sensorable/yolokit/internal/logger"
)

// YOLOAnnotation is a single line of a YOLO label file.
type YOLOAnnotation struct {
	ClassID int
	Box     YOLOBox
}

// YOLOAnnotatedFile defines the YOLO annotation structure for a single image.
type YOLOAnnotatedFile struct {
	Annotations []YOLOAnnotation
	ImageID     int64
}

// ClassManifest is the class list of a YOLO dataset, as stored in classes.yaml or data.yaml.
type ClassManifest struct {
	Names []string `yaml:"names"`
	NC    int      `yaml:"nc"`
}

// LabelFileName returns the label file name for an image id, e.g. 000000000005.txt.
func LabelFileName(imageID int64) string {
	return fmt.Sprintf("%012d.txt", imageID)
}

// ImageFileName returns the image file name for an image id, e.g. 000000000005.jpg.
func ImageFileName(imageID int64) string {
	return fmt.Sprintf("%012d.jpg", imageID)
}

// formatFloat prints v in the shortest form that parses back to the same value.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// String formats the annotation as a label line without the trailing newline.
func (a YOLOAnnotation) String() string {
	return strings.Join([]string{
		strconv.Itoa(a.ClassID),
		formatFloat(a.Box.XCenter),
		formatFloat(a.Box.YCenter),
		formatFloat(a.Box.Width),
		formatFloat(a.Box.Height),
	}, " ")
}

// parseYOLOAnnotation parses the whitespace separated values of a single label line. Values after
// the fifth are ignored.
func parseYOLOAnnotation(line string) (YOLOAnnotation, error) {
	a := YOLOAnnotation{}

	tokens := strings.Fields(line)
	if len(tokens) < 5 {
		return a, fmt.Errorf("insufficient tokens in %q", line)
	}

	var err error
	if a.ClassID, err = strconv.Atoi(tokens[0]); err != nil {
		return a, fmt.Errorf("unexpected class id in %q: %w", line, err)
	}

	var v [4]float64
	for i := 0; i < 4 && err == nil; i++ {
		v[i], err = strconv.ParseFloat(tokens[i+1], 64)
	}
	if err != nil {
		return a, fmt.Errorf("unexpected values in %q: %w", line, err)
	}
	a.Box = YOLOBox{XCenter: v[0], YCenter: v[1], Width: v[2], Height: v[3]}

	return a, nil
}

// ToYOLO converts the intermediate representation to YOLO format. If clamp is set, boxes are
// clipped to the image; otherwise out-of-range values are kept and logged at debug level.
func ToYOLO(data AnnotatedFiles, clamp bool, log logger.Logger) []YOLOAnnotatedFile {
	yoloData := make([]YOLOAnnotatedFile, 0, len(data))
	for _, fileData := range data {
		yoloFileData := YOLOAnnotatedFile{
			Annotations: make([]YOLOAnnotation, 0, len(fileData.Annotations)),
			ImageID:     fileData.ImageID,
		}
		for _, a := range fileData.Annotations {
			box, err := a.Normalized()
			if err != nil {
				// FromCOCO only emits annotations with a valid size.
				log.Warn("Skipping annotation", logger.Int64("image_id", fileData.ImageID),
					logger.Error(err))
				continue
			}
			if !box.InRange() {
				if clamp {
					box = box.Clamp()
				} else {
					log.Debug("Box exceeds the image bounds",
						logger.Int64("image_id", fileData.ImageID),
						logger.Float64("x_center", box.XCenter),
						logger.Float64("y_center", box.YCenter),
						logger.Float64("width", box.Width),
						logger.Float64("height", box.Height))
				}
			}
			yoloFileData.Annotations = append(yoloFileData.Annotations,
				YOLOAnnotation{ClassID: a.ClassID, Box: box})
		}
		yoloData = append(yoloData, yoloFileData)
	}

	return yoloData
}

// WriteYOLO writes data to dirPath, one label file per element. Existing label files are
// replaced, so writing the same data twice gives identical files.
func WriteYOLO(fs afero.Fs, dirPath string, data []YOLOAnnotatedFile) error {
	if !dirExists(fs, dirPath) {
		return fmt.Errorf("cannot access directory %q", dirPath)
	}

	for _, fileData := range data {
		filePath := filepath.Join(dirPath, LabelFileName(fileData.ImageID))
		err := writeFile(fs, filePath, func(w io.Writer) error {
			for _, a := range fileData.Annotations {
				if _, err := fmt.Fprintln(w, a.String()); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// WriteClassManifest writes m as YAML to path.
func WriteClassManifest(fs afero.Fs, path string, m ClassManifest) error {
	return writeFile(fs, path, func(w io.Writer) error {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return err
		}
		return enc.Close()
	})
}

// dataYAML mirrors the parts of a YOLO data.yaml that are read. Names may be a list or a map
// from class index to name.
type dataYAML struct {
	Names yaml.Node `yaml:"names"`
	NC    *int      `yaml:"nc"`
}

// ReadClassManifest reads the class names from the YOLO data.yaml (or classes.yaml) at path.
//
// Any failure is a configuration error.
func ReadClassManifest(fs afero.Fs, path string) (ClassManifest, error) {
	fail := func(err error) (ClassManifest, error) {
		return ClassManifest{}, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("path", path).
			Build()
	}

	enc, err := afero.ReadFile(fs, path)
	if err != nil {
		return fail(fmt.Errorf("cannot read class manifest: %w", err))
	}

	var doc dataYAML
	if err := yaml.NewDecoder(bytes.NewReader(enc)).Decode(&doc); err != nil {
		return fail(fmt.Errorf("failed to parse class manifest: %w", err))
	}

	var names []string
	switch doc.Names.Kind {
	case yaml.SequenceNode:
		if err := doc.Names.Decode(&names); err != nil {
			return fail(fmt.Errorf("invalid names list: %w", err))
		}
	case yaml.MappingNode:
		var byIndex map[int]string
		if err := doc.Names.Decode(&byIndex); err != nil {
			return fail(fmt.Errorf("invalid names map: %w", err))
		}
		indices := make([]int, 0, len(byIndex))
		for i := range byIndex {
			indices = append(indices, i)
		}
		sort.Ints(indices)
		for _, i := range indices {
			names = append(names, byIndex[i])
		}
	default:
		return fail(fmt.Errorf("missing names"))
	}

	m := ClassManifest{Names: names, NC: len(names)}
	if doc.NC != nil {
		m.NC = *doc.NC
	}
	return m, nil
}
