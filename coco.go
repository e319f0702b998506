package yolokit

// COCO specific functionality.

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/afero"

	"github.com/sensorable/yolokit/internal/errors"
	"github.com/sensorable/yolokit/internal/logger"
)

// COCOCategory is an entry of the COCO "categories" array.
type COCOCategory struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// COCOImage is an entry of the COCO "images" array.
type COCOImage struct {
	ID       int64   `json:"id"`
	FileName string  `json:"file_name"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
}

// COCOAnnotation is an entry of the COCO "annotations" array.
//
// Width and Height are not part of the COCO standard, but some exporters embed the image size
// in every annotation. They take precedence over the "images" metadata.
type COCOAnnotation struct {
	ID         int64     `json:"id"`
	ImageID    int64     `json:"image_id"`
	CategoryID int64     `json:"category_id"`
	BBox       []float64 `json:"bbox"` // x, y, width, height in pixels.
	Width      *float64  `json:"width,omitempty"`
	Height     *float64  `json:"height,omitempty"`
}

// COCODataset is a COCO annotation document.
type COCODataset struct {
	Images      []COCOImage      `json:"images"`
	Annotations []COCOAnnotation `json:"annotations"`
	Categories  []COCOCategory   `json:"categories"`
}

// Box returns the annotation's bounding box.
func (a COCOAnnotation) Box() (CornerBox, error) {
	if len(a.BBox) != 4 {
		return CornerBox{}, fmt.Errorf("bbox must have 4 values, got %d", len(a.BBox))
	}
	return CornerBox{X: a.BBox[0], Y: a.BBox[1], Width: a.BBox[2], Height: a.BBox[3]}, nil
}

// EmbeddedSize returns the image size embedded in the annotation, if both sides are present.
func (a COCOAnnotation) EmbeddedSize() (ImageSize, bool) {
	if a.Width == nil || a.Height == nil {
		return ImageSize{}, false
	}
	return ImageSize{Width: *a.Width, Height: *a.Height}, true
}

// LoadCOCO reads and parses the COCO annotation document at path.
//
// Any failure is a configuration error: without the document there is nothing to convert.
func LoadCOCO(fs afero.Fs, path string) (dataset *COCODataset, err error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Newf("cannot open annotations: %w", err).
			Category(errors.CategoryConfiguration).
			Context("path", path).
			Build()
	}
	defer closeWithErrCheck(f, &err)

	var d COCODataset
	if err := json.NewDecoder(f).Decode(&d); err != nil {
		return nil, errors.Newf("failed to parse COCO input: %w", err).
			Category(errors.CategoryConfiguration).
			Context("path", path).
			Build()
	}
	return &d, nil
}

// ClassList is the ordered list of class names derived from the COCO categories. The position of
// a name is the class index written to YOLO label files.
type ClassList struct {
	names []string
	index map[int64]int // Category id to position in names.
}

// NewClassList builds the class list in first-seen order of the category ids. A repeated id keeps
// its first position and takes the later name.
func NewClassList(categories []COCOCategory, log logger.Logger) *ClassList {
	c := &ClassList{
		names: make([]string, 0, len(categories)),
		index: make(map[int64]int, len(categories)),
	}

	for _, cat := range categories {
		if i, ok := c.index[cat.ID]; ok {
			log.Warn("Duplicate category id, keeping the later name",
				logger.Int64("category_id", cat.ID),
				logger.String("old_name", c.names[i]),
				logger.String("new_name", cat.Name))
			c.names[i] = cat.Name
			continue
		}
		c.index[cat.ID] = len(c.names)
		c.names = append(c.names, cat.Name)
	}

	seen := make(map[string]bool, len(c.names))
	for _, name := range c.names {
		if seen[name] {
			log.Warn("Class name used by more than one category id", logger.String("name", name))
		}
		seen[name] = true
	}

	return c
}

// Index returns the class index of the COCO category id.
func (c *ClassList) Index(categoryID int64) (int, bool) {
	i, ok := c.index[categoryID]
	return i, ok
}

// Name returns the class name at index i.
func (c *ClassList) Name(i int) string {
	if i < 0 || i >= len(c.names) {
		return ""
	}
	return c.names[i]
}

// Len returns the number of classes.
func (c *ClassList) Len() int {
	return len(c.names)
}

// Manifest returns the class manifest for the list.
func (c *ClassList) Manifest() ClassManifest {
	names := make([]string, len(c.names))
	copy(names, c.names)
	return ClassManifest{Names: names, NC: len(names)}
}
