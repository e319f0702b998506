package yolokit

// The intermediate annotation metadata representation, shared by the YOLO and TFRecord writers.

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/sensorable/yolokit/internal/errors"
	"github.com/sensorable/yolokit/internal/logger"
)

// Annotation is the intermediate representation of an object label.
type Annotation struct {
	Box       CornerBox // Absolute box in pixels.
	ClassID   int       // Index into the ClassList.
	Label     string    // Class name.
	ImageSize ImageSize // The image size Box refers to.
}

// Normalized returns the box in YOLO form.
func (a Annotation) Normalized() (YOLOBox, error) {
	return a.Box.Normalize(a.ImageSize)
}

// AnnotatedFile is the intermediate representation of the annotations of one image.
type AnnotatedFile struct {
	Annotations []Annotation // In source encounter order.
	FilePath    string       // The annotated image, which may not exist.
	ImageID     int64
	Size        ImageSize // Size resolved for the first annotation.
}

// AnnotatedFiles is the annotation metadata for a list of images.
type AnnotatedFiles []AnnotatedFile

// NumAnnotations returns the total number of annotations in data.
func (data AnnotatedFiles) NumAnnotations() int {
	n := 0
	for _, f := range data {
		n += len(f.Annotations)
	}
	return n
}

// FromCOCOStats counts what happened to the source annotations.
type FromCOCOStats struct {
	Annotations int // Source annotations seen.
	Converted   int // Annotations kept.
	Skipped     int // Annotations dropped as recoverable per-record failures.
}

// sizeResolver resolves the pixel size of an image by id, caching the outcome per id.
type sizeResolver struct {
	fs       afero.Fs
	imageDir string
	images   map[int64]COCOImage
	cache    map[int64]sizeResult
}

type sizeResult struct {
	size ImageSize
	path string
	err  error
}

func newSizeResolver(fs afero.Fs, imageDir string, images []COCOImage) *sizeResolver {
	r := &sizeResolver{
		fs:       fs,
		imageDir: imageDir,
		images:   make(map[int64]COCOImage, len(images)),
		cache:    make(map[int64]sizeResult),
	}
	for _, img := range images {
		r.images[img.ID] = img
	}
	return r
}

// imagePath returns the path of the image file for id: the COCO file_name if known, else the
// zero-padded id with a .jpg extension.
func (r *sizeResolver) imagePath(id int64) string {
	if img, ok := r.images[id]; ok && img.FileName != "" {
		return filepath.Join(r.imageDir, filepath.FromSlash(img.FileName))
	}
	return filepath.Join(r.imageDir, ImageFileName(id))
}

// resolve returns the image size for an annotation. The annotation's embedded size wins, then
// the "images" metadata, then the header of the image file.
func (r *sizeResolver) resolve(a COCOAnnotation) (ImageSize, string, error) {
	path := r.imagePath(a.ImageID)
	if size, ok := a.EmbeddedSize(); ok && size.Valid() {
		return size, path, nil
	}

	if res, ok := r.cache[a.ImageID]; ok {
		return res.size, res.path, res.err
	}

	res := sizeResult{path: path}
	if img, ok := r.images[a.ImageID]; ok && (ImageSize{img.Width, img.Height}).Valid() {
		res.size = ImageSize{Width: img.Width, Height: img.Height}
	} else {
		res.size, res.err = imageSizeFromFile(r.fs, path)
	}
	r.cache[a.ImageID] = res

	return res.size, res.path, res.err
}

// FromCOCO converts the COCO annotations to the intermediate representation, grouped by image in
// the order images are first encountered.
//
// An annotation with an unknown category, a malformed bbox or an image size that cannot be
// resolved is logged and skipped; it never fails the conversion.
func FromCOCO(fs afero.Fs, d *COCODataset, classes *ClassList, imageDir string,
	log logger.Logger) (AnnotatedFiles, FromCOCOStats) {

	resolver := newSizeResolver(fs, imageDir, d.Images)
	stats := FromCOCOStats{Annotations: len(d.Annotations)}

	data := make(AnnotatedFiles, 0)
	fileIdx := make(map[int64]int)

	skip := func(a COCOAnnotation, err error) {
		stats.Skipped++
		log.Warn("Skipping annotation",
			logger.Int64("annotation_id", a.ID),
			logger.Int64("image_id", a.ImageID),
			logger.Error(err))
	}

	for _, a := range d.Annotations {
		classID, ok := classes.Index(a.CategoryID)
		if !ok {
			skip(a, errors.Newf("unknown category id %d", a.CategoryID).
				Category(errors.CategoryRecord).Build())
			continue
		}

		box, err := a.Box()
		if err != nil {
			skip(a, errors.New(err).Category(errors.CategoryRecord).Build())
			continue
		}

		size, path, err := resolver.resolve(a)
		if err != nil {
			skip(a, errors.New(fmt.Errorf("image size unavailable: %w", err)).
				Category(errors.CategoryRecord).
				Context("image", path).
				Build())
			continue
		}

		i, ok := fileIdx[a.ImageID]
		if !ok {
			i = len(data)
			fileIdx[a.ImageID] = i
			data = append(data, AnnotatedFile{FilePath: path, ImageID: a.ImageID, Size: size})
		}
		data[i].Annotations = append(data[i].Annotations, Annotation{
			Box:       box,
			ClassID:   classID,
			Label:     classes.Name(classID),
			ImageSize: size,
		})
		stats.Converted++
	}

	return data, stats
}
