package yolokit

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensorable/yolokit/internal/logger"
)

func ptr(v float64) *float64 {
	return &v
}

func TestFromCOCO(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTestImage(t, fs, "/images/000000000001.jpg", 100, 200)

	d := &COCODataset{
		Images: []COCOImage{{ID: 2, FileName: "000000000002.jpg", Width: 640, Height: 480}},
		Annotations: []COCOAnnotation{
			{ID: 1, ImageID: 1, CategoryID: 1, BBox: []float64{10, 20, 30, 40}},
			{ID: 2, ImageID: 2, CategoryID: 3, BBox: []float64{0, 0, 64, 48}},
			{ID: 3, ImageID: 3, CategoryID: 1, BBox: []float64{50, 25, 100, 50},
				Width: ptr(200), Height: ptr(100)},
			{ID: 4, ImageID: 1, CategoryID: 3, BBox: []float64{0, 0, 100, 200}},
			{ID: 5, ImageID: 4, CategoryID: 1, BBox: []float64{1, 1, 1, 1}},
			{ID: 6, ImageID: 1, CategoryID: 99, BBox: []float64{1, 1, 1, 1}},
			{ID: 7, ImageID: 1, CategoryID: 1, BBox: []float64{1, 1, 1}},
		},
		Categories: []COCOCategory{{ID: 3, Name: "dog"}, {ID: 1, Name: "cat"}},
	}

	buf := &bytes.Buffer{}
	log := logger.NewSlogLogger(buf, logger.LogLevelDebug)
	classes := NewClassList(d.Categories, log)

	data, stats := FromCOCO(fs, d, classes, "/images", log)
	assert.Equal(t, FromCOCOStats{Annotations: 7, Converted: 4, Skipped: 3}, stats)
	assert.Equal(t, 4, data.NumAnnotations())

	require.Len(t, data, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{data[0].ImageID, data[1].ImageID, data[2].ImageID})

	first := data[0]
	assert.Equal(t, "/images/000000000001.jpg", first.FilePath)
	assert.Equal(t, ImageSize{Width: 100, Height: 200}, first.Size)
	require.Len(t, first.Annotations, 2)
	assert.Equal(t, Annotation{
		Box:       CornerBox{10, 20, 30, 40},
		ClassID:   1,
		Label:     "cat",
		ImageSize: ImageSize{Width: 100, Height: 200},
	}, first.Annotations[0])
	assert.Equal(t, "dog", first.Annotations[1].Label)

	assert.Equal(t, ImageSize{Width: 640, Height: 480}, data[1].Size)
	assert.Equal(t, ImageSize{Width: 200, Height: 100}, data[2].Size)
	assert.Equal(t, "/images/000000000003.jpg", data[2].FilePath)

	assert.Equal(t, 3, bytes.Count(buf.Bytes(), []byte("Skipping annotation")))
}

func TestFromCOCOEmbeddedSizeWins(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTestImage(t, fs, "/images/000000000001.jpg", 100, 200)

	d := &COCODataset{
		Images: []COCOImage{{ID: 1, Width: 300, Height: 300}},
		Annotations: []COCOAnnotation{
			{ID: 1, ImageID: 1, CategoryID: 1, BBox: []float64{0, 0, 10, 10},
				Width: ptr(50), Height: ptr(25)},
			{ID: 2, ImageID: 1, CategoryID: 1, BBox: []float64{0, 0, 10, 10}},
		},
		Categories: []COCOCategory{{ID: 1, Name: "cat"}},
	}
	classes := NewClassList(d.Categories, logger.NewDiscard())

	data, stats := FromCOCO(fs, d, classes, "/images", logger.NewDiscard())
	assert.Equal(t, 2, stats.Converted)
	require.Len(t, data, 1)
	require.Len(t, data[0].Annotations, 2)
	assert.Equal(t, ImageSize{Width: 50, Height: 25}, data[0].Annotations[0].ImageSize)
	assert.Equal(t, ImageSize{Width: 300, Height: 300}, data[0].Annotations[1].ImageSize)
}

func TestFromCOCOInvalidEmbeddedSizeFallsBack(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeTestImage(t, fs, "/images/000000000001.jpg", 100, 200)

	d := &COCODataset{
		Annotations: []COCOAnnotation{
			{ID: 1, ImageID: 1, CategoryID: 1, BBox: []float64{0, 0, 10, 10},
				Width: ptr(0), Height: ptr(0)},
		},
		Categories: []COCOCategory{{ID: 1, Name: "cat"}},
	}
	classes := NewClassList(d.Categories, logger.NewDiscard())

	data, _ := FromCOCO(fs, d, classes, "/images", logger.NewDiscard())
	require.Len(t, data, 1)
	assert.Equal(t, ImageSize{Width: 100, Height: 200}, data[0].Annotations[0].ImageSize)
}
