package yolokit

import (
	"encoding/binary"
	"testing"

	"github.com/golang/protobuf/proto"
	"github.com/ryszard/tfutils/proto/tensorflow/core/example" // package tensorflow
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensorable/yolokit/internal/logger"
)

// readTFRecords splits a TFRecord file into its examples. Checksums are not verified.
func readTFRecords(t *testing.T, fs afero.Fs, path string) []*tensorflow.Example {
	t.Helper()

	b, err := afero.ReadFile(fs, path)
	require.NoError(t, err)

	var examples []*tensorflow.Example
	for len(b) > 0 {
		require.GreaterOrEqual(t, len(b), 12)
		n := int(binary.LittleEndian.Uint64(b[:8]))
		b = b[12:]
		require.GreaterOrEqual(t, len(b), n+4)

		e := &tensorflow.Example{}
		require.NoError(t, proto.Unmarshal(b[:n], e))
		examples = append(examples, e)
		b = b[n+4:]
	}
	return examples
}

func tfTestData(t *testing.T, fs afero.Fs) (AnnotatedFiles, *ClassList) {
	t.Helper()

	writeTestImage(t, fs, "/images/000000000001.jpg", 100, 200)
	writeTestImage(t, fs, "/images/000000000003.png", 50, 50)
	size := ImageSize{Width: 100, Height: 200}

	classes := NewClassList([]COCOCategory{{ID: 3, Name: "dog"}, {ID: 1, Name: "cat"}},
		logger.NewDiscard())
	data := AnnotatedFiles{
		{
			FilePath: "/images/000000000001.jpg",
			ImageID:  1,
			Size:     size,
			Annotations: []Annotation{
				{Box: CornerBox{10, 20, 30, 40}, ClassID: 1, Label: "cat", ImageSize: size},
				{Box: CornerBox{50, 100, 80, 100}, ClassID: 0, Label: "dog", ImageSize: size},
			},
		},
		{
			FilePath:    "/images/000000000002.jpg",
			ImageID:     2,
			Size:        size,
			Annotations: []Annotation{{Box: CornerBox{0, 0, 1, 1}, ClassID: 0, Label: "dog", ImageSize: size}},
		},
		{
			FilePath:    "/images/000000000003.png",
			ImageID:     3,
			Size:        ImageSize{Width: 50, Height: 50},
			Annotations: []Annotation{{Box: CornerBox{0, 0, 25, 25}, ClassID: 0, Label: "dog", ImageSize: ImageSize{Width: 50, Height: 50}}},
		},
	}
	return data, classes
}

func TestWriteTFRecord(t *testing.T) {
	fs := afero.NewMemMapFs()
	data, classes := tfTestData(t, fs)

	n, err := WriteTFRecord(fs, "/out/train.record", data, classes, 1, logger.NewDiscard())
	require.NoError(t, err)
	assert.Equal(t, 2, n, "the example without an image file is skipped")

	examples := readTFRecords(t, fs, "/out/train.record")
	require.Len(t, examples, 2)

	f := examples[0].GetFeatures().GetFeature()
	assert.Equal(t, []int64{200}, f["image/height"].GetInt64List().Value)
	assert.Equal(t, []int64{100}, f["image/width"].GetInt64List().Value)
	assert.Equal(t, [][]byte{[]byte("000000000001.jpg")}, f["image/filename"].GetBytesList().Value)
	assert.Equal(t, [][]byte{[]byte("1")}, f["image/source_id"].GetBytesList().Value)
	assert.Equal(t, [][]byte{[]byte("jpeg")}, f["image/format"].GetBytesList().Value)
	assert.Equal(t, []int64{2, 1}, f["image/object/class/label"].GetInt64List().Value)
	assert.Equal(t, [][]byte{[]byte("cat"), []byte("dog")},
		f["image/object/class/text"].GetBytesList().Value)

	// The second box reaches past the right edge and is clipped.
	assert.InDeltaSlice(t, []float32{0.1, 0.5}, f["image/object/bbox/xmin"].GetFloatList().Value, 1e-6)
	assert.InDeltaSlice(t, []float32{0.1, 0.5}, f["image/object/bbox/ymin"].GetFloatList().Value, 1e-6)
	assert.InDeltaSlice(t, []float32{0.4, 1}, f["image/object/bbox/xmax"].GetFloatList().Value, 1e-6)
	assert.InDeltaSlice(t, []float32{0.3, 1}, f["image/object/bbox/ymax"].GetFloatList().Value, 1e-6)

	encoded := f["image/encoded"].GetBytesList().Value
	require.Len(t, encoded, 1)
	img, err := afero.ReadFile(fs, "/images/000000000001.jpg")
	require.NoError(t, err)
	assert.Equal(t, img, encoded[0])

	f = examples[1].GetFeatures().GetFeature()
	assert.Equal(t, [][]byte{[]byte("png")}, f["image/format"].GetBytesList().Value)

	assert.Equal(t, "item {\n  id: 1\n  name: \"dog\"\n}\nitem {\n  id: 2\n  name: \"cat\"\n}\n",
		readString(t, fs, "/out/label_map.pbtxt"))
}

func TestWriteTFRecordShards(t *testing.T) {
	fs := afero.NewMemMapFs()
	data, classes := tfTestData(t, fs)

	n, err := WriteTFRecord(fs, "/out/train.record", data, classes, 2, logger.NewDiscard())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Len(t, readTFRecords(t, fs, "/out/train.record-00000-of-00002"), 1)
	assert.Len(t, readTFRecords(t, fs, "/out/train.record-00001-of-00002"), 1)

	ok, err := afero.Exists(fs, "/out/train.record")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestShardPath(t *testing.T) {
	assert.Equal(t, "a.record", shardPath("a.record", 0, 1))
	assert.Equal(t, "a.record-00003-of-00010", shardPath("a.record", 3, 10))
}
