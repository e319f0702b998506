package yolokit

// TFRecord object detection export.

import (
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"

	"github.com/golang/protobuf/proto"
	"github.com/ryszard/tfutils/go/example"
	"github.com/ryszard/tfutils/go/tfrecord"
	"github.com/ryszard/tfutils/proto/tensorflow/core/example" // package tensorflow
	"github.com/spf13/afero"

	"github.com/sensorable/yolokit/internal/logger"
)

// LabelMapFile is written next to the record file and maps class labels to names.
const LabelMapFile = "label_map.pbtxt"

// TFFeatureMap maps feature names to their values. Values must be convertible to
// tensorflow.Feature.
type TFFeatureMap map[string]interface{}

// tfLabel returns the TFRecord class label of a class index. Label 0 is reserved for background.
func tfLabel(classID int) int64 {
	return int64(classID) + 1
}

// toTFFeatures converts the intermediate representation of a single image to its feature map.
func toTFFeatures(fs afero.Fs, fileData AnnotatedFile) (TFFeatureMap, error) {
	img, format, err := decodeImageConfig(fs, fileData.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to decode the image metadata: %w", err)
	}

	imgData, err := afero.ReadFile(fs, fileData.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read the image: %w", err)
	}

	f := make(TFFeatureMap, 16)
	f["image/height"] = img.Height
	f["image/width"] = img.Width
	f["image/filename"] = filepath.Base(fileData.FilePath)
	f["image/source_id"] = strconv.FormatInt(fileData.ImageID, 10)
	f["image/encoded"] = imgData
	f["image/format"] = format

	n := len(fileData.Annotations)
	xmins := make([]float32, 0, n)
	ymins := make([]float32, 0, n)
	xmaxs := make([]float32, 0, n)
	ymaxs := make([]float32, 0, n)
	classes := make([]string, 0, n)
	classIDs := make([]int64, 0, n)
	for _, a := range fileData.Annotations {
		box, err := a.Normalized()
		if err != nil {
			continue
		}
		// The object detection API rejects boxes outside the image.
		x1, y1, x2, y2 := box.Clamp().Edges()
		xmins = append(xmins, float32(x1))
		ymins = append(ymins, float32(y1))
		xmaxs = append(xmaxs, float32(x2))
		ymaxs = append(ymaxs, float32(y2))
		classes = append(classes, a.Label)
		classIDs = append(classIDs, tfLabel(a.ClassID))
	}
	f["image/object/bbox/xmin"] = xmins
	f["image/object/bbox/ymin"] = ymins
	f["image/object/bbox/xmax"] = xmaxs
	f["image/object/bbox/ymax"] = ymaxs
	f["image/object/class/text"] = classes
	f["image/object/class/label"] = classIDs

	return f, nil
}

// shardPath returns the path of shard idx. A single shard is written to recordPath itself.
func shardPath(recordPath string, idx, numShards int) string {
	if numShards <= 1 {
		return recordPath
	}
	return recordPath + fmt.Sprintf("-%05d-of-%05d", idx, numShards)
}

// WriteTFRecord does a streaming conversion, serialisation and file write of data to one or more
// TFRecord files at recordPath (with suffixes added when numShards>1). Images that cannot be read
// are logged and skipped. A label map for classes is written to label_map.pbtxt in the directory
// of recordPath.
//
// Returns the number of examples written.
func WriteTFRecord(fs afero.Fs, recordPath string, data AnnotatedFiles, classes *ClassList,
	numShards int, log logger.Logger) (written int, err error) {

	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("conversion to TensorFlow Example failed: %v", e)
		}
	}()

	log = log.Module("tfrecord")
	if numShards <= 0 {
		numShards = 1
	}

	if dir := filepath.Dir(recordPath); !dirExists(fs, dir) {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("cannot create directory %q: %w", dir, err)
		}
	}

	var shardFile afero.File
	defer func() {
		if shardFile != nil {
			closeWithErrCheck(shardFile, &err)
		}
	}()

	shardSize := int(math.Ceil(float64(len(data)) / float64(numShards)))
	shardIdx := -1

	for i, fileData := range data {
		if i%shardSize == 0 {
			shardIdx++
			if shardFile != nil {
				if err := shardFile.Close(); err != nil {
					return written, err
				}
				shardFile = nil
			}

			path := shardPath(recordPath, shardIdx, numShards)
			f, err := fs.Create(path)
			if err != nil {
				return written, fmt.Errorf("failed to create shard at %q: %w", path, err)
			}
			shardFile = f
			log.Debug("Writing shard", logger.String("path", path))
		}

		features, err := toTFFeatures(fs, fileData)
		if err != nil {
			log.Warn("Skipping image", logger.String("path", fileData.FilePath), logger.Error(err))
			continue
		}

		if err := writeTFRecordExample(shardFile, example.New(features)); err != nil {
			return written, fmt.Errorf("failed to write example: %w", err)
		}
		written++
	}

	labelMapPath := filepath.Join(filepath.Dir(recordPath), LabelMapFile)
	if err := saveTFRecordLabelMap(fs, labelMapPath, classes); err != nil {
		return written, err
	}
	log.Info("TFRecord written",
		logger.String("path", recordPath),
		logger.Int("examples", written),
		logger.Int("shards", shardIdx+1))

	return written, nil
}

// writeTFRecordExample serialises the example and writes it as a TFRecord to w.
func writeTFRecordExample(w io.Writer, e *tensorflow.Example) error {
	enc, err := proto.Marshal(e)
	if err != nil {
		return err
	}

	return tfrecord.Write(w, enc)
}

// saveTFRecordLabelMap writes the class list to path as a StringIntLabelMap in prototxt format.
func saveTFRecordLabelMap(fs afero.Fs, path string, classes *ClassList) error {
	err := writeFile(fs, path, func(w io.Writer) error {
		for i, name := range classes.Manifest().Names {
			if _, err := fmt.Fprintf(w, "item {\n  id: %d\n  name: %s\n}\n",
				tfLabel(i), strconv.Quote(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write the label map %q: %w", path, err)
	}
	return nil
}
