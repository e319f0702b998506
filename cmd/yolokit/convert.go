package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sensorable/yolokit"
)

func (a *app) convertCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <images-dir> <annotations.json> <output-dir>",
		Short: "Convert COCO annotations to YOLO label files",
		Long: `Convert a COCO annotation document to one YOLO label file per image.

Label files are written to <output-dir>/labels and named after the zero-padded image id. The
class list is written to <output-dir>/classes.yaml.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.settings.Convert
			c := yolokit.NewConverter(a.fs, a.log, yolokit.ConvertOptions{
				ImageDir:        args[0],
				AnnotationsPath: args[1],
				OutputDir:       args[2],
				Clamp:           s.Clamp,
				CopyImages:      s.CopyImages,
				TFRecord:        s.TFRecord,
				NumShards:       s.NumShards,
			})

			stats, err := c.Run()
			if err != nil {
				return a.fail(cmd, err)
			}
			printConvertStats(cmd, stats)
			return nil
		},
	}

	cmd.Flags().Bool("clamp", false, "Clip normalized boxes to the image")
	cmd.Flags().Bool("copy-images", false, "Copy the .jpg images into <output-dir>/images")
	cmd.Flags().String("tfrecord", "", "Also export the dataset as TFRecord to this path")
	cmd.Flags().Int("num-shards", 1, "Number of TFRecord shard files")
	a.bindFlag(cmd.Flags().Lookup("clamp"), "convert.clamp")
	a.bindFlag(cmd.Flags().Lookup("copy-images"), "convert.copy_images")
	a.bindFlag(cmd.Flags().Lookup("tfrecord"), "convert.tfrecord")
	a.bindFlag(cmd.Flags().Lookup("num-shards"), "convert.num_shards")

	return cmd
}

func printConvertStats(cmd *cobra.Command, stats yolokit.ConvertStats) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Classes:       %d\n", stats.Classes)
	fmt.Fprintf(out, "Annotations:   %d\n", stats.Annotations)
	fmt.Fprintf(out, "Converted:     %d\n", stats.Converted)
	fmt.Fprintf(out, "Skipped:       %d\n", stats.Skipped)
	fmt.Fprintf(out, "Label files:   %d\n", stats.LabelFiles)
	if stats.ImagesCopied > 0 {
		fmt.Fprintf(out, "Images copied: %d\n", stats.ImagesCopied)
	}
	if stats.Records > 0 {
		fmt.Fprintf(out, "TFRecords:     %d\n", stats.Records)
	}
}
