package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sensorable/yolokit"
	"github.com/sensorable/yolokit/internal/logger"
)

func (a *app) healthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health <dataset-dir>",
		Short: "Report statistics and an annotation heatmap for a YOLO dataset",
		Long: `Scan the splits of a YOLO dataset and report per split the number of images, annotations,
images without a label file, empty label files and annotations per class.

Charts and resultados.yml are written to <dataset-dir>/health.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.settings.Health
			hc := yolokit.NewHealthChecker(a.fs, a.log, yolokit.HealthOptions{
				DatasetDir:     args[0],
				Splits:         s.Splits,
				GridResolution: s.GridResolution,
				RenderSize:     s.ImageSize,
				OutputDir:      s.OutputDir,
			})

			results, err := hc.Run()
			if err != nil {
				return a.fail(cmd, err)
			}
			printResults(cmd, s.Splits, results)
			a.log.Info("Health check finished", logger.String("output", hc.OutputPath()))
			return nil
		},
	}

	cmd.Flags().StringSlice("splits", yolokit.DefaultSplits, "Split directories to scan")
	cmd.Flags().Int("grid-resolution", yolokit.DefaultGridResolution, "Heatmap cells per side")
	cmd.Flags().Int("image-size", yolokit.DefaultRenderSize, "Rendered chart width in pixels")
	a.bindFlag(cmd.Flags().Lookup("splits"), "health.splits")
	a.bindFlag(cmd.Flags().Lookup("grid-resolution"), "health.grid_resolution")
	a.bindFlag(cmd.Flags().Lookup("image-size"), "health.image_size")

	return cmd
}

func printResults(cmd *cobra.Command, splits []string, results yolokit.Results) {
	out := cmd.OutOrStdout()
	for _, split := range splits {
		res := results[split]
		fmt.Fprintf(out, "[%s]\n", split)
		fmt.Fprintf(out, "  Images:                   %d\n", res.TotalImages)
		fmt.Fprintf(out, "  Annotations:              %d\n", res.TotalAnnotations)
		fmt.Fprintf(out, "  Images without label:     %d\n", res.ImagesWithoutAnnotation)
		fmt.Fprintf(out, "  Empty label files:        %d\n", res.EmptyAnnotations)

		ids := make([]int, 0, len(res.ClassCounts))
		for id := range res.ClassCounts {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		for _, id := range ids {
			fmt.Fprintf(out, "  Class %-4d               %d\n", id, res.ClassCounts[id])
		}
	}
}
