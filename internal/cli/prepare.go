package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/born-ml/superres/internal/dataset"
	"github.com/born-ml/superres/internal/fault"
	"github.com/born-ml/superres/internal/logger"
)

func newPrepareCmd(root *options) *cobra.Command {
	var (
		input     string
		output    string
		imageSize int
	)
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Build a dataset container from an image folder",
		Long: `Decode every PNG/JPEG under --input, center-crop it to --image-size and
write the samples, sorted by path, to a .srds container.`,
		Example: `  superres prepare --input DIV2K_train_HR --output done_dataset/PreprocessedData.srds`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := logger.NewWithWriter(cmd.ErrOrStderr(), root.logLevel, root.logFormat)
			ds, err := dataset.LoadFolder(cmd.Context(), input, dataset.FolderOptions{
				CropSize: imageSize,
				Workers:  root.workers,
				Logger:   log,
			})
			if err != nil {
				return fault.At(fault.StageDatasetLoad, input, err)
			}
			meta := map[string]string{
				"source":     input,
				"image_size": fmt.Sprint(imageSize),
			}
			if err := dataset.Save(output, ds, meta); err != nil {
				return err
			}
			log.Info("dataset written", "path", output, "samples", ds.Len())
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "image directory")
	cmd.Flags().StringVarP(&output, "output", "o", "", "container path")
	cmd.Flags().IntVar(&imageSize, "image-size", 96, "center-crop size")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "superres %s\n", Version)
		},
	}
}
