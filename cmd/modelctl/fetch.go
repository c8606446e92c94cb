package main

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/facemark/internal/face"
	"github.com/saturnino-fabrica-de-software/facemark/internal/model"
)

var fetchQuiet bool

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download missing assets and verify that the model loads",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := []model.FetcherOption{}
		if !fetchQuiet {
			opts = append(opts, model.WithProgress(progressBar))
		}
		fetcher := model.NewFetcher(model.FetcherConfig{
			Timeout:    cfg.ModelDownloadTimeout,
			RetryCount: cfg.ModelRetryCount,
		}, opts...)

		p := model.NewProvisioner(face.Assets(cfg), fetcher, face.NewLoader(cfg), logger)
		if err := p.Ensure(cmd.Context()); err != nil {
			return err
		}

		fmt.Printf("model ready: %s\n", p.Status().Path)
		return nil
	},
}

func progressBar(total int64) io.Writer {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription("Downloading"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
}

func init() {
	fetchCmd.Flags().BoolVarP(&fetchQuiet, "quiet", "q", false, "Hide the download progress bar")
	rootCmd.AddCommand(fetchCmd)
}
