package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/facemark/internal/face"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which assets are present on disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("locator: %s\n", cfg.FaceLocator)
		for _, a := range face.Assets(cfg) {
			info, err := os.Stat(a.Path)
			switch {
			case err == nil:
				fmt.Printf("  %-15s present  %s (%d bytes)\n", a.Name, a.Path, info.Size())
			case os.IsNotExist(err):
				fmt.Printf("  %-15s missing  %s <- %s\n", a.Name, a.Path, a.URL)
			default:
				return fmt.Errorf("stat %s: %w", a.Path, err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
