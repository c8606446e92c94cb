package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/facemark/internal/face"
	"github.com/saturnino-fabrica-de-software/facemark/internal/model"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the downloaded assets so the next start fetches them again",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetYes && !confirm(bufio.NewReader(os.Stdin), "Delete the landmark model?") {
			fmt.Println("aborted")
			return nil
		}

		p := model.NewProvisioner(face.Assets(cfg), nil, face.NewLoader(cfg), logger)
		if err := p.Reset(); err != nil {
			return err
		}
		fmt.Println("assets removed")
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

func confirm(r *bufio.Reader, prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	res, _ := r.ReadString('\n')
	res = strings.TrimSpace(strings.ToLower(res))
	return res == "y" || res == "yes"
}
