package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/GlacierEQ/drogon-autobuild/internal/execx"
	"github.com/GlacierEQ/drogon-autobuild/internal/platform"
	"github.com/GlacierEQ/drogon-autobuild/internal/verify"
)

// verifyCmd checks the host without mutating it: required tools at usable
// versions, required shared libraries on the search paths.
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that build tools and libraries are present, without installing anything",
	Run: func(cmd *cobra.Command, args []string) {
		desc, err := platform.Detect()
		if err != nil {
			exitOn(err)
		}
		if !verify.Run(desc, &execx.System{}) {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
