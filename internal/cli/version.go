package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/watchllm/watchllm-go"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the SDK version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "watchllm %s\n", watchllm.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
