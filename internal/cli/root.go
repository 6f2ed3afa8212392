package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the quizlive command tree.
func NewRootCmd() *cobra.Command {
	var configPath string
	var verbose bool

	root := &cobra.Command{
		Use:          "quizlive",
		Short:        "Live quiz session client and simulator",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "quizlive.yaml", "path to config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newHostCmd(&configPath))
	root.AddCommand(newPlayCmd(&configPath))
	root.AddCommand(newSimCmd(&configPath))
	return root
}
