// Package commands implements the advisor command line.
package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"grant_proposal_advisor/config"
)

var (
	configPath string
	verbose    bool
	quiet      bool
)

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "advisor",
		Short: "Interactive feedback on grant proposal answers",
		Long: `advisor reviews grant proposal answers paragraph by paragraph.

Each answer is checked against its guided question and the project outline.
The model quotes the part of the text it is questioning, remembers the advice
it gave, and focuses on the changes when an answer is revised.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose && quiet {
				return errors.New("--verbose and --quiet are mutually exclusive")
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "path to config.json")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logs")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")

	cmd.AddCommand(
		NewServeCmd(),
		NewMCPCmd(),
		NewReviewCmd(),
		NewVersionCmd(),
	)
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
