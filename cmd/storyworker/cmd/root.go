// Package cmd holds the storyworker CLI's cobra command tree, grounded on
// the teacher's command-construction style where each subcommand is its
// own file exposing a NewXxxCmd constructor wired together in root.go.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/contentloom/storyforge/internal/config"
)

var cfgFile string

// NewRootCmd builds the storyworker command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "storyworker",
		Short:         "Runs the content-production stage dispatcher",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to an optional config file (env vars and defaults apply regardless)")

	root.AddCommand(NewDaemonCmd())
	root.AddCommand(NewStepCmd())

	return root
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// Execute runs the root command and exits the process with a code
// reflecting the contract in the external-interfaces documentation: 0 on
// clean completion, non-zero on any fatal error.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
