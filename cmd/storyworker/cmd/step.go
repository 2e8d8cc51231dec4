package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/contentloom/storyforge/internal/dispatcher"
	"github.com/contentloom/storyforge/internal/platform/apperr"
)

var stepStage string

// NewStepCmd builds the one-shot "step" subcommand: a single
// Dispatcher.Step call against one stage, useful for cron-driven or
// manually triggered invocations instead of the long-running daemon.
// Exit code is 0 for StepAdvanced or StepNoWork, and also for an
// AlreadyDone error, which is reported as no work; any other error exits
// non-zero.
func NewStepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "step",
		Short: "Run a single dispatcher step against one stage and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStep(cmd)
		},
	}

	cmd.Flags().StringVar(&stepStage, "stage", "", "stage name to dispatch (required)")
	_ = cmd.MarkFlagRequired("stage")

	return cmd
}

func runStep(cmd *cobra.Command) error {
	w, err := wire()
	if err != nil {
		return err
	}
	defer w.log.Sync()

	res, err := w.dispatcher.Step(cmd.Context(), stepStage)
	if err != nil {
		if apperr.Is(err, apperr.KindAlreadyDone) {
			fmt.Println("no work")
			return nil
		}
		return fmt.Errorf("step failed: %w", err)
	}

	switch res.Kind {
	case dispatcher.StepAdvanced:
		fmt.Printf("advanced story=%d from=%s to=%s\n", res.StoryID, res.From, res.To)
	case dispatcher.StepNoWork:
		fmt.Println("no work")
	}
	return nil
}
