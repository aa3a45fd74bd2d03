package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/cwbudde/gdprocgen/internal/problem"
	"github.com/cwbudde/gdprocgen/internal/store"
	"github.com/spf13/cobra"
)

var (
	resumeIters    int
	resumeStrategy string
	resumeStep     float64
)

var resumeCmd = &cobra.Command{
	Use:   "resume [run-id]",
	Short: "Continue a stored run from its final point",
	Long: `Loads the run record for run-id and continues descent from its final
point as a new run. The problem and direction must stay the same; the
strategy, step size, and iteration budget may change.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().IntVar(&resumeIters, "iters", 0, "Additional iterations (default: the stored budget)")
	resumeCmd.Flags().StringVar(&resumeStrategy, "strategy", "", "Gradient strategy (default: the stored one)")
	resumeCmd.Flags().Float64Var(&resumeStep, "step", 0, "Step size (default: the stored one)")

	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	runID := args[0]

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	runStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer runStore.Close()

	prev, err := runStore.LoadRun(runID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no run record for %s in %s", runID, cfg.DataDir)
	} else if err != nil {
		return err
	}
	if err := prev.Validate(); err != nil {
		return fmt.Errorf("run %s cannot be resumed: %w", runID, err)
	}

	next := prev.Config
	next.X0 = nil
	if flagChanged(cmd, "iters") {
		next.MaxIters = resumeIters
	}
	if flagChanged(cmd, "strategy") {
		next.Strategy = resumeStrategy
	}
	if flagChanged(cmd, "step") {
		next.StepSize = resumeStep
	}
	if err := prev.IsCompatible(next); err != nil {
		return err
	}

	slog.Info("Resuming run", "run_id", runID, "iterations", prev.Iterations, "cost", prev.FinalCost)

	prob, err := problem.Lookup(next.Problem, next.ProblemSeed())
	if err != nil {
		return err
	}
	x0, err := problem.StartingPoint(prob, prev.FinalPoint)
	if err != nil {
		return fmt.Errorf("run %s cannot be resumed: %w", runID, err)
	}

	out, err := executeRun(next, x0, cfg.DataDir, runStore, prev)
	if err != nil {
		return err
	}

	printOutcome(cmd.OutOrStdout(), out)
	fmt.Fprintf(cmd.OutOrStdout(), "  Resumed from: %s (%d iterations in total)\n", prev.RunID, out.Record.Iterations)
	return nil
}
