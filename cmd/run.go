package main

import (
	"github.com/cwbudde/gdprocgen/internal/config"
	"github.com/cwbudde/gdprocgen/internal/problem"
	"github.com/spf13/cobra"
)

var (
	problemName    string
	strategyName   string
	iters          int
	stepSize       float64
	seed           int64
	maximize       bool
	startPoint     []float64
	earlyStop      bool
	patience       int
	abortNonFinite bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run single-shot optimization",
	Long: `Runs gradient descent on a built-in problem and writes the trajectory
(trace.jsonl and trajectory.csv) and a run record under the data directory.
Flags set on the command line override values from --config.`,
	Args: cobra.NoArgs,
	RunE: runOptimization,
}

func init() {
	runCmd.Flags().StringVar(&problemName, "problem", problem.BowlName, "Problem to optimize: bowl, point, layout")
	runCmd.Flags().StringVar(&strategyName, "strategy", "batch", "Gradient strategy: batch, sequential-stochastic, random-stochastic")
	runCmd.Flags().IntVar(&iters, "iters", 500, "Number of iterations")
	runCmd.Flags().Float64Var(&stepSize, "step", 0.1, "Step size")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (unset = time-based)")
	runCmd.Flags().BoolVar(&maximize, "maximize", false, "Climb the cost instead of descending it")
	runCmd.Flags().Float64SliceVar(&startPoint, "x0", nil, "Starting point, comma separated (default: the problem's)")
	runCmd.Flags().BoolVar(&earlyStop, "early-stop", false, "Stop when the cost stops improving")
	runCmd.Flags().IntVar(&patience, "patience", 20, "Iterations without improvement before stopping (with --early-stop)")
	runCmd.Flags().BoolVar(&abortNonFinite, "abort-non-finite", false, "Fail when the gradient or point becomes NaN or Inf")

	rootCmd.AddCommand(runCmd)
}

// applyRunFlags overrides file values with the run flags set explicitly
func applyRunFlags(cmd *cobra.Command, cfg *config.File) {
	if flagChanged(cmd, "problem") {
		cfg.Problem = problemName
	}
	if flagChanged(cmd, "strategy") {
		cfg.Strategy = strategyName
	}
	if flagChanged(cmd, "iters") {
		cfg.MaxIters = iters
	}
	if flagChanged(cmd, "step") {
		cfg.StepSize = stepSize
	}
	if flagChanged(cmd, "seed") {
		s := seed
		cfg.Seed = &s
	}
	if flagChanged(cmd, "maximize") {
		cfg.Maximize = maximize
	}
	if flagChanged(cmd, "x0") {
		cfg.X0 = append([]float64(nil), startPoint...)
	}
	if flagChanged(cmd, "early-stop") {
		cfg.Convergence.Enabled = earlyStop
	}
	if flagChanged(cmd, "patience") {
		cfg.Convergence.Patience = patience
	}
	if flagChanged(cmd, "abort-non-finite") {
		cfg.AbortOnNonFinite = abortNonFinite
	}
}

func runOptimization(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyRunFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	runStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer runStore.Close()

	runCfg := cfg.RunConfig()
	prob, err := problem.Lookup(runCfg.Problem, runCfg.ProblemSeed())
	if err != nil {
		return err
	}
	x0, err := problem.StartingPoint(prob, runCfg.X0)
	if err != nil {
		return err
	}

	out, err := executeRun(runCfg, x0, cfg.DataDir, runStore, nil)
	if err != nil {
		return err
	}

	printOutcome(cmd.OutOrStdout(), out)
	return nil
}
