package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/cwbudde/gdprocgen/internal/opt"
	"github.com/cwbudde/gdprocgen/internal/problem"
	"github.com/spf13/cobra"
)

var strategyDescriptions = map[opt.Strategy]string{
	opt.Batch:                "every coordinate per iteration (2N evaluations)",
	opt.SequentialStochastic: "one coordinate per iteration, in rotation (2 evaluations)",
	opt.RandomStochastic:     "one random coordinate per iteration, seeded by --seed (2 evaluations)",
}

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List gradient strategies and built-in problems",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "STRATEGY\tDESCRIPTION")
		for _, s := range opt.Strategies() {
			fmt.Fprintf(w, "%s\t%s\n", s, strategyDescriptions[s])
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "PROBLEM\tDIMENSIONS")
		for _, name := range problem.Names() {
			prob, err := problem.Lookup(name, 0)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%d\n", name, prob.Dim())
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(strategiesCmd)
}
