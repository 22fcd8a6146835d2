package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"microevo/pkg/microevo"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Train a population in the headless seek arena",
		Long: `Train a population in the headless seek arena.

Settings are read from --config (YAML or INI) when given, then overridden by
any flag that is set. The run and its per-generation fitness are stored in the
selected history store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			req := microevo.RunRequest{}
			req.Layers, _ = cmd.Flags().GetIntSlice("layers")
			req.Population, _ = cmd.Flags().GetInt("population")
			req.TrainTime, _ = cmd.Flags().GetDuration("train-time")
			req.EarlyMutationGenerations, _ = cmd.Flags().GetInt("early-mutation-generations")
			req.Generations, _ = cmd.Flags().GetInt("generations")
			req.Tick, _ = cmd.Flags().GetDuration("tick")
			if cmd.Flags().Changed("seed") {
				seed, _ := cmd.Flags().GetInt64("seed")
				req.Seed = &seed
			}
			req.Workers, _ = cmd.Flags().GetInt("workers")

			out := cmd.OutOrStdout()
			if !jsonOut {
				req.OnGeneration = func(s microevo.GenerationStats) {
					fmt.Fprintf(out, "generation %d: best=%.4f mean=%.4f min=%.4f\n", s.Generation, s.Best, s.Mean, s.Min)
				}
			}

			client, err := openClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			summary, err := client.Run(cmd.Context(), req)
			if err != nil {
				if summary.RunID == "" {
					return err
				}
				return fmt.Errorf("run %s: %w", summary.RunID, err)
			}
			if jsonOut {
				return writeJSON(out, summary)
			}
			fmt.Fprintf(out, "run %s finished: generations=%d ticks=%d best=%.4f\n",
				summary.RunID, len(summary.Generations), summary.Ticks, summary.FinalBestFitness)
			return nil
		},
	}

	cmd.Flags().IntSlice("layers", nil, "Network topology, e.g. 1,10,10,1")
	cmd.Flags().Int("population", 0, "Population size, rounded up to even")
	cmd.Flags().Duration("train-time", 0, "Length of one training window")
	cmd.Flags().Int("early-mutation-generations", 0, "Mutate the kept half below this generation; negative disables")
	cmd.Flags().Int("generations", 0, "Number of training windows to run")
	cmd.Flags().Duration("tick", 0, "Fixed simulation step")
	cmd.Flags().Int64("seed", 0, "Random seed (default from config, else 1)")
	cmd.Flags().Int("workers", 0, "Goroutines evaluating agents per tick")
	return cmd
}
