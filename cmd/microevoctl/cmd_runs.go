package main

import (
	"fmt"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"microevo/pkg/microevo"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")

			client, err := openClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			runs, err := client.Runs(cmd.Context(), microevo.RunsRequest{Limit: limit})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs stored.")
				return nil
			}

			table := uitable.New()
			table.MaxColWidth = 40
			table.AddRow("RUN", "CREATED", "LAYERS", "POPULATION", "WINDOW", "GENERATIONS", "BEST")
			for _, run := range runs {
				table.AddRow(run.RunID, run.CreatedAtUTC, fmt.Sprint(run.Layers), run.Population, run.TrainTime,
					run.Generations, fmt.Sprintf("%.4f", run.FinalBestFitness))
			}
			fmt.Fprintln(out, table)
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum number of runs to list")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show per-generation fitness of a run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			latest, _ := cmd.Flags().GetBool("latest")
			limit, _ := cmd.Flags().GetInt("limit")
			req := microevo.HistoryRequest{Latest: latest, Limit: limit}
			if len(args) == 1 {
				req.RunID = args[0]
			}

			client, err := openClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			history, err := client.History(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if jsonOut {
				return writeJSON(out, history)
			}

			table := uitable.New()
			table.AddRow("GENERATION", "POPULATION", "BEST", "MEAN", "MIN", "STD")
			for _, g := range history {
				table.AddRow(g.Generation, g.PopulationSize,
					fmt.Sprintf("%.4f", g.Best), fmt.Sprintf("%.4f", g.Mean),
					fmt.Sprintf("%.4f", g.Min), fmt.Sprintf("%.4f", g.StdDev))
			}
			fmt.Fprintln(out, table)
			return nil
		},
	}
	cmd.Flags().Bool("latest", false, "Use the most recent run")
	cmd.Flags().Int("limit", 0, "Show only the most recent generations")
	return cmd
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [run-id]",
		Short: "Write a run's history as JSON and CSV files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			latest, _ := cmd.Flags().GetBool("latest")
			outDir, _ := cmd.Flags().GetString("out")
			req := microevo.ExportRequest{Latest: latest, OutDir: outDir}
			if len(args) == 1 {
				req.RunID = args[0]
			}

			client, err := openClient(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			exported, err := client.Export(cmd.Context(), req)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), exported)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported run %s to %s\n", exported.RunID, exported.Directory)
			return nil
		},
	}
	cmd.Flags().Bool("latest", false, "Use the most recent run")
	cmd.Flags().String("out", "exports", "Output directory")
	return cmd
}
