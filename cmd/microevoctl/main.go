package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"microevo/internal/storage"
	"microevo/pkg/microevo"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "microevoctl",
		Short: "Train fixed-topology networks by truncation selection",
		Long: `microevoctl runs the evolutionary trainer against a headless seek arena
and inspects the fitness history of stored runs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "Configuration file (.yaml, .yml or .ini)")
	rootCmd.PersistentFlags().String("store", "", "History store backend: memory|sqlite (default from config, else "+storage.DefaultStoreKind()+")")
	rootCmd.PersistentFlags().String("db-path", "", "SQLite database path (default from config, else microevo.db)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug|info|warn|error (default from config, else info)")
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newRunsCmd(),
		newHistoryCmd(),
		newExportCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]string{
					"version": version,
					"commit":  commit,
					"date":    date,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "microevoctl version %s (commit: %s, built: %s)\n", version, commit, date)
			return nil
		},
	}
}

// openClient builds a client from --config and the MICROEVO_* environment.
// Backend flags override both when set. Logs go to stderr.
func openClient(cmd *cobra.Command) (*microevo.Client, error) {
	opts := microevo.Options{LogOutput: cmd.ErrOrStderr()}
	opts.ConfigPath, _ = cmd.Flags().GetString("config")
	if cmd.Flags().Changed("store") {
		opts.StoreKind, _ = cmd.Flags().GetString("store")
	}
	if cmd.Flags().Changed("db-path") {
		opts.DBPath, _ = cmd.Flags().GetString("db-path")
	}
	if cmd.Flags().Changed("log-level") {
		opts.LogLevel, _ = cmd.Flags().GetString("log-level")
		if opts.LogLevel == "" {
			return nil, fmt.Errorf("--log-level must not be empty")
		}
	}
	return microevo.New(opts)
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
