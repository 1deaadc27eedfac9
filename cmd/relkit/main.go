package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/relkit/relkit/internal/debug"
	"github.com/relkit/relkit/internal/telemetry"
	"github.com/relkit/relkit/internal/ui"
)

var (
	jsonOutput  bool
	verboseFlag bool
	quietFlag   bool
	packageName string

	// Signal-aware context for graceful cancellation
	rootCtx    context.Context
	rootCancel context.CancelFunc
)

var rootCmd = &cobra.Command{
	Use:   "relkit",
	Short: "relkit - Guarded release workflow for Python projects",
	Long: `Release a uv-managed Python project in small, checked steps.

Risky steps (bumping, tagging, publishing) stop and hand back a short-lived
token. Rerun the suggested command with the token set to proceed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("relkit version %s (%s)\n", Version, Build)
			return
		}
		_ = cmd.Help()
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		rootCtx, rootCancel = ctx, cancel

		debug.SetVerbose(verboseFlag)
		debug.SetQuiet(quietFlag)
		ui.ApplyColorProfile()

		if err := telemetry.Init(rootCtx, "relkit", Version); err != nil {
			WarnError("telemetry disabled: %v", err)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		telemetry.Shutdown(shutdownCtx)

		if rootCancel != nil {
			rootCancel()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output (errors only)")
	rootCmd.PersistentFlags().StringVarP(&packageName, "package", "p", "", "Workspace member to operate on")

	rootCmd.Flags().BoolP("version", "V", false, "Print version information")

	rootCmd.AddGroup(&cobra.Group{ID: "release", Title: "Releasing:"})
	rootCmd.AddGroup(&cobra.Group{ID: "inspect", Title: "Checks & Status:"})
	rootCmd.AddGroup(&cobra.Group{ID: "setup", Title: "Setup & Configuration:"})
}

// getRootContext returns the signal-aware context, or Background before
// PersistentPreRun has run.
func getRootContext() context.Context {
	if rootCtx == nil {
		return context.Background()
	}
	return rootCtx
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
