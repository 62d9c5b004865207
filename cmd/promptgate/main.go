// Package main implements the promptgate CLI.
//
// promptgate compresses prompts to a length budget, verifies that compression
// kept the facts a prompt must carry, and runs quality-gated regeneration
// against an LLM.
//
// Usage:
//
//	# Compress a prompt and report fact retention
//	promptgate optimize --facts facts.yaml prompt.txt
//
//	# Generate content for a subject with the configured gates
//	promptgate generate --template description --vars vars.yaml --persona technical --subject "laser rust removal"
//
//	# Serve the optimize/verify API
//	promptgate serve
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var (
	// configPath is the YAML configuration file. Empty uses the default path.
	configPath string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "promptgate",
	Short: "Prompt compression, fact retention checks and quality-gated generation",
	Long: `promptgate keeps generation prompts inside an API length budget without
silently dropping the facts they must convey, and regenerates content until it
clears a configured quality bar.

Configuration is read from ~/.config/promptgate/config.yaml (or --config) with
PROMPTGATE_-prefixed environment overrides.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/promptgate/config.yaml)")
	rootCmd.AddCommand(optimizeCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// versionCmd prints build information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("promptgate %s\n", version)
		cmd.Printf("  commit: %s\n", gitCommit)
		cmd.Printf("  built:  %s\n", buildDate)
	},
}
