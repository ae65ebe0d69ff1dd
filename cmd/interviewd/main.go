// Interviewd runs AI-mediated mock technical interviews over HTTP.
//
// Configuration is loaded from an optional YAML file, a .env file in the
// working directory and INTERVIEWD_* environment variables. See
// internal/config for details.
//
// Usage:
//
//	# Load the question bank, then start the server
//	interviewd seed --file bank.toml
//	interviewd serve --config config.yaml
//
//	# Index topic notes for retrieval
//	interviewd index --module DSA --file notes/dsa.md
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// configPath is the YAML config file shared by every command.
var configPath string

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "interviewd",
		Short: "AI-mediated mock technical interviews",
		Long: `interviewd conducts mock technical interviews: it asks a seed question,
presses the candidate with generated follow-ups, takes a coding submission
and produces structured feedback.`,
		Version:      version,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")

	root.AddCommand(
		newServeCmd(),
		newSeedCmd(),
		newIndexCmd(),
		newSessionsCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "interviewd by Fyrsmith Labs\n")
			fmt.Fprintf(out, "Version:    %s\n", version)
			fmt.Fprintf(out, "Commit:     %s\n", gitCommit)
			fmt.Fprintf(out, "Build Date: %s\n", buildDate)
		},
	}
}
