// Package main provides the CLI entry point for relaycore, a multi-tenant
// LLM-agent runtime core: one bounded ReAct loop per (user, chat) session,
// a built-in + MCP tool catalogue, a declarative permission engine, and a
// durable task scheduler, fronted by a small HTTP gateway.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "relaycore",
		Short:        "relaycore - multi-tenant LLM agent runtime core",
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "relaycore.yaml", "path to config file")

	rootCmd.AddCommand(buildServeCmd(&configPath))
	rootCmd.AddCommand(buildDoctorCmd(&configPath))
	rootCmd.AddCommand(buildVersionCmd())

	return rootCmd
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("relaycore %s (commit: %s, built: %s)\n", version, commit, date)
			return nil
		},
	}
}
