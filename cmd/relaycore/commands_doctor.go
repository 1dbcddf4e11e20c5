package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/relaycore/relaycore/internal/config"
)

func buildDoctorCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and connectivity to the LLM endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(*configPath)
		},
	}
}

func runDoctor(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Printf("✗ config: %s\n", err)
		return err
	}
	fmt.Printf("✓ config loaded from %s\n", configPath)

	if cfg.LLM.APIKey == "" {
		fmt.Println("✗ llm.api_key is empty")
	} else {
		fmt.Println("✓ llm.api_key is set")
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(cfg.LLM.BaseURL)
	if err != nil {
		fmt.Printf("✗ llm.base_url %s unreachable: %s\n", cfg.LLM.BaseURL, err)
	} else {
		resp.Body.Close()
		fmt.Printf("✓ llm.base_url %s reachable (status %d)\n", cfg.LLM.BaseURL, resp.StatusCode)
	}

	if cfg.Adapter.BaseURL == "" {
		fmt.Println("• adapter.base_url unset: bot-only and userbot tools will report not configured")
	} else {
		fmt.Printf("✓ adapter.base_url set: %s\n", cfg.Adapter.BaseURL)
	}

	fmt.Printf("• workspace root: %s\n", cfg.Workspace.Root)
	fmt.Printf("• scheduler enabled: %v\n", cfg.Scheduler.Enabled)
	fmt.Printf("• lazy tool loading: %v\n", cfg.Tools.LazyLoading)

	return nil
}
