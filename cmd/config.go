package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Display the active configuration",
	Long:  `Show the current active configuration merged from file, environment variables, and command-line flags.`,
	RunE:  runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	cfg := appConfig

	fmt.Println("Active Configuration:")

	fmt.Println("\nDatabase:")
	fmt.Printf("  Host: %s\n", cfg.Database.Host)
	fmt.Printf("  Port: %d\n", cfg.Database.Port)
	fmt.Printf("  Name: %s\n", cfg.Database.Name)
	fmt.Printf("  User: %s\n", cfg.Database.User)
	fmt.Printf("  Max Connections: %d\n", cfg.Database.MaxConnections)
	fmt.Printf("  Query Timeout: %s\n", cfg.Database.QueryTimeout)

	fmt.Println("\nLLM:")
	fmt.Printf("  Provider: %s\n", cfg.LLM.Provider)
	fmt.Printf("  Model: %s\n", cfg.LLM.Model)
	fmt.Printf("  Base URL: %s\n", cfg.LLM.BaseURL)
	fmt.Printf("  Temperature: %.2f\n", cfg.LLM.Temperature)
	fmt.Printf("  Max Tokens: %d\n", cfg.LLM.MaxTokens)
	fmt.Printf("  Timeout: %s\n", cfg.LLM.Timeout)

	if cfg.LLM.APIKey != "" {
		fmt.Println("  API Key: (set)")
	} else {
		fmt.Println("  API Key: (not set)")
	}

	fmt.Println("\nServer:")
	fmt.Printf("  Listen: %s\n", cfg.Server.Addr())
	fmt.Printf("  Allowed Origins: %v\n", cfg.Server.AllowedOrigins)

	fmt.Println("\nPipeline:")
	fmt.Printf("  Max Retries: %d\n", cfg.Pipeline.MaxRetries)
	fmt.Printf("  Confidence Threshold: %d\n", cfg.Pipeline.ConfidenceThreshold)
	fmt.Printf("  Sample Limit: %d\n", cfg.Pipeline.SampleLimit)
	fmt.Printf("  Default Table: %s\n", cfg.Pipeline.DefaultTable)
	fmt.Printf("  Refinement Enabled: %t\n", cfg.Pipeline.EnableRefinement)

	fmt.Println("\nLogging:")
	fmt.Printf("  Level: %s\n", cfg.Logging.Level)
	fmt.Printf("  Format: %s\n", cfg.Logging.Format)
	fmt.Printf("  Output: %s\n", cfg.Logging.Output)

	if cfg.Logging.Output == "file" {
		fmt.Printf("  File: %s\n", cfg.Logging.File)
	}

	return nil
}
