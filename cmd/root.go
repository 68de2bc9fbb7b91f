package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/chartquery/chartquery/internal/config"
	"github.com/chartquery/chartquery/internal/errors"
	"github.com/chartquery/chartquery/internal/llm"
	"github.com/chartquery/chartquery/internal/logging"
	"github.com/chartquery/chartquery/internal/pipeline"
	"github.com/chartquery/chartquery/internal/store"
)

var (
	flagLogLevel string
	flagProvider string
	flagModel    string
	flagDBName   string

	appConfig *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "chartquery",
	Short: "Turn natural language questions into chart-ready SQL results",
	Long: `chartquery answers free-text analytical questions against a MySQL database.
It selects the relevant table, inspects its schema, asks an LLM to choose a
chart type and generate SQL, executes the query, verifies the results, and
returns label/value pairs ready for chart rendering. Questions may be asked
in English or Thai.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadConfigWithOverrides(map[string]interface{}{
			"log-level": flagLogLevel,
			"provider":  flagProvider,
			"model":     flagModel,
			"db-name":   flagDBName,
		})
		if err != nil {
			return err
		}

		if err := logging.InitializeLogger(cfg.Logging); err != nil {
			logging.SetupFallbackLogger()
		}

		appConfig = cfg

		return nil
	},
}

func Execute() error {
	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError(err)
		return err
	}

	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&flagProvider, "provider", "", "LLM provider: openai, anthropic, ollama, local")
	rootCmd.PersistentFlags().StringVar(&flagModel, "model", "", "LLM model name")
	rootCmd.PersistentFlags().StringVar(&flagDBName, "db-name", "", "Database name to query")
}

// buildPipeline wires the storage layer, LLM client, and pipeline from the
// loaded configuration. The caller owns the returned store.
func buildPipeline(cfg *config.Config) (*pipeline.Pipeline, *store.Store, error) {
	logger := logging.GetLogger()

	queryTimeout, err := time.ParseDuration(cfg.Database.QueryTimeout)
	if err != nil {
		queryTimeout = 30 * time.Second
	}

	connLifetime, err := time.ParseDuration(cfg.Database.ConnMaxLifetime)
	if err != nil {
		connLifetime = 30 * time.Minute
	}

	st, err := store.Open(store.Config{
		DSN:             cfg.Database.DSN(),
		MaxOpenConns:    cfg.Database.MaxConnections,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: connLifetime,
		QueryTimeout:    queryTimeout,
	}, logger)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrTypeDatabase, "failed to open database")
	}

	llmCfg := llm.Config{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}

	client := llm.NewClient(llmCfg)
	if err := client.Configure(llmCfg); err != nil {
		st.Close()
		return nil, nil, err
	}

	if timeout, err := time.ParseDuration(cfg.LLM.Timeout); err == nil {
		client.SetTimeout(timeout)
	}

	return pipeline.New(st, client, cfg.Pipeline, logger), st, nil
}

// printError renders a typed error with its suggestions when present.
func printError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())

	if appErr, ok := err.(*errors.Error); ok {
		for _, suggestion := range appErr.Suggestions {
			fmt.Fprintf(os.Stderr, "Suggestion: %s\n", suggestion)
		}
	}
}
