package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/chartquery/chartquery/internal/errors"
	"github.com/chartquery/chartquery/internal/logging"
	"github.com/chartquery/chartquery/internal/pipeline"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question from the command line",
	Long: `Run a single natural language question through the full pipeline and print
the resulting chart data.

Examples:
  chartquery ask "how many gold medals does Thailand have"
  chartquery ask "แสดงจำนวนเหรียญทองของแต่ละประเทศ"
  chartquery ask --json "medal trend over the last five games"`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Print the full result as JSON")

	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := logging.GetLogger()

	question := strings.TrimSpace(args[0])
	if question == "" {
		return errors.New(errors.ErrTypeValidation, "question must not be empty")
	}

	p, st, err := buildPipeline(appConfig)
	if err != nil {
		return err
	}
	defer st.Close()

	spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond,
		spinner.WithWriter(os.Stderr))
	spin.Suffix = " thinking..."
	spin.Start()

	sink := pipeline.SinkFunc(func(_ context.Context, event pipeline.Event) {
		if event.Type == pipeline.EventStatus {
			spin.Suffix = " " + event.Message
		}
	})

	result := p.Run(ctx, question, sink)
	spin.Stop()

	logger.WithField("attempts", result.Attempts).Debug("ask completed")

	if askJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")

		return encoder.Encode(result)
	}

	printResult(result)

	return nil
}

func printResult(result pipeline.Result) {
	if result.Error != "" {
		fmt.Printf("Query failed (%s), showing sample data.\n\n", result.Error)
	}

	fmt.Printf("Table:  %s\n", result.Table)
	fmt.Printf("Chart:  %s\n", result.Chart.ChartType)

	if result.Chart.SQLQuery != "" {
		fmt.Printf("SQL:    %s\n", result.Chart.SQLQuery)
	}

	fmt.Println()

	if len(result.Chart.Data) == 0 {
		fmt.Println("No data points.")
		return
	}

	maxValue := result.Chart.Data[0].Value
	for _, point := range result.Chart.Data {
		if point.Value > maxValue {
			maxValue = point.Value
		}
	}

	for _, point := range result.Chart.Data {
		bar := ""
		if maxValue > 0 {
			bar = strings.Repeat("#", int(point.Value/maxValue*40))
		}

		fmt.Printf("%-24s %8.6g %s\n", point.Label, point.Value, bar)
	}
}
