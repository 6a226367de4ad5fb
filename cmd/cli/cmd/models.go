package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gpusizer/gpusizer/cmd/cli/format"
	"github.com/gpusizer/gpusizer/internal/store"
)

var modelsCmd = &cobra.Command{
	Use:   "models [query]",
	Short: "List or search stored model records",
	Long: `List the model records the server has resolved or seeded, optionally
filtered by a substring match on the identifier.

Examples:
  gpusizer models
  gpusizer models llama
  gpusizer models --limit 10 -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runModels,
}

var modelsLimit int

func init() {
	modelsCmd.Flags().IntVar(&modelsLimit, "limit", 0, "Max records to return")
	RootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	query := ""
	if len(args) > 0 {
		query = args[0]
	}

	c := newClient()
	records, err := c.ListModels(context.Background(), query, modelsLimit)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Fprintln(os.Stderr, "No models found.")
		return nil
	}

	switch getFormat() {
	case format.FormatJSON:
		return format.JSON(records)
	case format.FormatCSV:
		return format.CSV(os.Stdout, modelHeaders(), modelRows(records))
	default:
		format.Table(modelHeaders(), modelRows(records))
		fmt.Fprintf(os.Stderr, "\n%d model(s)\n", len(records))
		return nil
	}
}

func modelHeaders() []string {
	return []string{
		"Model", "Params", "Weights(GiB)", "KV/user(GiB)",
		"Base(s)", "Queries", "Last Used",
	}
}

func modelRows(records []store.ModelRecord) [][]string {
	rows := make([][]string, len(records))
	for i, r := range records {
		rows[i] = []string{
			r.ModelID,
			format.Comma(r.ParameterCount),
			format.F64(r.WeightFootprintGiB, 2),
			format.F64(r.KVCacheGiBPerUser, 4),
			format.F64(r.BaseLatencySeconds, 2),
			fmt.Sprintf("%d", r.QueryCount),
			format.Ago(r.LastAccessedAt),
		}
	}
	return rows
}
