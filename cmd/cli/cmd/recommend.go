package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gpusizer/gpusizer/cmd/cli/format"
	"github.com/gpusizer/gpusizer/internal/api"
	"github.com/gpusizer/gpusizer/internal/sizing"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Recommend GPU configurations for a model and user load",
	Long: `Estimate how many devices of which type serve a model to the target
concurrency within a latency budget, ranked by aggregate memory.

Examples:
  gpusizer recommend --model meta-llama/Llama-2-7b-hf --users 100 --latency-ms 1000
  gpusizer recommend --model mistralai/Mixtral-8x7B-v0.1 --users 50 --latency-ms 500 --active-experts
  gpusizer recommend --model microsoft/phi-2 --users 10 --latency-ms 2000 -o json`,
	RunE: runRecommend,
}

var (
	recModel         string
	recUsers         int
	recLatencyMs     float64
	recKVOverrideGiB float64
	recThroughput    float64
	recActiveExperts bool
	recForce         bool
)

func init() {
	recommendCmd.Flags().StringVar(&recModel, "model", "", "Model hub ID or catalog name (required)")
	recommendCmd.Flags().IntVar(&recUsers, "users", 0, "Concurrent users to serve (required)")
	recommendCmd.Flags().Float64Var(&recLatencyMs, "latency-ms", 0, "Per-request latency budget in milliseconds (required)")
	recommendCmd.Flags().Float64Var(&recKVOverrideGiB, "kv-gib", 0, "Override the per-user KV cache estimate (GiB)")
	recommendCmd.Flags().Float64Var(&recThroughput, "throughput", 0, "Aggregate throughput floor (tokens/s)")
	recommendCmd.Flags().BoolVar(&recActiveExperts, "active-experts", false, "Size MoE weights by activated experts only")
	recommendCmd.Flags().BoolVar(&recForce, "force", false, "Recompute estimates instead of using stored ones")
	_ = recommendCmd.MarkFlagRequired("model")
	_ = recommendCmd.MarkFlagRequired("users")
	_ = recommendCmd.MarkFlagRequired("latency-ms")
	RootCmd.AddCommand(recommendCmd)
}

func runRecommend(cmd *cobra.Command, args []string) error {
	c := newClient()

	resp, err := c.Recommend(context.Background(), api.RecommendRequest{
		Model:              recModel,
		Users:              recUsers,
		LatencyTargetMs:    recLatencyMs,
		KVCacheOverrideGiB: recKVOverrideGiB,
		ThroughputRequired: recThroughput,
		ActiveExpertsOnly:  recActiveExperts,
		ForceRecompute:     recForce,
	})
	if err != nil {
		return err
	}

	switch getFormat() {
	case format.FormatJSON:
		return format.JSON(resp)
	case format.FormatCSV:
		return format.CSV(os.Stdout, configHeaders(), configRows(allConfigs(resp)))
	default:
		printRecommendation(resp)
		return nil
	}
}

func printRecommendation(resp *api.RecommendResponse) {
	d := resp.Diagnostics
	fmt.Printf("Model:            %s\n", resp.Model)
	fmt.Printf("Users:            %d\n", recUsers)
	fmt.Printf("Latency target:   %.0f ms\n", recLatencyMs)
	fmt.Printf("Requests/device:  %d\n", d.RequestsPerDevice)
	fmt.Printf("Min devices:      %d\n", d.RequiredDeviceCount)
	fmt.Printf("VRAM required:    %.2f GiB\n", d.TotalVRAMRequiredGiB)

	if !resp.Feasible {
		fmt.Println("\nNo feasible configuration in the current device catalog.")
		if !d.LatencyTargetMet {
			fmt.Println("No catalog device can meet the latency target for this model.")
		}
		return
	}

	r := resp.Recommended
	fmt.Printf("\nRecommended: %d x %s (%s aggregate)\n", r.DeviceCount, r.DeviceName, format.GiBytes(r.AggregateMemoryGiB))

	if len(resp.Alternatives) > 0 {
		fmt.Println("\nAlternatives:")
		format.Table(configHeaders(), configRows(resp.Alternatives))
	}
}

// allConfigs flattens the recommendation and its alternatives for CSV output.
func allConfigs(resp *api.RecommendResponse) []sizing.Configuration {
	var out []sizing.Configuration
	if resp.Recommended != nil {
		out = append(out, *resp.Recommended)
	}
	return append(out, resp.Alternatives...)
}

func configHeaders() []string {
	return []string{"Device", "Count", "Aggregate Mem", "Tput(tok/s)"}
}

func configRows(configs []sizing.Configuration) [][]string {
	rows := make([][]string, len(configs))
	for i, c := range configs {
		rows[i] = []string{
			c.DeviceName,
			fmt.Sprintf("%d", c.DeviceCount),
			format.GiBytes(c.AggregateMemoryGiB),
			format.F64(c.AggregateThroughputTPS, 0),
		}
	}
	return rows
}
