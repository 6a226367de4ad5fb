package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gpusizer/gpusizer/cmd/cli/format"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <model>",
	Short: "Resolve a model's architecture and memory estimates",
	Long: `Fetch or compute the sizing descriptor for a model. Unknown models are
pulled from the hub and cached server side.

Examples:
  gpusizer resolve meta-llama/Llama-2-7b-hf
  gpusizer resolve mistralai/Mixtral-8x7B-v0.1 --force -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

var resolveForce bool

func init() {
	resolveCmd.Flags().BoolVar(&resolveForce, "force", false, "Refetch from the hub even when a record exists")
	RootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	c := newClient()

	m, err := c.GetModel(context.Background(), args[0], resolveForce)
	if err != nil {
		return err
	}

	if getFormat() == format.FormatJSON {
		return format.JSON(m)
	}

	fmt.Printf("Model:        %s\n", m.Identifier)
	if m.HiddenSize > 0 {
		fmt.Printf("Hidden size:  %d\n", m.HiddenSize)
		fmt.Printf("Layers:       %d\n", m.NumLayers)
		fmt.Printf("Heads:        %d attention, %d KV\n", m.NumAttentionHeads, m.NumKeyValueHeads)
	}
	if m.ExpertCount > 0 {
		fmt.Printf("Experts:      %d (%d active per token)\n", m.ExpertCount, m.ExpertsPerToken)
	}
	fmt.Printf("Weights:      %s GiB\n", format.F64(m.WeightFootprintGiB, 2))
	fmt.Printf("KV cache:     %s GiB/user (seq len %d)\n", format.F64(m.KVCacheGiBPerUser, 4), m.SeqLen)
	fmt.Printf("Base latency: %.2f s\n", m.BaseLatencySeconds)
	if m.FootprintUnresolved {
		fmt.Println("\nWarning: estimates unresolved; pass --kv-gib or a catalog model when recommending.")
	}
	return nil
}
