package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gpusizer/gpusizer/cmd/cli/client"
	"github.com/gpusizer/gpusizer/internal/api"
	"github.com/gpusizer/gpusizer/internal/manifest"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Render a vLLM serving manifest for the recommended configuration",
	Long: `Size the model for the target load, then emit a ready-to-apply
Deployment + Service pinned to the recommended device configuration.

Examples:
  gpusizer manifest --model meta-llama/Llama-2-7b-hf --users 100 --latency-ms 1000
  gpusizer manifest --model mistralai/Mistral-7B-v0.1 --users 20 --latency-ms 500 --namespace serving > serving.yaml`,
	RunE: runManifest,
}

var (
	manModel     string
	manUsers     int
	manLatencyMs float64
	manName      string
	manNamespace string
	manVersion   string
	manHFToken   string
	manMaxLen    int
	manCPU       string
	manMemory    string
)

func init() {
	manifestCmd.Flags().StringVar(&manModel, "model", "", "Model hub ID or catalog name (required)")
	manifestCmd.Flags().IntVar(&manUsers, "users", 0, "Concurrent users to serve (required)")
	manifestCmd.Flags().Float64Var(&manLatencyMs, "latency-ms", 0, "Per-request latency budget in milliseconds (required)")
	manifestCmd.Flags().StringVar(&manName, "name", "", "Object name (default derived from the model ID)")
	manifestCmd.Flags().StringVar(&manNamespace, "namespace", "default", "Target namespace")
	manifestCmd.Flags().StringVar(&manVersion, "engine-version", "latest", "vllm/vllm-openai image tag")
	manifestCmd.Flags().StringVar(&manHFToken, "hf-token", "", "Hugging Face token for gated weights")
	manifestCmd.Flags().IntVar(&manMaxLen, "max-model-len", 0, "Context length cap passed to the engine")
	manifestCmd.Flags().StringVar(&manCPU, "cpu", "4", "CPU request per replica")
	manifestCmd.Flags().StringVar(&manMemory, "memory", "16Gi", "Host memory request per replica")
	_ = manifestCmd.MarkFlagRequired("model")
	_ = manifestCmd.MarkFlagRequired("users")
	_ = manifestCmd.MarkFlagRequired("latency-ms")
	RootCmd.AddCommand(manifestCmd)
}

func runManifest(cmd *cobra.Command, args []string) error {
	c := newClient()
	ctx := context.Background()

	resp, err := c.Recommend(ctx, api.RecommendRequest{
		Model:           manModel,
		Users:           manUsers,
		LatencyTargetMs: manLatencyMs,
	})
	if err != nil {
		return err
	}
	if !resp.Feasible {
		return fmt.Errorf("no feasible configuration for %s at %d users", manModel, manUsers)
	}

	name := manName
	if name == "" {
		name = manifest.NameForModel(resp.Model)
	}
	out, err := manifest.RenderServing(manifest.ServingParams{
		Name:          name,
		Namespace:     manNamespace,
		ModelID:       resp.Model,
		HFToken:       manHFToken,
		EngineVersion: manVersion,
		DeviceName:    resp.Recommended.DeviceName,
		DeviceCount:   resp.Recommended.DeviceCount,
		InstanceType:  instanceTypeFor(ctx, c, resp.Recommended.DeviceName),
		MaxModelLen:   manMaxLen,
		CPURequest:    manCPU,
		MemoryRequest: manMemory,
	})
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

// instanceTypeFor pins the manifest to the catalog's instance mapping when
// the recommended device carries one. Missing mappings leave the node
// selector off.
func instanceTypeFor(ctx context.Context, c *client.Client, deviceName string) string {
	devices, err := c.ListDevices(ctx)
	if err != nil {
		return ""
	}
	for _, d := range devices.Devices {
		if d.Name == deviceName {
			return d.InstanceName
		}
	}
	return ""
}
