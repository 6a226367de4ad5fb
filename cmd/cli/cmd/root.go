package cmd

import (
	"github.com/spf13/cobra"

	"github.com/gpusizer/gpusizer/cmd/cli/client"
	"github.com/gpusizer/gpusizer/cmd/cli/format"
	"github.com/gpusizer/gpusizer/internal/config"
)

var (
	apiURL       string
	outputFormat string
)

// RootCmd is the top-level CLI command.
var RootCmd = &cobra.Command{
	Use:   "gpusizer",
	Short: "gpusizer CLI - size GPU fleets for LLM serving",
}

func init() {
	cliCfg, err := config.LoadCliConfig()
	if err != nil || cliCfg.APIURL == "" {
		cliCfg.APIURL = "http://localhost:8080"
	}
	RootCmd.PersistentFlags().StringVar(&apiURL, "api-url", cliCfg.APIURL, "gpusizer API base URL")
	RootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json, csv")
}

func newClient() *client.Client {
	return client.New(apiURL)
}

func getFormat() format.OutputFormat {
	switch outputFormat {
	case "json":
		return format.FormatJSON
	case "csv":
		return format.FormatCSV
	default:
		return format.FormatTable
	}
}
