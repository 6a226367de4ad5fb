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

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Show the device catalog recommendations rank against",
	Long: `Show the server's device catalog snapshot.

Examples:
  gpusizer devices
  gpusizer devices --reload
  gpusizer devices -o csv`,
	RunE: runDevices,
}

var devicesReload bool

func init() {
	devicesCmd.Flags().BoolVar(&devicesReload, "reload", false, "Reload the catalog from disk before listing")
	RootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	c := newClient()
	ctx := context.Background()

	var (
		list *api.DeviceList
		err  error
	)
	if devicesReload {
		list, err = c.ReloadDevices(ctx)
	} else {
		list, err = c.ListDevices(ctx)
	}
	if err != nil {
		return err
	}

	switch getFormat() {
	case format.FormatJSON:
		return format.JSON(list)
	case format.FormatCSV:
		return format.CSV(os.Stdout, deviceHeaders(), deviceRows(list.Devices))
	default:
		format.Table(deviceHeaders(), deviceRows(list.Devices))
		if list.SkippedEntries > 0 {
			fmt.Fprintf(os.Stderr, "\n%d malformed catalog entries skipped\n", list.SkippedEntries)
		}
		return nil
	}
}

func deviceHeaders() []string {
	return []string{
		"Device", "Memory", "Tput(tok/s)", "Linking",
		"Max Linked", "Lat. Factor", "Instance", "$/hr",
	}
}

func deviceRows(devices []sizing.DeviceDescriptor) [][]string {
	rows := make([][]string, len(devices))
	for i, d := range devices {
		linking := "no"
		if d.SupportsLinking {
			linking = "yes"
		}
		rows[i] = []string{
			d.Name,
			format.GiBytes(d.MemoryGiB),
			format.F64(d.ThroughputTPS, 0),
			linking,
			fmt.Sprintf("%d", d.MaxLinkedDevices),
			format.F64(d.LatencyFactor, 2),
			d.InstanceName,
			format.F64(d.HourlyPriceUSD, 2),
		}
	}
	return rows
}
