// SPDX-License-Identifier: EPL-2.0

package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ik5/audbind"
	"github.com/ik5/audbind/native"
	"github.com/spf13/cobra"
)

func (a *app) devicesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List output and recording devices",
		Args:  cobra.NoArgs,
		RunE: a.command(func(cmd *cobra.Command, _ []string) error {
			out, err := a.b.Devices()
			if err != nil {
				return err
			}
			rec, err := a.b.RecordDevices()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			printDevices(w, "output", out)
			printDevices(w, "record", rec)
			return w.Flush()
		}),
	}
}

func printDevices(w io.Writer, kind string, devices []audbind.DeviceInfo) {
	for _, d := range devices {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n", kind, d.Index, d.Name, d.Driver, deviceFlags(d.Flags))
	}
}

func deviceFlags(f native.DeviceFlags) string {
	var names []string
	if f&native.DeviceEnabled != 0 {
		names = append(names, "enabled")
	}
	if f&native.DeviceDefault != 0 {
		names = append(names, "default")
	}
	if f&native.DeviceInited != 0 {
		names = append(names, "inited")
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ",")
}
