package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shipops/ship/pkg/orchestrator"
)

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List services managed by the active orchestrator",
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp struct {
			Services []orchestrator.Service `json:"services"`
		}
		if err := newShipClient().get("/services", &resp); err != nil {
			return err
		}

		if outputFmt == "json" {
			return printJSON(resp.Services)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tIMAGE\tREPLICAS")
		for _, s := range resp.Services {
			fmt.Fprintf(w, "%s\t%s\t%d\n", s.Name, s.Image, s.Replicas)
		}
		return w.Flush()
	},
}

// printJSON writes indented JSON output to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
