package main

import (
	"fmt"
	"net/url"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/shipops/ship/pkg/events"
)

var eventsService string

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List audit events",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/events"
		if eventsService != "" {
			path += "?service=" + url.QueryEscape(eventsService)
		}

		var resp struct {
			Events []events.ActionEvent `json:"events"`
		}
		if err := newShipClient().get(path, &resp); err != nil {
			return err
		}

		if outputFmt == "json" {
			return printJSON(resp.Events)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tTYPE\tUSER\tSERVICE")
		for _, e := range resp.Events {
			ts := time.UnixMilli(e.Time).Format(time.RFC3339)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ts, e.Type, e.Username, e.Service)
		}
		return w.Flush()
	},
}

func init() {
	eventsCmd.Flags().StringVar(&eventsService, "service", "", "Only show events for this service")
}
