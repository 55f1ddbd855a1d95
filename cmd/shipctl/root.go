package main

import (
	"github.com/spf13/cobra"
)

var (
	serverURL  string
	outputFmt  string
	userFlag   string
	userHeader string
)

var rootCmd = &cobra.Command{
	Use:   "shipctl",
	Short: "CLI for the ship server",
	Long: `shipctl drives the ship server HTTP API from the command line:
list services and audit events, and trigger the gated mutation actions
(update, force-update, scale, restore).

Actions are subject to the server's lockout window; a blocked action is
reported as such and still shows up in the audit log as an attempt.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:3000", "Ship server URL")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format: table, json")
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "Username sent in the identity header")
	rootCmd.PersistentFlags().StringVar(&userHeader, "user-header", "X-Remote-User", "Identity header name the server is configured with")

	rootCmd.AddCommand(servicesCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(forceUpdateCmd)
	rootCmd.AddCommand(scaleCmd)
	rootCmd.AddCommand(restoreCmd)
}
