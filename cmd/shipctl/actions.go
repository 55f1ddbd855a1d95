package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	updateImage      string
	updateOldVersion string
	updateNewVersion string
	scaleReplicas    uint64
)

var updateCmd = &cobra.Command{
	Use:   "update <service>",
	Short: "Update a service to a new image version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction("/update", map[string]any{
			"service_name":              args[0],
			"service_image":             updateImage,
			"service_old_image_version": updateOldVersion,
			"service_new_image_version": updateNewVersion,
		})
	},
}

var forceUpdateCmd = &cobra.Command{
	Use:   "force-update <service>",
	Short: "Force re-deploy a service without changing its image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction("/force_update", map[string]any{
			"service_name": args[0],
		})
	},
}

var scaleCmd = &cobra.Command{
	Use:   "scale <service>",
	Short: "Scale a service to a replica count",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction("/scale", map[string]any{
			"service_name":  args[0],
			"service_scale": scaleReplicas,
		})
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <service>",
	Short: "Restore a service to its previous version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction("/restore", map[string]any{
			"service_name": args[0],
		})
	},
}

func init() {
	updateCmd.Flags().StringVar(&updateImage, "image", "", "Image name (without tag)")
	updateCmd.Flags().StringVar(&updateOldVersion, "from", "", "Current image tag")
	updateCmd.Flags().StringVar(&updateNewVersion, "to", "", "New image tag")
	_ = updateCmd.MarkFlagRequired("image")
	_ = updateCmd.MarkFlagRequired("to")

	scaleCmd.Flags().Uint64Var(&scaleReplicas, "replicas", 1, "Target replica count")
	_ = scaleCmd.MarkFlagRequired("replicas")
}

// runAction posts one mutation request and prints the server's message.
func runAction(path string, payload map[string]any) error {
	var resp struct {
		Message string `json:"message"`
	}
	if err := newShipClient().post(path, payload, &resp); err != nil {
		return err
	}
	fmt.Println(resp.Message)
	return nil
}
