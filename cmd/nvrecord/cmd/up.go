/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ssargent/nvrecord/pkg/api"
)

// upCmd represents the up command
var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Bootstrap and start the server",
	Long: `Create a configuration if none exists, make sure the record is valid, then
start the REST API server. This is the quickest way to get a device served.

The command will:
- Create a configuration file with an API key if missing
- Format the record with a zero payload unless it is already valid
- Start the REST API server

Examples:
  nvrecord up
  nvrecord up --device-path ./eeprom.img --port 9000`,
	Annotations: map[string]string{skipDevice: "true"},
	Args:        cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadOrBootstrap(cmd, false)
		if err != nil {
			return err
		}

		reg := prometheus.NewRegistry()
		metrics := api.NewMetrics(reg)

		m, err := bindDefaults(cmd, cfg, metrics)
		if err != nil {
			return err
		}
		return runServer(cmd, active, m, metrics, reg)
	},
}

func init() {
	rootCmd.AddCommand(upCmd)

	upCmd.Flags().String("device-path", "", "Image file for the device when bootstrapping")
	addServerFlags(upCmd)
}
