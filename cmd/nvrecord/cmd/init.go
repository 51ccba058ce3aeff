/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/ssargent/nvrecord/pkg/config"
	"github.com/ssargent/nvrecord/pkg/record"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration and format the record",
	Long: `Create a configuration file for an image-file device, then make sure the
record on it is valid. A record that is already Formatted is left alone;
anything else is formatted with a zero payload.

Examples:
  nvrecord init
  nvrecord init --device-path ./eeprom.img
  nvrecord init --config ./nvrecord.yaml --force`,
	Annotations: map[string]string{skipDevice: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		cfg, err := loadOrBootstrap(cmd, force)
		if err != nil {
			return err
		}

		m, err := bindDefaults(cmd, cfg)
		if err != nil {
			return err
		}
		state, err := m.State(cmd.Context())
		if err != nil {
			return err
		}
		cmd.Printf("Record at address %d is %s\n", cfg.Record.Address, state)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().String("device-path", "", "Image file for the device (default ./nvrecord.img)")
	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration")
}

// loadOrBootstrap loads the configuration, writing a fresh one with a new
// API key when none exists or force is set.
func loadOrBootstrap(cmd *cobra.Command, force bool) (*config.Config, error) {
	path := configPath(cmd)
	if config.ConfigExists(path) && !force {
		cfg, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cmd.Printf("Using existing configuration at %s\n", path)
		return cfg, nil
	}

	devicePath, _ := cmd.Flags().GetString("device-path")
	cfg, err := config.BootstrapConfig(path, devicePath)
	if err != nil {
		return nil, err
	}
	cmd.Printf("Configuration written to %s\n", path)
	cmd.Printf("API key: %s\n", cfg.Server.APIKey)
	return cfg, nil
}

// bindDefaults opens the device and binds the record, formatting it with a
// zero payload unless it is already valid. The session it creates is closed
// by Execute.
func bindDefaults(cmd *cobra.Command, cfg *config.Config, extra ...record.Observer) (*record.Manager[[]byte], error) {
	if container == nil {
		return nil, errors.New("dependency container not initialized")
	}
	logger, err := newLogger(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return nil, err
	}
	dev, err := container.GetDeviceFactory().OpenDevice(cfg)
	if err != nil {
		return nil, err
	}
	active = &session{cfg: cfg, dev: dev, logger: logger}

	return record.New(cmd.Context(), dev, cfg.Record.Address, cfg.RecordConfig(),
		active.payloadCodec(), make([]byte, cfg.Record.PayloadSize), active.options(extra...)...)
}
