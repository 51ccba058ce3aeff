/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Classify the record and show its header",
	Long: `Read the record from the device and report its state together with the
stored magic, version and checksum. The record is never modified.

A record reported as pending either holds a lock or was interrupted between
the two commit phases; the two cannot be told apart.

Example:
  nvrecord status`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := sessionFrom(cmd)
		if err != nil {
			return err
		}
		m, err := s.openManager(cmd.Context())
		if err != nil {
			return err
		}

		block := m.Block()
		rec, state, err := block.ReadRecord(cmd.Context())
		if err != nil {
			return err
		}
		cfg := block.Config()

		cmd.Printf("state:    %s\n", state)
		cmd.Printf("locked:   %t\n", rec.Magic == ^cfg.Magic)
		cmd.Printf("address:  0x%04X\n", block.Address())
		cmd.Printf("size:     %d bytes\n", block.Size())
		cmd.Printf("magic:    %08X (expected %08X)\n", rec.Magic, cfg.Magic)
		cmd.Printf("version:  %d (expected %d)\n", rec.Version, cfg.Version)
		cmd.Printf("checksum: %0*X (%s)\n", cfg.Width.Size()*2, rec.Checksum, cfg.Width)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
