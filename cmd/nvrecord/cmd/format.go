/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"
)

// formatCmd represents the format command
var formatCmd = &cobra.Command{
	Use:   "format",
	Short: "Write a fresh record whatever the current state",
	Long: `Write a fresh record with the given payload, or zeros when none is given.
Unlike save, format does not look at what is currently stored, so it is how
blank, corrupt and interrupted records are recovered. It also clears a lock.

Examples:
  nvrecord format
  nvrecord format --hex 0102030405`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := payloadFlags(cmd, false)
		if err != nil {
			return err
		}

		s, err := sessionFrom(cmd)
		if err != nil {
			return err
		}
		m, err := s.openManager(cmd.Context())
		if err != nil {
			return err
		}

		if err := m.Format(cmd.Context(), payload); err != nil {
			return err
		}
		cmd.Printf("Formatted record at address %d\n", m.Block().Address())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(formatCmd)
	addPayloadFlags(formatCmd)
}
