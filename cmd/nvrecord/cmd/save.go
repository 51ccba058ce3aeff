/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"
)

// saveCmd represents the save command
var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Commit a new payload over a valid record",
	Long: `Commit a new payload using the two-phase protocol. The record must be
Formatted; a corrupt, locked or interrupted record is refused and left as it
is. Use format to overwrite such a record.

Examples:
  nvrecord save --hex "48 65 6C 6C 6F"
  nvrecord save --file settings.bin`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := payloadFlags(cmd, true)
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

		if err := m.Save(cmd.Context(), payload); err != nil {
			return err
		}
		cmd.Printf("Saved %d bytes\n", len(payload))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(saveCmd)
	addPayloadFlags(saveCmd)
}
