/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"encoding/hex"

	"github.com/spf13/cobra"

	"github.com/ssargent/nvrecord/pkg/codec"
	"github.com/ssargent/nvrecord/pkg/dump"
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the payload of a valid record",
	Long: `Print the payload if the record is Formatted. Fails with "no valid data"
otherwise.

Examples:
  nvrecord show
  nvrecord show --plain`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		plain, _ := cmd.Flags().GetBool("plain")

		s, err := sessionFrom(cmd)
		if err != nil {
			return err
		}
		m, err := s.openManager(cmd.Context())
		if err != nil {
			return err
		}

		payload, err := m.Data(cmd.Context())
		if err != nil {
			return err
		}

		if plain {
			cmd.Println(hex.EncodeToString(payload))
			return nil
		}
		cmd.Print(dump.Format(m.Block().Address()+codec.PayloadOffset, payload))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().Bool("plain", false, "Print the payload as a single hex string")
}
