/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/nvrecord/pkg/dump"
)

// dumpCmd represents the dump command
var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Hex dump the record bytes",
	Long: `Print the raw bytes of the record region as stored, eight bytes per line,
whatever state the record is in.

Example:
  nvrecord dump`,
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
		cmd.Printf("state: %s\n", state)
		cmd.Print(dump.Format(block.Address(), block.Codec().Marshal(rec)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}
