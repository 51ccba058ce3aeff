/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"
)

// lockCmd represents the lock command
var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Claim the record",
	Long: `Claim a Formatted record by writing the complemented magic. While locked
the record reads as pending and save is refused. Only the magic changes, so
unlock restores the record exactly.

Example:
  nvrecord lock`,
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

		if err := m.Lock(cmd.Context()); err != nil {
			return err
		}
		cmd.Println("Record locked")
		return nil
	},
}

// unlockCmd represents the unlock command
var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Release a claim on the record",
	Long: `Restore the true magic of a pending record. Succeeds only if the record is
then Formatted. Unlocking a record left pending by an interrupted save
completes that save.

Example:
  nvrecord unlock`,
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

		if err := m.Unlock(cmd.Context()); err != nil {
			return err
		}
		cmd.Println("Record unlocked")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lockCmd)
	rootCmd.AddCommand(unlockCmd)
}
