package main

import (
	"fmt"
	"os"
	"sitestatus/internal/di"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write every table to a compressed snapshot file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, cleanup, err := di.InitSnapshotManager(flags)
		if err != nil {
			return err
		}
		defer cleanup()

		if err := manager.SaveToFile(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "snapshot written to %s\n", args[0])
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load a snapshot file into the configured store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(args[0]); err != nil {
			return err
		}
		manager, cleanup, err := di.InitSnapshotManager(flags)
		if err != nil {
			return err
		}
		defer cleanup()

		rows, err := manager.LoadFromFile(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d rows from %s\n", rows, args[0])
		return nil
	},
}
