package main

import (
	"fmt"
	"sitestatus/internal/di"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and websocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, cleanup, err := di.InitApp(flags)
		if err != nil {
			return fmt.Errorf("failed to start: %w", err)
		}
		cleanup()
		return nil
	},
}
