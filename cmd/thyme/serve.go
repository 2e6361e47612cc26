package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yurifrl/thyme/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the import and review operations as a JSON API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		port, _ := cmd.Flags().GetString("port")
		addr := fmt.Sprintf("0.0.0.0:%s", port)
		a.logger.Info("starting server", "addr", addr)
		return server.New(a.engine, a.logger).Start(addr)
	},
}

func init() {
	serveCmd.Flags().String("port", "3000", "Server port")
	rootCmd.AddCommand(serveCmd)
}
