package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/agenthands/genecompare/internal/app"
	"github.com/agenthands/genecompare/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}

		logger := slog.Default()
		srv := server.NewServer(app.NewAggregator(cfg, logger), cfg, logger)
		return srv.Run(cmd.Context(), addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
}
