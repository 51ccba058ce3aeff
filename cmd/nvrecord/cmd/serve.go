/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ssargent/nvrecord/pkg/api"
	"github.com/ssargent/nvrecord/pkg/record"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Serve the record over HTTP until interrupted. Record routes live under
/api/v1 and require the configured API key when one is set; Prometheus
metrics are served at /metrics. The record is never formatted on startup.

Examples:
  nvrecord serve
  nvrecord serve --port 9200 --bind 0.0.0.0`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := sessionFrom(cmd)
		if err != nil {
			return err
		}

		reg := prometheus.NewRegistry()
		metrics := api.NewMetrics(reg)

		m, err := s.openManager(cmd.Context(), metrics)
		if err != nil {
			return err
		}
		return runServer(cmd, s, m, metrics, reg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addServerFlags(serveCmd)
}

func addServerFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	cmd.Flags().String("bind", "127.0.0.1", "Address to bind")
}

// runServer serves m until SIGINT or SIGTERM. Flags override the configured
// address only when given.
func runServer(cmd *cobra.Command, s *session, m *record.Manager[[]byte], metrics *api.Metrics, reg *prometheus.Registry) error {
	if container == nil {
		return errors.New("dependency container not initialized")
	}

	serverConfig := api.ServerConfig{
		Port:   s.cfg.Server.Port,
		Bind:   s.cfg.Server.Bind,
		APIKey: s.cfg.Server.APIKey,
	}
	if cmd.Flags().Changed("port") {
		serverConfig.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("bind") {
		serverConfig.Bind, _ = cmd.Flags().GetString("bind")
	}

	state, err := m.State(cmd.Context())
	if err != nil {
		return err
	}
	s.logger.Info("serving record", "state", state, "address", m.Block().Address(),
		"bind", serverConfig.Bind, "port", serverConfig.Port)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	starter := container.GetServerFactory().CreateServerStarter()
	return starter.StartServer(ctx, m, metrics, reg, serverConfig)
}
