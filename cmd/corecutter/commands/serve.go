package commands

import (
	"github.com/spf13/cobra"

	"github.com/amgaina/CoreCutter/internal/server"
	"github.com/amgaina/CoreCutter/internal/telemetry"
)

func newServeCommand() *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the optimizer over HTTP.

Endpoints:
  POST /api/v1/optimize   compute a cutting plan
  POST /api/v1/compare    compare what-if scenarios
  POST /api/v1/estimate   purchase estimate
  GET  /api/v1/solvers    registered solver backends
  GET  /healthz           liveness
  GET  /metrics           Prometheus metrics (when enabled)`,
		Example: `  corecutter serve --port 8080
  CORECUTTER_ENGINE_SOLVER=exhaustive corecutter serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				e.cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				e.cfg.Server.Port = port
			}

			srv, err := server.New(e.cfg, e.logger, telemetry.NewMetrics(e.cfg.Metrics))
			if err != nil {
				return err
			}
			return srv.Listen(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides server.host)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}
