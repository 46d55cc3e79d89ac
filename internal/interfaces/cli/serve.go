package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/predictpesa/predictpesa-api/internal/config"
	"github.com/predictpesa/predictpesa-api/internal/infrastructure/monitoring/logging"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  "Start the PredictPesa HTTP API and serve until SIGINT or SIGTERM, then drain in-flight requests.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			cfg := cliCtx.Config
			if port > 0 {
				cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := NewApp(ctx, cfg, cliCtx.Logger)
			if err != nil {
				return err
			}
			defer app.Close()

			if cliCtx.ConfigPath != "" {
				watchConfig(cliCtx.ConfigPath, cliCtx.Logger)
			}
			return app.Run(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides server.port)")
	return cmd
}

// watchConfig reports edits to the config file.  Settings are read once at
// startup, so a valid edit is logged as pending a restart.
func watchConfig(path string, log logging.Logger) {
	err := config.Watch(path,
		func(cfg *config.Config) {
			log.Warn("Configuration file changed, restart to apply",
				logging.String("path", path),
				logging.String("environment", cfg.Server.Environment),
			)
		},
		func(err error) {
			log.Error("Configuration file changed but is invalid", logging.String("path", path), logging.Err(err))
		},
	)
	if err != nil {
		log.Warn("Configuration watch disabled", logging.String("path", path), logging.Err(err))
	}
}

// backgroundIfNil guards commands executed without ExecuteContext.
func backgroundIfNil(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
