package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/joacominatel/auditcoe/internal/server"
	"github.com/joacominatel/auditcoe/internal/util"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	HostPort string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API.

Configuration is read from the config file and the environment
(DATABASE_URL, APP_ORIGIN, HOST_PORT, LOG_LEVEL, LOG_FORMAT).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.HostPort, "listen", "", "listen address, overrides host_port")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if opts.HostPort != "" {
		cfg.HostPort = opts.HostPort
	}

	log := util.NewLogger(cfg.LogFormat == "json", cfg.LogLevel)
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := openService(ctx, cfg, log)
	if err != nil {
		log.Error("database connection failed", zap.Error(err))
		return err
	}
	defer svc.Disconnect() //nolint:errcheck

	srv := server.New(svc, log, server.Options{
		AllowedOrigins: cfg.Origins(),
		Compress:       cfg.HTTPCompress,
	})
	return srv.Run(ctx, cfg.HostPort)
}
