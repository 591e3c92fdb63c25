package cli

import (
	"context"
	"fmt"

	"github.com/joacominatel/auditcoe/internal/app"
	"github.com/joacominatel/auditcoe/internal/config"
	"github.com/joacominatel/auditcoe/internal/database/postgres"
	"go.uber.org/zap"
)

// openService builds the application service from cfg. Without a database
// URL the service runs unconfigured and every database-backed call reports
// configuration_error.
func openService(ctx context.Context, cfg *config.Config, log *zap.Logger) (*app.Service, error) {
	opts := []app.Option{app.WithSchema(cfg.Database.Schema), app.WithLogger(log)}

	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL is not set; database-backed endpoints will return configuration_error")
		return app.NewService(nil, opts...), nil
	}

	dsn, err := config.ResolvePassword(cfg.DatabaseURL, cfg.Database.KeyringService)
	if err != nil {
		return nil, err
	}
	dsn = config.EnsureSSLMode(dsn)

	driver := postgres.New(postgres.WithPoolSize(int(cfg.Database.MaxConns), int(cfg.Database.MinConns)))
	svc := app.NewService(driver, opts...)
	if err := svc.Connect(ctx, dsn); err != nil {
		return nil, err
	}

	target := "database"
	if conn, err := config.ParseDSN(dsn); err == nil {
		target = conn.DisplayString()
	}
	log.Info("connected", zap.String("target", target), zap.String("database", svc.DatabaseName()))

	return svc, nil
}

func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
