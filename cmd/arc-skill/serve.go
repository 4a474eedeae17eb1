package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gezibash/arc-skill/internal/cli"
	"github.com/gezibash/arc-skill/internal/config"
	"github.com/gezibash/arc-skill/internal/interceptor"
	"github.com/gezibash/arc-skill/internal/observability"
	"github.com/gezibash/arc-skill/internal/server"
	"github.com/gezibash/arc-skill/pkg/logging"
	"github.com/gezibash/arc-skill/pkg/runtime"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the skill",
		Long: `Serve the skill over HTTP (POST /skill), websocket (GET /ws) and gRPC
(arc.skill.v1.SkillService/Invoke), with Prometheus metrics on a separate
listener.

Examples:
  arc-skill serve                              # default ports
  arc-skill serve --grpc-addr ""               # HTTP only
  arc-skill serve --audit sqlite               # audit to {data_dir}/audit/audit.db
  arc-skill serve --log-level debug            # log envelopes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), v, cfg)
		},
	}
	config.BindServeFlags(cmd, v)
	return cmd
}

func serve(parent context.Context, v *viper.Viper, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	obs, err := observability.New(parent, observability.ObsConfig{
		LogLevel:       cfg.Observability.LogLevel,
		LogFormat:      cfg.Observability.LogFormat,
		OTLPEndpoint:   cfg.Observability.OTLPEndpoint,
		OTLPProtocol:   cfg.Observability.OTLPProtocol,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
	}, os.Stderr)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	log := logging.New(obs.Logger)
	rt, err := runtime.Compose("serve",
		runtime.WithDataDir(cfg.DataDir),
		runtime.WithLogger(log),
		runtime.WithExtension(cli.WithAudit(cfg.Audit, obs.Metrics)),
	)
	if err != nil {
		_ = obs.Close(context.Background())
		return fmt.Errorf("create runtime: %w", err)
	}
	defer func() { _ = rt.Close() }()
	rt.OnClose(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return obs.Close(ctx)
	})

	sk, err := buildSkill(cfg.Skill, log,
		interceptor.Logging(log),
		interceptor.Metrics(obs.Metrics),
		interceptor.Tracing(),
		interceptor.Audit(cli.Audit(rt), log),
	)
	if err != nil {
		return err
	}

	if cfg.Observability.MetricsAddr != "" {
		obs.ServeMetrics(rt.Context(), cfg.Observability.MetricsAddr)
	}

	srv, err := server.New(server.Config{
		HTTPAddr:       cfg.Server.HTTPAddr,
		GRPCAddr:       cfg.Server.GRPCAddr,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		MaxRecvMsgSize: cfg.Server.MaxRecvMsgSize,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, sk, obs)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	if config.Watch(v, func(next config.Config, err error) {
		if err != nil {
			obs.Logger.Warn("config reload failed", "error", err)
			return
		}
		obs.SetLogLevel(next.Observability.LogLevel)
	}) {
		obs.Logger.Info("watching config file", "path", v.ConfigFileUsed())
	}

	obs.Logger.Info("skill ready",
		"http", srv.HTTPAddr(),
		"grpc", srv.GRPCAddr(),
		"audit", cfg.Audit.Backend,
		"skill_id", cfg.Skill.ID,
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve() }()

	select {
	case <-rt.Context().Done():
		obs.Logger.Info("shutting down")
		return nil
	case <-parent.Done():
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	}
}
