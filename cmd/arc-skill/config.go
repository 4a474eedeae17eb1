package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gezibash/arc-skill/internal/auditlog"
	"github.com/gezibash/arc-skill/internal/cli"
	"github.com/gezibash/arc-skill/internal/config"
)

func newConfigCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Show the configuration after merging defaults, the config file,
ARC_SKILL_* environment variables and flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}
			out := cli.NewOutput(cli.ParseFormat(v.GetString("output")), cmd.OutOrStdout())
			return renderConfig(out, cfg, v.ConfigFileUsed())
		},
	}
}

func renderConfig(out *cli.Output, cfg config.Config, file string) error {
	if file == "" {
		file = "(none)"
	}
	skillID := cfg.Skill.ID
	if skillID == "" {
		skillID = "(any)"
	}
	backend := cfg.Audit.Backend
	if backend == "" {
		backend = auditlog.Disabled
	}

	kv := out.KV("config").
		Set("Config File", file).
		Set("Data Dir", cfg.DataDir).
		Set("Skill ID", skillID).
		Set("Routes", len(cfg.Skill.Routes)).
		Set("HTTP", orDash(cfg.Server.HTTPAddr)).
		Set("gRPC", orDash(cfg.Server.GRPCAddr)).
		Set("Metrics", orDash(cfg.Observability.MetricsAddr)).
		Set("OTLP", orDash(cfg.Observability.OTLPEndpoint)).
		Set("Log Level", cfg.Observability.LogLevel).
		Set("Log Format", cfg.Observability.LogFormat).
		Set("Audit Backend", backend)
	if len(cfg.Server.AllowedOrigins) > 0 {
		kv.Set("Allowed Origins", strings.Join(cfg.Server.AllowedOrigins, ", "))
	}
	return kv.Render()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
