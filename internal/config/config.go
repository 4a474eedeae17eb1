package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type Config struct {
	DataDir       string              `mapstructure:"data_dir"`
	Skill         SkillConfig         `mapstructure:"skill"`
	Server        ServerConfig        `mapstructure:"server"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Audit         BackendConfig       `mapstructure:"audit"`
}

type SkillConfig struct {
	ID        string `mapstructure:"id"`
	UserAgent string `mapstructure:"user_agent"`
	Reflector bool   `mapstructure:"reflector"`
	// Routes are alias routes tried before the built-in handlers.
	Routes []RouteConfig `mapstructure:"routes"`
}

// RouteConfig binds a CEL predicate to a built-in handler.
type RouteConfig struct {
	Name    string `mapstructure:"name"`
	Handler string `mapstructure:"handler"`
	Match   string `mapstructure:"match"`
}

type ServerConfig struct {
	HTTPAddr       string        `mapstructure:"http_addr"`
	GRPCAddr       string        `mapstructure:"grpc_addr"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
	MaxRecvMsgSize int           `mapstructure:"max_recv_msg_size"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	LogFormat      string `mapstructure:"log_format"`
	MetricsAddr    string `mapstructure:"metrics_addr"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPProtocol   string `mapstructure:"otlp_protocol"`
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
}

type BackendConfig struct {
	Backend string            `mapstructure:"backend"`
	Config  map[string]string `mapstructure:"config"`
}

// Validate checks values that cannot be caught by decoding.
func (c Config) Validate() error {
	for i, r := range c.Skill.Routes {
		if r.Handler == "" {
			return fmt.Errorf("skill.routes[%d]: handler is required", i)
		}
		if strings.TrimSpace(r.Match) == "" {
			return fmt.Errorf("skill.routes[%d]: match is required", i)
		}
	}
	switch strings.ToLower(c.Observability.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("observability.log_level: unknown level %q", c.Observability.LogLevel)
	}
	switch strings.ToLower(c.Observability.LogFormat) {
	case "json", "text":
	default:
		return fmt.Errorf("observability.log_format: unknown format %q", c.Observability.LogFormat)
	}
	if c.Server.HTTPAddr == "" && c.Server.GRPCAddr == "" {
		return fmt.Errorf("server: at least one of http_addr and grpc_addr is required")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", DefaultDataDir())

	v.SetDefault("skill.id", "")
	v.SetDefault("skill.user_agent", Defaults.UserAgent)
	v.SetDefault("skill.reflector", true)

	v.SetDefault("server.http_addr", Defaults.HTTPAddr)
	v.SetDefault("server.grpc_addr", Defaults.GRPCAddr)
	v.SetDefault("server.read_timeout", Defaults.ReadTimeout)
	v.SetDefault("server.write_timeout", Defaults.WriteTimeout)
	v.SetDefault("server.max_body_bytes", Defaults.MaxBodyBytes)
	v.SetDefault("server.max_recv_msg_size", Defaults.MaxRecvMsgSize)
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("observability.log_level", Defaults.LogLevel)
	v.SetDefault("observability.log_format", Defaults.LogFormat)
	v.SetDefault("observability.metrics_addr", Defaults.MetricsAddr)
	v.SetDefault("observability.otlp_endpoint", "")
	v.SetDefault("observability.otlp_protocol", Defaults.OTLPProtocol)
	v.SetDefault("observability.service_name", Defaults.ServiceName)
	v.SetDefault("observability.service_version", Defaults.ServiceVersion)

	v.SetDefault("audit.backend", Defaults.AuditBackend)
}

// BindCommonFlags binds the persistent flags shared by every command.
func BindCommonFlags(cmd *cobra.Command, v *viper.Viper) {
	f := cmd.PersistentFlags()

	f.String("config", "", "config file path")
	f.String("data-dir", "", "data directory (default ~/.arc/skill)")
	f.String("log-level", "", "log level (debug, info, warn, error)")
	f.String("log-format", "", "log format (json, text)")
	f.String("skill-id", "", "reject envelopes addressed to another skill id")

	_ = v.BindPFlag("data_dir", f.Lookup("data-dir"))
	_ = v.BindPFlag("observability.log_level", f.Lookup("log-level"))
	_ = v.BindPFlag("observability.log_format", f.Lookup("log-format"))
	_ = v.BindPFlag("skill.id", f.Lookup("skill-id"))
}

// BindServeFlags binds flags for the serve command.
func BindServeFlags(cmd *cobra.Command, v *viper.Viper) {
	f := cmd.Flags()

	f.String("http-addr", "", "HTTP and websocket listen address (empty disables)")
	f.String("grpc-addr", "", "gRPC listen address (empty disables)")
	f.String("metrics-addr", "", "metrics HTTP listen address")
	f.String("audit", "", "audit backend (none, memory, sqlite, badger, redis, s3)")
	f.StringSlice("allowed-origin", nil, "websocket origins to accept (repeatable)")

	_ = v.BindPFlag("server.http_addr", f.Lookup("http-addr"))
	_ = v.BindPFlag("server.grpc_addr", f.Lookup("grpc-addr"))
	_ = v.BindPFlag("observability.metrics_addr", f.Lookup("metrics-addr"))
	_ = v.BindPFlag("audit.backend", f.Lookup("audit"))
	_ = v.BindPFlag("server.allowed_origins", f.Lookup("allowed-origin"))
}
