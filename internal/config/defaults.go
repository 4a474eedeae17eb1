// Package config loads arc-skill configuration from flags, environment,
// a .env file and an HCL config file.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "ARC_SKILL"

// Defaults contains default values for the skill server.
var Defaults = struct {
	LogLevel       string
	LogFormat      string
	HTTPAddr       string
	GRPCAddr       string
	MetricsAddr    string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxBodyBytes   int64
	MaxRecvMsgSize int
	OTLPProtocol   string
	ServiceName    string
	ServiceVersion string
	AuditBackend   string
	UserAgent      string
}{
	LogLevel:       "info",
	LogFormat:      "text",
	HTTPAddr:       ":8080",
	GRPCAddr:       ":50051",
	MetricsAddr:    ":9090",
	ReadTimeout:    10 * time.Second,
	WriteTimeout:   10 * time.Second,
	MaxBodyBytes:   1 << 20, // 1MB
	MaxRecvMsgSize: 1 << 20,
	OTLPProtocol:   "http",
	ServiceName:    "arc-skill",
	ServiceVersion: "dev",
	AuditBackend:   "none",
	UserAgent:      "arc-skill",
}

// DefaultDataDir returns the default data directory (~/.arc/skill).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".arc", "skill")
	}
	return filepath.Join(home, ".arc", "skill")
}
