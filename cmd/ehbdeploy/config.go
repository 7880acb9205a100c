package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/artpar/ehbdeploy/internal/engine"
	"github.com/artpar/ehbdeploy/internal/shell/etcd"
	"github.com/artpar/ehbdeploy/internal/shell/remote"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all application configuration.
type Config struct {
	HostsFile string        `mapstructure:"hosts_file"`
	Log       LogConfig     `mapstructure:"log"`
	Service   ServiceConfig `mapstructure:"service"`
	SSH       SSHConfig     `mapstructure:"ssh"`
	Etcd      EtcdConfig    `mapstructure:"etcd"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServiceConfig describes the deployed service.
type ServiceConfig struct {
	Name         string `mapstructure:"name"`
	Port         int    `mapstructure:"port"`
	ConfigPrefix string `mapstructure:"config_prefix"`
}

// SSHConfig holds remote shell configuration.
type SSHConfig struct {
	User                  string        `mapstructure:"user"`
	IdentityFile          string        `mapstructure:"identity_file"`
	KnownHosts            string        `mapstructure:"known_hosts"`
	UseAgent              bool          `mapstructure:"use_agent"`
	Password              string        `mapstructure:"password"`
	InsecureIgnoreHostKey bool          `mapstructure:"insecure_ignore_host_key"`
	ConnectTimeout        time.Duration `mapstructure:"connect_timeout"`
	CommandTimeout        time.Duration `mapstructure:"command_timeout"`
}

// EtcdConfig holds configuration store settings. The store host itself is a
// per-host setting (etcd_host).
type EtcdConfig struct {
	Port     int           `mapstructure:"port"`
	Protocol string        `mapstructure:"protocol"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Pipeline returns the engine settings of the service.
func (c ServiceConfig) Pipeline() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.ServiceName = c.Name
	cfg.ServicePort = c.Port
	cfg.ConfigPrefix = c.ConfigPrefix
	return cfg
}

// Remote returns the SSH executor settings.
func (c SSHConfig) Remote(logger *slog.Logger) remote.SSHConfig {
	return remote.SSHConfig{
		User:                  c.User,
		Port:                  remote.DefaultSSHPort,
		IdentityFile:          c.IdentityFile,
		UseAgent:              c.UseAgent,
		Password:              c.Password,
		KnownHostsFile:        c.KnownHosts,
		InsecureIgnoreHostKey: c.InsecureIgnoreHostKey,
		ConnectTimeout:        c.ConnectTimeout,
		CommandTimeout:        c.CommandTimeout,
		Logger:                logger,
	}
}

// Store returns the store client settings for host.
func (c EtcdConfig) Store(host string) etcd.Config {
	return etcd.Config{
		Host:     host,
		Port:     c.Port,
		Protocol: c.Protocol,
		Timeout:  c.Timeout,
	}
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("hosts_file", ".fabhosts")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("service.name", "ehb-service")
	v.SetDefault("service.port", 8000)
	v.SetDefault("service.config_prefix", "/ehb-service/config")
	v.SetDefault("ssh.user", "")
	v.SetDefault("ssh.identity_file", "")
	v.SetDefault("ssh.known_hosts", "~/.ssh/known_hosts")
	v.SetDefault("ssh.use_agent", true)
	v.SetDefault("ssh.password", "")
	v.SetDefault("ssh.insecure_ignore_host_key", false)
	v.SetDefault("ssh.connect_timeout", "10s")
	v.SetDefault("ssh.command_timeout", "0s") // no limit; builds can take long
	v.SetDefault("etcd.port", etcd.DefaultPort)
	v.SetDefault("etcd.protocol", etcd.DefaultProtocol)
	v.SetDefault("etcd.timeout", "10s")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("EHBDEPLOY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
// Logs go to w so stdout stays free for command output.
func SetupLogger(cfg *Config, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}
