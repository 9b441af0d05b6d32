package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/gobwas/wsd/server"
)

// LogLevel defines the minimum severity of emitted log records.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogFormat defines how log records are rendered.
type LogFormat string

const (
	LogFormatJSON    LogFormat = "json"
	LogFormatConsole LogFormat = "console"
)

// Special log targets.
const (
	TargetStdout = "stdout"
	TargetStderr = "stderr"
)

// Config is the top-level configuration structure for the server.
type Config struct {
	Server  ServerConfig  `json:"server" toml:"server" yaml:"server"`
	Logging LoggingConfig `json:"logging" toml:"logging" yaml:"logging"`
}

// ServerConfig holds listener and session settings.
type ServerConfig struct {
	Host             string `json:"host,omitempty" toml:"host,omitempty" yaml:"host,omitempty"`
	Port             int    `json:"port,omitempty" toml:"port,omitempty" yaml:"port,omitempty"`
	MaxClients       int    `json:"max_clients,omitempty" toml:"max_clients,omitempty" yaml:"max_clients,omitempty"`
	CloseTimeout     string `json:"close_timeout,omitempty" toml:"close_timeout,omitempty" yaml:"close_timeout,omitempty"`             // e.g., "5s"
	HandshakeTimeout string `json:"handshake_timeout,omitempty" toml:"handshake_timeout,omitempty" yaml:"handshake_timeout,omitempty"` // e.g., "10s"
	ShutdownTimeout  string `json:"shutdown_timeout,omitempty" toml:"shutdown_timeout,omitempty" yaml:"shutdown_timeout,omitempty"`    // e.g., "10s"
	ReadChunkSize    int    `json:"read_chunk_size,omitempty" toml:"read_chunk_size,omitempty" yaml:"read_chunk_size,omitempty"`
	MaxHeaderSize    int    `json:"max_header_size,omitempty" toml:"max_header_size,omitempty" yaml:"max_header_size,omitempty"`
	MaxMessageSize   int64  `json:"max_message_size,omitempty" toml:"max_message_size,omitempty" yaml:"max_message_size,omitempty"`
	FragmentSize     int    `json:"fragment_size,omitempty" toml:"fragment_size,omitempty" yaml:"fragment_size,omitempty"`
}

// LoggingConfig holds logging settings. Rotation settings only apply when
// Target is a file path.
type LoggingConfig struct {
	Level      LogLevel  `json:"level,omitempty" toml:"level,omitempty" yaml:"level,omitempty"`
	Format     LogFormat `json:"format,omitempty" toml:"format,omitempty" yaml:"format,omitempty"`
	Target     string    `json:"target,omitempty" toml:"target,omitempty" yaml:"target,omitempty"`
	MaxSizeMB  int       `json:"max_size_mb,omitempty" toml:"max_size_mb,omitempty" yaml:"max_size_mb,omitempty"`
	MaxBackups int       `json:"max_backups,omitempty" toml:"max_backups,omitempty" yaml:"max_backups,omitempty"`
	MaxAgeDays int       `json:"max_age_days,omitempty" toml:"max_age_days,omitempty" yaml:"max_age_days,omitempty"`
	Compress   bool      `json:"compress,omitempty" toml:"compress,omitempty" yaml:"compress,omitempty"`
}

// Default values.
const (
	DefaultHost             = "127.0.0.1"
	DefaultPort             = 4000
	DefaultMaxClients       = 64
	DefaultCloseTimeout     = "5s"
	DefaultHandshakeTimeout = "10s"
	DefaultShutdownTimeout  = "10s"
	DefaultReadChunkSize    = 4096
	DefaultMaxHeaderSize    = 8192
	DefaultMaxMessageSize   = 32 << 20
	DefaultLogLevel         = LogLevelInfo
	DefaultLogFormat        = LogFormatJSON
	DefaultLogTarget        = TargetStderr
	DefaultLogMaxSizeMB     = 100
)

// Default returns configuration with every field set to its default.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// LoadConfig reads configuration from path. The format is chosen by file
// extension: .toml, .yaml, .yml or .json. Files with another extension are
// tried as JSON, then TOML. Defaults are applied and the result is
// validated.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("configuration file path cannot be empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration file %q: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("configuration file %q is empty", path)
	}

	cfg := &Config{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = decodeTOML(data, cfg)
	case ".yaml", ".yml":
		err = decodeYAML(data, cfg)
	case ".json":
		err = decodeJSON(data, cfg)
	default:
		if jerr := decodeJSON(data, cfg); jerr != nil {
			cfg = &Config{}
			if terr := decodeTOML(data, cfg); terr != nil {
				err = fmt.Errorf("unknown format (json: %v; toml: %v)", jerr, terr)
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("parsing configuration file %q: %w", path, err)
	}

	ApplyDefaults(cfg)
	if err = Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration in %q: %w", path, err)
	}
	return cfg, nil
}

func decodeJSON(data []byte, cfg *Config) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(cfg)
}

func decodeTOML(data []byte, cfg *Config) error {
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown keys: %v", undecoded)
	}
	return nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

// ApplyDefaults fills zero fields of cfg with default values.
func ApplyDefaults(cfg *Config) {
	s := &cfg.Server
	if s.Host == "" {
		s.Host = DefaultHost
	}
	if s.Port == 0 {
		s.Port = DefaultPort
	}
	if s.MaxClients == 0 {
		s.MaxClients = DefaultMaxClients
	}
	if s.CloseTimeout == "" {
		s.CloseTimeout = DefaultCloseTimeout
	}
	if s.HandshakeTimeout == "" {
		s.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if s.ShutdownTimeout == "" {
		s.ShutdownTimeout = DefaultShutdownTimeout
	}
	if s.ReadChunkSize == 0 {
		s.ReadChunkSize = DefaultReadChunkSize
	}
	if s.MaxHeaderSize == 0 {
		s.MaxHeaderSize = DefaultMaxHeaderSize
	}
	if s.MaxMessageSize == 0 {
		s.MaxMessageSize = DefaultMaxMessageSize
	}

	l := &cfg.Logging
	if l.Level == "" {
		l.Level = DefaultLogLevel
	}
	if l.Format == "" {
		l.Format = DefaultLogFormat
	}
	if l.Target == "" {
		l.Target = DefaultLogTarget
	}
	if l.MaxSizeMB == 0 {
		l.MaxSizeMB = DefaultLogMaxSizeMB
	}
}

// Validate checks cfg for values the server cannot run with.
func Validate(cfg *Config) error {
	s := cfg.Server
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", s.Port)
	}
	if s.MaxClients < 1 {
		return fmt.Errorf("server.max_clients must be positive, got %d", s.MaxClients)
	}
	for name, v := range map[string]string{
		"server.close_timeout":     s.CloseTimeout,
		"server.handshake_timeout": s.HandshakeTimeout,
		"server.shutdown_timeout":  s.ShutdownTimeout,
	} {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, v)
		}
	}
	if s.ReadChunkSize < 1 {
		return fmt.Errorf("server.read_chunk_size must be positive, got %d", s.ReadChunkSize)
	}
	if s.MaxHeaderSize < 1 {
		return fmt.Errorf("server.max_header_size must be positive, got %d", s.MaxHeaderSize)
	}
	if s.MaxMessageSize < 1 {
		return fmt.Errorf("server.max_message_size must be positive, got %d", s.MaxMessageSize)
	}
	if s.FragmentSize < 0 {
		return fmt.Errorf("server.fragment_size must not be negative, got %d", s.FragmentSize)
	}

	l := cfg.Logging
	switch l.Level {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", l.Level)
	}
	switch l.Format {
	case LogFormatJSON, LogFormatConsole:
	default:
		return fmt.Errorf("logging.format %q is not one of json, console", l.Format)
	}
	if t := l.Target; t != TargetStdout && t != TargetStderr && !filepath.IsAbs(t) {
		return fmt.Errorf("logging.target %q must be stdout, stderr or an absolute path", t)
	}
	return nil
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Session converts s into server.Config. It expects s to be validated.
func (s ServerConfig) Session() server.Config {
	return server.Config{
		MaxClients:       s.MaxClients,
		CloseTimeout:     mustDuration(s.CloseTimeout),
		HandshakeTimeout: mustDuration(s.HandshakeTimeout),
		ShutdownTimeout:  mustDuration(s.ShutdownTimeout),
		ReadChunkSize:    s.ReadChunkSize,
		MaxHeaderSize:    s.MaxHeaderSize,
		MaxMessageSize:   s.MaxMessageSize,
		FragmentSize:     s.FragmentSize,
	}
}

func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		panic(fmt.Sprintf("config: invalid duration %q: %v", s, err))
	}
	return d
}
