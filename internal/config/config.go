package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/pngme/internal/logging"
	"github.com/danmuck/pngme/internal/png"
)

const EnvConfigPath = "PNGME_CONFIG"

var ErrUnknownKeys = errors.New("config: unknown keys")

// Config drives the CLI and the HTTP server. Keys absent from a file keep
// their defaults. LogLevelSet records whether the file defined [log] level.
type Config struct {
	ChunkType     string
	Compress      bool
	PassphraseEnv string
	MaxInputBytes int64
	LogLevel      string
	LogLevelSet   bool
	Server        ServerConfig
}

type ServerConfig struct {
	Addr           string
	CorsOrigins    []string
	TrustedProxies []string
	MaxBodyBytes   int64
}

type fileConfig struct {
	ChunkType     string     `toml:"chunk_type"`
	Compress      bool       `toml:"compress"`
	PassphraseEnv string     `toml:"passphrase_env"`
	MaxInputBytes int64      `toml:"max_input_bytes"`
	Server        fileServer `toml:"server"`
	Log           fileLog    `toml:"log"`
}

type fileServer struct {
	Addr           string   `toml:"addr"`
	CorsOrigins    []string `toml:"cors_origins"`
	TrustedProxies []string `toml:"trusted_proxies"`
	MaxBodyBytes   int64    `toml:"max_body_bytes"`
}

type fileLog struct {
	Level string `toml:"level"`
}

func DefaultConfig() Config {
	return Config{
		ChunkType:     "ruSt",
		PassphraseEnv: "PNGME_PASSPHRASE",
		MaxInputBytes: 64 << 20,
		LogLevel:      "info",
		Server: ServerConfig{
			Addr:           ":9400",
			CorsOrigins:    []string{},
			TrustedProxies: []string{"127.0.0.1", "::1"},
			MaxBodyBytes:   16 << 20,
		},
	}
}

// ResolvePath picks the explicit flag value, then $PNGME_CONFIG, then none.
func ResolvePath(flagValue string) string {
	if p := strings.TrimSpace(flagValue); p != "" {
		return p
	}
	return strings.TrimSpace(os.Getenv(EnvConfigPath))
}

// Load returns defaults when path is empty.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("%w (%s): %s", ErrUnknownKeys, path, strings.Join(keys, ", "))
	}

	if meta.IsDefined("chunk_type") {
		cfg.ChunkType = strings.TrimSpace(raw.ChunkType)
	}
	if meta.IsDefined("compress") {
		cfg.Compress = raw.Compress
	}
	if meta.IsDefined("passphrase_env") {
		cfg.PassphraseEnv = strings.TrimSpace(raw.PassphraseEnv)
	}
	if meta.IsDefined("max_input_bytes") {
		cfg.MaxInputBytes = raw.MaxInputBytes
	}
	if meta.IsDefined("server", "addr") {
		cfg.Server.Addr = strings.TrimSpace(raw.Server.Addr)
	}
	if meta.IsDefined("server", "cors_origins") {
		cfg.Server.CorsOrigins = normalizeList(raw.Server.CorsOrigins)
	}
	if meta.IsDefined("server", "trusted_proxies") {
		cfg.Server.TrustedProxies = normalizeList(raw.Server.TrustedProxies)
	}
	if meta.IsDefined("server", "max_body_bytes") {
		cfg.Server.MaxBodyBytes = raw.Server.MaxBodyBytes
	}
	if meta.IsDefined("log", "level") {
		cfg.LogLevel = strings.TrimSpace(raw.Log.Level)
		cfg.LogLevelSet = true
	}

	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	ct, err := png.ParseChunkType(cfg.ChunkType)
	if err != nil {
		return fmt.Errorf("chunk_type: %w", err)
	}
	if !ct.IsValid() {
		return fmt.Errorf("chunk_type %q has the reserved bit set", cfg.ChunkType)
	}
	if _, ok := logging.ParseLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("log.level %q is not a known level", cfg.LogLevel)
	}
	if cfg.MaxInputBytes <= 0 {
		return fmt.Errorf("max_input_bytes must be positive")
	}
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return fmt.Errorf("server.addr is required")
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive")
	}
	for _, p := range cfg.Server.TrustedProxies {
		if net.ParseIP(p) != nil {
			continue
		}
		if _, _, err := net.ParseCIDR(p); err != nil {
			return fmt.Errorf("server.trusted_proxies: %q is not an IP or CIDR", p)
		}
	}
	return nil
}

// Passphrase reads the passphrase from the configured environment variable.
func (c Config) Passphrase() string {
	if c.PassphraseEnv == "" {
		return ""
	}
	return os.Getenv(c.PassphraseEnv)
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, o := range in {
		v := strings.TrimSpace(o)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
