package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pngme.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ChunkType != DefaultConfig().ChunkType {
		t.Fatalf("unexpected chunk type: %q", cfg.ChunkType)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pngme.toml")
	if err := WriteTemplate(path, false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ChunkType != "ruSt" {
		t.Fatalf("unexpected chunk type: %q", cfg.ChunkType)
	}
	if cfg.Server.Addr != ":9400" {
		t.Fatalf("unexpected addr: %q", cfg.Server.Addr)
	}
	if len(cfg.Server.CorsOrigins) != 1 || cfg.Server.CorsOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected cors origins: %+v", cfg.Server.CorsOrigins)
	}
	if cfg.MaxInputBytes != 64<<20 {
		t.Fatalf("unexpected max input: %d", cfg.MaxInputBytes)
	}
	if err := WriteTemplate(path, false); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	if err := WriteTemplate(path, true); err != nil {
		t.Fatalf("overwrite template: %v", err)
	}
}

func TestLoadOverridesOnlyDefinedKeys(t *testing.T) {
	path := writeConfig(t, `
chunk_type = "hiDe"
compress = true

[server]
cors_origins = [" http://a ", ""]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ChunkType != "hiDe" || !cfg.Compress {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
	if cfg.Server.Addr != DefaultConfig().Server.Addr {
		t.Fatalf("addr should keep default, got %q", cfg.Server.Addr)
	}
	if len(cfg.Server.CorsOrigins) != 1 || cfg.Server.CorsOrigins[0] != "http://a" {
		t.Fatalf("unexpected cors origins: %+v", cfg.Server.CorsOrigins)
	}
	if cfg.PassphraseEnv != "PNGME_PASSPHRASE" {
		t.Fatalf("unexpected passphrase env: %q", cfg.PassphraseEnv)
	}
	if cfg.LogLevelSet {
		t.Fatalf("log level was not in the file")
	}
}

func TestLoadLogLevel(t *testing.T) {
	cfg, err := Load(writeConfig(t, "[log]\nlevel = \"debug\"\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" || !cfg.LogLevelSet {
		t.Fatalf("unexpected log level: %q set=%v", cfg.LogLevel, cfg.LogLevelSet)
	}
	for _, level := range []string{"verbose", ""} {
		path := writeConfig(t, "[log]\nlevel = \""+level+"\"\n")
		if _, err := Load(path); err == nil {
			t.Fatalf("expected error for log level %q", level)
		}
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `chunk_typ = "ruSt"`)
	_, err := Load(path)
	if !errors.Is(err, ErrUnknownKeys) {
		t.Fatalf("expected ErrUnknownKeys, got %v", err)
	}
}

func TestLoadRejectsBadChunkType(t *testing.T) {
	for _, ct := range []string{"ru1t", "Rust", "toolong"} {
		path := writeConfig(t, `chunk_type = "`+ct+`"`)
		if _, err := Load(path); err == nil {
			t.Fatalf("expected error for chunk_type %q", ct)
		}
	}
}

func TestLoadRejectsNonPositiveSizes(t *testing.T) {
	path := writeConfig(t, `
[server]
max_body_bytes = 0
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoadTrustedProxies(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[server]
trusted_proxies = ["10.0.0.0/8", " 192.168.1.1 ", ""]
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Server.TrustedProxies) != 2 || cfg.Server.TrustedProxies[1] != "192.168.1.1" {
		t.Fatalf("unexpected trusted proxies: %+v", cfg.Server.TrustedProxies)
	}
	path := writeConfig(t, `
[server]
trusted_proxies = ["proxy.local"]
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for hostname proxy")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected load error")
	}
}

func TestResolvePathAndPassphrase(t *testing.T) {
	t.Setenv(EnvConfigPath, "/etc/pngme.toml")
	if got := ResolvePath(""); got != "/etc/pngme.toml" {
		t.Fatalf("unexpected env path: %q", got)
	}
	if got := ResolvePath(" local.toml "); got != "local.toml" {
		t.Fatalf("unexpected flag path: %q", got)
	}

	t.Setenv("PNGME_TEST_SECRET", "hunter2")
	cfg := DefaultConfig()
	cfg.PassphraseEnv = "PNGME_TEST_SECRET"
	if cfg.Passphrase() != "hunter2" {
		t.Fatalf("unexpected passphrase")
	}
	cfg.PassphraseEnv = ""
	if cfg.Passphrase() != "" {
		t.Fatalf("expected empty passphrase")
	}
}
