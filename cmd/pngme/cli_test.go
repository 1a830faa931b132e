package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/pngme/internal/png"
	"github.com/rs/zerolog"
)

func writeSample(t *testing.T) string {
	t.Helper()
	p := png.New()
	p.AppendChunk(png.NewChunk(png.MustChunkType("IHDR"), []byte{0, 0, 0, 1, 0, 0, 0, 1, 8, 6, 0, 0, 0}))
	p.AppendChunk(png.NewChunk(png.MustChunkType("IEND"), nil))
	path := filepath.Join(t.TempDir(), "dice.png")
	if err := os.WriteFile(path, p.Bytes(), 0o644); err != nil {
		t.Fatalf("write sample: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	t.Setenv("PNGME_CONFIG", "")
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestEncodeDecodeRemovePrint(t *testing.T) {
	path := writeSample(t)

	code, out, errOut := runCLI(t, "encode", path, "ruSt", "This is a secret message!")
	if code != 0 {
		t.Fatalf("encode exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "chunk ruSt") {
		t.Fatalf("unexpected encode output: %q", out)
	}

	code, out, errOut = runCLI(t, "decode", path, "ruSt")
	if code != 0 {
		t.Fatalf("decode exit %d: %s", code, errOut)
	}
	if strings.TrimSpace(out) != "This is a secret message!" {
		t.Fatalf("unexpected decode output: %q", out)
	}

	code, out, _ = runCLI(t, "print", path)
	if code != 0 || !strings.Contains(out, "ruSt") || !strings.Contains(out, "3 chunks") {
		t.Fatalf("unexpected print exit=%d output: %q", code, out)
	}

	code, _, errOut = runCLI(t, "remove", path, "ruSt")
	if code != 0 {
		t.Fatalf("remove exit %d: %s", code, errOut)
	}

	code, out, _ = runCLI(t, "decode", path, "ruSt")
	if code != 0 || !strings.Contains(out, "no ruSt chunk") {
		t.Fatalf("expected not-found message, exit=%d output=%q", code, out)
	}

	code, _, errOut = runCLI(t, "remove", path, "ruSt")
	if code != 1 || !strings.Contains(errOut, "chunk not found") {
		t.Fatalf("expected remove failure, exit=%d stderr=%q", code, errOut)
	}
}

func TestEncodeWithOutLeavesInput(t *testing.T) {
	path := writeSample(t)
	before, _ := os.ReadFile(path)
	out := filepath.Join(filepath.Dir(path), "out.png")

	code, _, errOut := runCLI(t, "encode", "-out", out, "-compress", path, "hello")
	if code != 0 {
		t.Fatalf("encode exit %d: %s", code, errOut)
	}
	after, _ := os.ReadFile(path)
	if !bytes.Equal(before, after) {
		t.Fatalf("input modified despite -out")
	}

	code, stdout, errOut := runCLI(t, "decode", out)
	if code != 0 || strings.TrimSpace(stdout) != "hello" {
		t.Fatalf("decode default type exit=%d out=%q err=%q", code, stdout, errOut)
	}
}

func TestConfigFileSuppliesChunkType(t *testing.T) {
	path := writeSample(t)
	cfgPath := filepath.Join(t.TempDir(), "pngme.toml")
	if err := os.WriteFile(cfgPath, []byte(`chunk_type = "hiDe"`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if code, _, errOut := runCLI(t, "-config", cfgPath, "encode", path, "via config"); code != 0 {
		t.Fatalf("encode exit %d: %s", code, errOut)
	}
	code, out, _ := runCLI(t, "decode", path, "hiDe")
	if code != 0 || strings.TrimSpace(out) != "via config" {
		t.Fatalf("unexpected decode exit=%d out=%q", code, out)
	}
}

func keepGlobalLevel(t *testing.T) {
	t.Helper()
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })
}

func TestEnvLogLevelSurvivesDefaultConfig(t *testing.T) {
	keepGlobalLevel(t)
	t.Setenv("PNGME_LOG_LEVEL", "debug")
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	runCLI(t, "print", filepath.Join(t.TempDir(), "missing.png"))
	if got := zerolog.GlobalLevel(); got != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %v", got)
	}
}

func TestConfigFileLogLevel(t *testing.T) {
	keepGlobalLevel(t)
	cfgPath := filepath.Join(t.TempDir(), "pngme.toml")
	if err := os.WriteFile(cfgPath, []byte("[log]\nlevel = \"warn\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	missing := filepath.Join(t.TempDir(), "missing.png")

	t.Setenv("PNGME_LOG_LEVEL", "")
	runCLI(t, "-config", cfgPath, "print", missing)
	if got := zerolog.GlobalLevel(); got != zerolog.WarnLevel {
		t.Fatalf("expected warn from config, got %v", got)
	}

	t.Setenv("PNGME_LOG_LEVEL", "error")
	runCLI(t, "-config", cfgPath, "print", missing)
	if got := zerolog.GlobalLevel(); got != zerolog.ErrorLevel {
		t.Fatalf("expected env level to win, got %v", got)
	}
}

func TestUnknownLogLevelInConfigFails(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "pngme.toml")
	if err := os.WriteFile(cfgPath, []byte("[log]\nlevel = \"verbose\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	code, _, errOut := runCLI(t, "-config", cfgPath, "print", writeSample(t))
	if code != 1 || !strings.Contains(errOut, "log.level") {
		t.Fatalf("unexpected exit=%d stderr=%q", code, errOut)
	}
}

func TestUsageErrors(t *testing.T) {
	cases := [][]string{
		{},
		{"explode"},
		{"encode", "only-file"},
		{"decode"},
		{"print"},
		{"encode", "-bogus", "f", "m"},
	}
	for _, args := range cases {
		code, _, errOut := runCLI(t, args...)
		if code != 2 {
			t.Fatalf("%v: expected exit 2, got %d", args, code)
		}
		if !strings.Contains(errOut, "usage: pngme") {
			t.Fatalf("%v: expected usage text, got %q", args, errOut)
		}
	}
}

func TestRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.png")
	if err := os.WriteFile(path, []byte("not a png at all"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	code, _, errOut := runCLI(t, "print", path)
	if code != 1 || !strings.Contains(errOut, "bad signature") {
		t.Fatalf("expected signature error, exit=%d stderr=%q", code, errOut)
	}
}

func TestInitWritesTemplate(t *testing.T) {
	out := filepath.Join(t.TempDir(), "pngme.toml")
	if code, _, errOut := runCLI(t, "init", "-output", out); code != 0 {
		t.Fatalf("init exit %d: %s", code, errOut)
	}
	if code, _, _ := runCLI(t, "init", "-output", out); code != 1 {
		t.Fatalf("expected refusal to overwrite")
	}
	if code, _, errOut := runCLI(t, "-config", out, "print", writeSample(t)); code != 0 {
		t.Fatalf("template config rejected: %s", errOut)
	}
}
