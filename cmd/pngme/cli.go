package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/pngme/internal/commands"
	"github.com/danmuck/pngme/internal/config"
	"github.com/danmuck/pngme/internal/logging"
	"github.com/danmuck/pngme/internal/observability"
	"github.com/danmuck/pngme/internal/payload"
	"github.com/danmuck/pngme/internal/png"
	"github.com/danmuck/pngme/internal/server"
)

const usage = `usage: pngme [-config path] <command> [flags] [args]

commands:
  encode [-out path] [-compress] <file> [chunk-type] <message>
  decode <file> [chunk-type]
  remove [-out path] <file> [chunk-type]
  print  <file>
  serve  [-addr addr]
  init   [-output path] [-force]
`

var errUsage = errors.New("invalid usage")

type app struct {
	cfg    config.Config
	runner *commands.Runner
	stdout io.Writer
	stderr io.Writer
}

func run(args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("pngme", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := global.String("config", "", "path to a pngme.toml (default $PNGME_CONFIG)")
	if err := global.Parse(args); err != nil {
		return 2
	}
	rest := global.Args()
	if len(rest) == 0 {
		global.Usage()
		return 2
	}

	logging.ConfigureRuntime()
	cfg, err := config.Load(config.ResolvePath(*configPath))
	if err != nil {
		fmt.Fprintf(stderr, "pngme: %v\n", err)
		return 1
	}
	logging.ApplyLevel(cfg.LogLevel, cfg.LogLevelSet)

	a := &app{
		cfg:    cfg,
		runner: commands.NewRunner(observability.InitLogger("pngme")),
		stdout: stdout,
		stderr: stderr,
	}

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "encode":
		err = a.encode(cmdArgs)
	case "decode":
		err = a.decode(cmdArgs)
	case "remove":
		err = a.remove(cmdArgs)
	case "print":
		err = a.printChunks(cmdArgs)
	case "serve":
		err = a.serve(cmdArgs)
	case "init":
		err = a.initConfig(cmdArgs)
	default:
		err = fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stderr, "pngme: %v\n", err)
		}
		fmt.Fprint(stderr, usage)
		return 2
	default:
		fmt.Fprintf(stderr, "pngme: %v\n", err)
		return 1
	}
}

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return err
	}
	return fmt.Errorf("%w: %v", errUsage, err)
}

func (a *app) source(path string) commands.Source {
	return commands.FileSource{Path: path, MaxBytes: a.cfg.MaxInputBytes}
}

func (a *app) sink(path, out string) commands.Sink {
	if out != "" {
		return commands.FileSink{Path: out}
	}
	return commands.FileSink{Path: path}
}

// fileAndType splits "<file> [chunk-type]" falling back to the configured type.
func (a *app) fileAndType(args []string) (string, string, error) {
	switch len(args) {
	case 1:
		return args[0], a.cfg.ChunkType, nil
	case 2:
		return args[0], args[1], nil
	default:
		return "", "", fmt.Errorf("%w: expected <file> [chunk-type]", errUsage)
	}
}

func (a *app) encode(args []string) error {
	fs := a.flagSet("encode")
	out := fs.String("out", "", "write the result here instead of overwriting the input")
	compress := fs.Bool("compress", a.cfg.Compress, "zstd-compress the message")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var file, chunkType, message string
	switch rest := fs.Args(); len(rest) {
	case 2:
		file, chunkType, message = rest[0], a.cfg.ChunkType, rest[1]
	case 3:
		file, chunkType, message = rest[0], rest[1], rest[2]
	default:
		return fmt.Errorf("%w: expected <file> [chunk-type] <message>", errUsage)
	}

	req := commands.EncodeRequest{
		ChunkType: chunkType,
		Message:   message,
		Options:   payload.Options{Compress: *compress, Passphrase: a.cfg.Passphrase()},
	}
	c, err := a.runner.Encode(a.source(file), a.sink(file, *out), req)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "encoded %d bytes into chunk %s\n", c.Length(), c.Type())
	return nil
}

func (a *app) decode(args []string) error {
	fs := a.flagSet("decode")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	file, chunkType, err := a.fileAndType(fs.Args())
	if err != nil {
		return err
	}
	msg, err := a.runner.Decode(a.source(file), chunkType, a.cfg.Passphrase())
	if errors.Is(err, png.ErrChunkNotFound) {
		fmt.Fprintf(a.stdout, "no %s chunk in %s\n", chunkType, file)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, msg)
	return nil
}

func (a *app) remove(args []string) error {
	fs := a.flagSet("remove")
	out := fs.String("out", "", "write the result here instead of overwriting the input")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	file, chunkType, err := a.fileAndType(fs.Args())
	if err != nil {
		return err
	}
	c, err := a.runner.Remove(a.source(file), a.sink(file, *out), chunkType)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "removed chunk %s (%d bytes)\n", c.Type(), c.Length())
	return nil
}

func (a *app) printChunks(args []string) error {
	fs := a.flagSet("print")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: expected <file>", errUsage)
	}
	return a.runner.Print(a.source(fs.Arg(0)), a.stdout)
}

func (a *app) serve(args []string) error {
	fs := a.flagSet("serve")
	addr := fs.String("addr", a.cfg.Server.Addr, "listen address")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	cfg := a.cfg
	cfg.Server.Addr = *addr

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.Appear("pngme", cfg, observability.InitLogger("pngme-server")).Serve(ctx)
}

func (a *app) initConfig(args []string) error {
	fs := a.flagSet("init")
	output := fs.String("output", "pngme.toml", "output path for the config template")
	force := fs.Bool("force", false, "overwrite an existing file")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if err := config.WriteTemplate(*output, *force); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "wrote %s\n", *output)
	return nil
}
