package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/ia-bridge/config"
	"github.com/wippyai/ia-bridge/internal/sample"
	"github.com/wippyai/ia-bridge/rpc"
	"github.com/wippyai/ia-bridge/runtime"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: iabridge serve [-config file] [-addr host:port]")
	fmt.Fprintln(os.Stderr, "       iabridge explore [-config file] [-addr host:port | -local] [-guest file.wasm] [-i] [method [json-args...]]")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "serve":
		err = serveCmd(ctx, os.Args[2:])
	case "explore":
		err = exploreCmd(ctx, os.Args[2:])
	case "-h", "-help", "--help", "help":
		usage()
		return
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(path, addr, guest, level string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if guest != "" {
		cfg.Guest = guest
	}
	if level != "" {
		cfg.LogLevel = level
	}
	log, err := cfg.Logger()
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// newSampleRuntime builds the sample client model with a couple of rooms.
func newSampleRuntime(log *zap.Logger) (*runtime.Runtime, error) {
	client := sample.NewClient()
	client.AddRoom("lobby", "")
	client.AddRoom("vault", "secret")
	return runtime.New(client, runtime.WithLogger(log))
}

func serveCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	var (
		cfgFile = fs.String("config", "", "Path to TOML or YAML config file")
		addr    = fs.String("addr", "", "Listen address (default "+config.DefaultAddr+")")
		level   = fs.String("log", "", "Log level override")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, log, err := loadConfig(*cfgFile, *addr, "", *level)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	rt, err := newSampleRuntime(log)
	if err != nil {
		return err
	}
	defer rt.Close()

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	log.Info("serving sample runtime", zap.Stringer("addr", ln.Addr()))
	rt.Ready()

	return rpc.ServeListener(ctx, ln, rt, rpc.WithLogger(log))
}

func exploreCmd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("explore", flag.ExitOnError)
	var (
		cfgFile     = fs.String("config", "", "Path to TOML or YAML config file")
		addr        = fs.String("addr", "", "Address of a served runtime")
		local       = fs.Bool("local", false, "Explore an in-process sample runtime")
		guest       = fs.String("guest", "", "WebAssembly guest that fires runtime notifications")
		level       = fs.String("log", "", "Log level override")
		interactive = fs.Bool("i", false, "Interactive mode with TUI (default when stdout is a terminal)")
		plain       = fs.Bool("plain", false, "Disable the TUI")
		watch       = fs.Duration("watch", 0, "Print client events for this long before exiting")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, log, err := loadConfig(*cfgFile, *addr, *guest, *level)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	tui := *interactive || (!*plain && fs.NArg() == 0 && term.IsTerminal(int(os.Stdout.Fd())))
	if tui {
		// Log output would tear the alternate screen.
		log = zap.NewNop()
	}

	sess, err := connect(ctx, cfg, log, *local)
	if err != nil {
		return err
	}
	defer sess.Close(context.Background())

	if tui {
		return runInteractive(ctx, sess)
	}
	return runPlain(ctx, sess, fs.Args(), *watch)
}
