package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/eugenenazirov/buildenv/internal/application"
	"github.com/eugenenazirov/buildenv/internal/buildcfg"
	"github.com/eugenenazirov/buildenv/internal/config"
	"github.com/eugenenazirov/buildenv/internal/logging"
)

var signalNotify = signal.Notify

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	kingpinApp := kingpin.New("buildenv", "Build environment resolver - computes C/C++ compiler and linker flags per target and build flavor")
	kingpinApp.UsageWriter(stderr)
	kingpinApp.ErrorWriter(stderr)

	configFile := kingpinApp.Flag("config", "Path to YAML or TOML configuration file").String()
	envFile := kingpinApp.Flag("env-file", "Path to a dotenv file with BUILDENV_* variables").String()
	targets := kingpinApp.Flag("target", "Target platform, repeatable (Linux-x86_64, Linux-i386, Windows-x86, Windows-x64)").Short('t').Strings()
	format := kingpinApp.Flag("format", "Output format: yaml, json or env").String()
	pkgConfig := kingpinApp.Flag("pkg-config", "pkg-config compatible binary used for profiler flags").String()
	logLevel := kingpinApp.Flag("log-level", "Log level (debug, info, warn, error)").String()

	resolveCmd := kingpinApp.Command("resolve", "Print the build configuration of every requested target and flavor").Default()
	resolveOpts := resolveCmd.Arg("options", "Build options as KEY=VALUE (verbose, debug, release, asan, gprof, msvc_version)").Strings()

	serveCmd := kingpinApp.Command("serve", "Serve resolved build configurations over HTTP")
	port := serveCmd.Flag("port", "HTTP port exposed by the service").String()
	rateLimitRPSFlag := serveCmd.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := serveCmd.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()
	serveOpts := serveCmd.Arg("options", "Build options as KEY=VALUE applied to every request").Strings()

	command, err := kingpinApp.Parse(args)
	if err != nil {
		printError(stderr, err)
		return buildcfg.ExitOptionError
	}

	overrides := &config.CLIOverrides{
		ConfigFile: *configFile,
		EnvFile:    *envFile,
		Targets:    *targets,
		Format:     format,
		PkgConfig:  pkgConfig,
		LogLevel:   logLevel,
	}

	switch command {
	case resolveCmd.FullCommand():
		overrides.OptionArgs = *resolveOpts
	case serveCmd.FullCommand():
		overrides.OptionArgs = *serveOpts
		overrides.Port = port
		if *rateLimitRPSFlag >= 0 {
			overrides.RateLimitRPS = rateLimitRPSFlag
		}
		if *rateLimitBurstFlag >= 0 {
			overrides.RateLimitBurst = rateLimitBurstFlag
		}
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		printError(stderr, fmt.Errorf("failed to load configuration: %w", err))
		return buildcfg.ExitOptionError
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		printError(stderr, fmt.Errorf("failed to initialize logger: %w", err))
		return buildcfg.ExitOptionError
	}
	defer func() {
		_ = logger.Sync()
	}()

	app, err := application.New(cfg, logger, application.WithDiagnostics(stderr))
	if err != nil {
		printError(stderr, fmt.Errorf("failed to initialize application: %w", err))
		return buildcfg.ExitOptionError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Configuration errors surface before serving, so a bad option set or
	// target never reaches a listening server.
	configs, err := app.ResolveAll(ctx)
	if err != nil {
		printError(stderr, err)
		return buildcfg.ExitCode(err)
	}

	if command == serveCmd.FullCommand() {
		if err := app.Start(); err != nil {
			logger.Error("failed to start server", zap.Error(err))
			return 1
		}
		shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
		return 0
	}

	if err := application.WriteConfigs(stdout, cfg.Format, configs); err != nil {
		printError(stderr, err)
		return 1
	}
	return 0
}

func printError(w io.Writer, err error) {
	_, _ = color.New(color.FgHiRed, color.Bold).Fprint(w, "ERROR:")
	_, _ = fmt.Fprintf(w, " %v\n", err)
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
