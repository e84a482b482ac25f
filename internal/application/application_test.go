package application

import (
	"context"
	"errors"
	"io"
	"net/http"
	"slices"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/buildenv/internal/buildcfg"
	"github.com/eugenenazirov/buildenv/internal/config"
	"github.com/eugenenazirov/buildenv/internal/pkgconfig"
)

type stubLookup struct {
	flags pkgconfig.Flags
	err   error
	calls []string
}

func (s *stubLookup) Lookup(_ context.Context, pkg string) (pkgconfig.Flags, error) {
	s.calls = append(s.calls, pkg)
	return s.flags, s.err
}

func TestNewInitializesDependencies(t *testing.T) {
	cfg := baseTestConfig(":8085")
	logger := zaptest.NewLogger(t)

	app, err := New(cfg, logger, WithDiagnostics(io.Discard))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if app.cache == nil || app.resolver == nil {
		t.Fatalf("expected cache and resolver to be initialized")
	}
	if app.cache.Len() != 0 {
		t.Fatalf("expected empty cache, got %v", app.cache.Names())
	}
	if app.server == nil || app.router == nil || app.handler == nil {
		t.Fatalf("expected server, router, and handler to be initialized")
	}
	if app.Server() != app.server {
		t.Fatalf("Server accessor did not return underlying instance")
	}
}

func TestNewServerAppliesConfig(t *testing.T) {
	cfg := baseTestConfig("9090")
	handler := http.NewServeMux()

	server := NewServer(cfg, handler)
	if server.Addr != ":9090" {
		t.Fatalf("expected address :9090, got %s", server.Addr)
	}
	if server.Handler != handler {
		t.Fatalf("expected handler to be applied")
	}
	if server.ReadHeaderTimeout != cfg.ReadHeaderTimeout ||
		server.WriteTimeout != cfg.WriteTimeout ||
		server.IdleTimeout != cfg.IdleTimeout {
		t.Fatalf("server timeouts do not match configuration")
	}
}

func TestNewReturnsErrorWithoutTargets(t *testing.T) {
	cfg := baseTestConfig(":0")
	cfg.Targets = nil

	if _, err := New(cfg, zaptest.NewLogger(t)); err == nil {
		t.Fatalf("expected error for empty target list")
	}
}

func TestResolveAllOrdersTargetsThenFlavors(t *testing.T) {
	cfg := baseTestConfig(":0")
	cfg.Targets = []string{"Windows-x64", "Lnx32"}
	cfg.Options = buildcfg.OptionSet{"release": "1", "debug": "1"}

	app, err := New(cfg, zaptest.NewLogger(t), WithDiagnostics(io.Discard))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	cfgs, err := app.ResolveAll(context.Background())
	if err != nil {
		t.Fatalf("ResolveAll returned error: %v", err)
	}

	var names []string
	for _, c := range cfgs {
		names = append(names, c.Name)
	}
	want := []string{"Windows-x64-debug", "Windows-x64-release", "Linux-i386-debug", "Linux-i386-release"}
	if !slices.Equal(names, want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
	if app.cache.Len() != len(want) {
		t.Fatalf("expected %d cached configs, got %d", len(want), app.cache.Len())
	}
}

func TestResolveAllUsesProfilerLookup(t *testing.T) {
	cfg := baseTestConfig(":0")
	cfg.Options = buildcfg.OptionSet{"gprof": "yes"}
	cfg.ProfilerPackage = "libprofiler-custom"

	lookup := &stubLookup{flags: pkgconfig.Flags{LinkerFlags: []string{"-lprofiler"}}}
	app, err := New(cfg, zaptest.NewLogger(t), WithLookup(lookup), WithDiagnostics(io.Discard))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	cfgs, err := app.ResolveAll(context.Background())
	if err != nil {
		t.Fatalf("ResolveAll returned error: %v", err)
	}
	if !slices.Equal(lookup.calls, []string{"libprofiler-custom"}) {
		t.Fatalf("unexpected lookups %v", lookup.calls)
	}
	if !slices.Contains(cfgs[0].LinkerFlags, "-lprofiler") {
		t.Fatalf("expected profiler link flags, got %v", cfgs[0].LinkerFlags)
	}
}

func TestResolveAllStopsAtFirstFailure(t *testing.T) {
	tests := []struct {
		name     string
		targets  []string
		options  buildcfg.OptionSet
		lookup   *stubLookup
		wantErr  error
		wantExit int
	}{
		{
			name:     "UnsupportedTarget",
			targets:  []string{"Linux-x86_64", "BogusTarget"},
			wantErr:  buildcfg.ErrUnsupportedTarget,
			wantExit: buildcfg.ExitUnsupportedTarget,
		},
		{
			name:     "UnknownOption",
			targets:  []string{"Linux-x86_64"},
			options:  buildcfg.OptionSet{"nonexistent": "1"},
			wantErr:  buildcfg.ErrUnknownOption,
			wantExit: buildcfg.ExitOptionError,
		},
		{
			name:     "InvalidFlavorValue",
			targets:  []string{"Linux-x86_64"},
			options:  buildcfg.OptionSet{"debug": "maybe"},
			wantErr:  buildcfg.ErrInvalidOptionValue,
			wantExit: buildcfg.ExitOptionError,
		},
		{
			name:     "LookupFailure",
			targets:  []string{"Linux-x86_64"},
			options:  buildcfg.OptionSet{"gprof": "1"},
			lookup:   &stubLookup{err: pkgconfig.ErrLookupFailed},
			wantErr:  pkgconfig.ErrLookupFailed,
			wantExit: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseTestConfig(":0")
			cfg.Targets = tt.targets
			cfg.Options = tt.options

			opts := []Option{WithDiagnostics(io.Discard)}
			if tt.lookup != nil {
				opts = append(opts, WithLookup(tt.lookup))
			}
			app, err := New(cfg, zaptest.NewLogger(t), opts...)
			if err != nil {
				t.Fatalf("New returned error: %v", err)
			}

			cfgs, err := app.ResolveAll(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if cfgs != nil {
				t.Fatalf("expected no partial result, got %d configs", len(cfgs))
			}
			if got := buildcfg.ExitCode(err); got != tt.wantExit {
				t.Fatalf("expected exit code %d, got %d", tt.wantExit, got)
			}
		})
	}
}

func baseTestConfig(port string) config.Config {
	return config.Config{
		Targets:              []string{"Linux-x86_64"},
		Options:              buildcfg.OptionSet{},
		Format:               config.FormatYAML,
		PkgConfig:            pkgconfig.DefaultBinary,
		ProfilerPackage:      buildcfg.ProfilerPackage,
		LogLevel:             "info",
		Port:                 port,
		ShutdownGracePeriod:  50 * time.Millisecond,
		ReadHeaderTimeout:    20 * time.Millisecond,
		WriteTimeout:         30 * time.Millisecond,
		IdleTimeout:          40 * time.Millisecond,
		EnableRequestLogging: false,
		RateLimitRPS:         0,
		RateLimitBurst:       0,
	}
}
