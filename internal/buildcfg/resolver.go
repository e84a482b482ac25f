package buildcfg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/eugenenazirov/buildenv/internal/pkgconfig"
)

// ProfilerPackage is the package queried for profiler flags.
const ProfilerPackage = "libprofiler"

var terseMessages = Messages{
	Compile:    " Compiling ${SOURCE}...",
	CompileCXX: " Compiling ${SOURCE}...",
	Link:       "Linking $TARGET",
}

type resolver struct {
	// group collapses concurrent misses on one name into a single assembly.
	group singleflight.Group

	cache       Cache
	lookup      pkgconfig.Lookup
	logger      *zap.Logger
	diagnostics io.Writer
	profilerPkg string
}

// ResolverOption configures a Resolver.
type ResolverOption func(*resolver)

// WithLogger sets the logger used for cache and lookup events.
func WithLogger(logger *zap.Logger) ResolverOption {
	return func(r *resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithDiagnostics sets where the recognised-option listing is written when an
// unknown option is rejected. Defaults to stderr.
func WithDiagnostics(w io.Writer) ResolverOption {
	return func(r *resolver) {
		if w != nil {
			r.diagnostics = w
		}
	}
}

// WithProfilerPackage overrides the package queried when gprof is set.
func WithProfilerPackage(name string) ResolverOption {
	return func(r *resolver) {
		if name != "" {
			r.profilerPkg = name
		}
	}
}

// NewResolver creates a Resolver memoizing into cache and querying lookup for
// profiler flags. A nil lookup runs the default pkg-config binary.
func NewResolver(cache Cache, lookup pkgconfig.Lookup, opts ...ResolverOption) Resolver {
	if lookup == nil {
		lookup = pkgconfig.New("")
	}
	r := &resolver{
		cache:       cache,
		lookup:      lookup,
		logger:      zap.NewNop(),
		diagnostics: os.Stderr,
		profilerPkg: ProfilerPackage,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *resolver) Resolve(ctx context.Context, target Target, flavor Flavor, opts OptionSet) (BuildConfig, error) {
	t, err := ParseTarget(string(target))
	if err != nil {
		return BuildConfig{}, err
	}
	f, err := ParseFlavor(string(flavor))
	if err != nil {
		return BuildConfig{}, err
	}
	info := targets[t]
	rules, ok := families[info.family]
	if !ok {
		return BuildConfig{}, &UnsupportedTargetError{Target: string(t)}
	}

	s, err := validateOptions(info.family, opts)
	if err != nil {
		var unknown *UnknownOptionError
		if errors.As(err, &unknown) {
			fmt.Fprintln(r.diagnostics, unknown.Help)
		}
		return BuildConfig{}, err
	}

	name := BuildName(t, f)
	if cfg, ok := r.cache.Get(name); ok {
		r.logger.Debug("build config cache hit", zap.String("name", name))
		return cfg, nil
	}

	// The flight runs detached from caller cancellation; each caller waits
	// on its own ctx.
	flightCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(name, func() (any, error) {
		// A flight that finished after our miss may already have stored it.
		if cfg, ok := r.cache.Get(name); ok {
			return cfg, nil
		}
		cfg, err := r.assemble(flightCtx, t, f, info, rules, s)
		if err != nil {
			return nil, err
		}
		stored, loaded := r.cache.LoadOrStore(name, cfg)
		r.logger.Debug("build config resolved",
			zap.String("name", name),
			zap.Bool("raced", loaded),
			zap.Int("compiler_flags", len(stored.CompilerFlags)),
			zap.Int("linker_flags", len(stored.LinkerFlags)),
		)
		return stored, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return BuildConfig{}, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return BuildConfig{}, res.Err
	}
	stored := res.Val.(BuildConfig)
	if res.Shared {
		stored = stored.Clone()
	}
	return stored, nil
}

func (r *resolver) assemble(ctx context.Context, t Target, f Flavor, info targetInfo, rules *familyRules, s settings) (BuildConfig, error) {
	name := BuildName(t, f)
	cfg := BuildConfig{
		Name:   name,
		Target: t,
		Flavor: f,
		Family: info.family,
		Naming: rules.naming,
	}
	cfg.Naming.OutputDir = "build/" + name

	cfg.CompilerFlags = append(cfg.CompilerFlags, rules.warnings...)
	if info.bits32 {
		cfg.CompilerFlags = append(cfg.CompilerFlags, rules.arch32...)
	}
	cfg.Defines = append(cfg.Defines, rules.defines...)

	// Profiler and sanitizer instrumentation are exclusive; profiler wins.
	switch {
	case s.gprof:
		cfg.Defines = append(cfg.Defines, rules.profiler...)
		flags, err := r.lookup.Lookup(ctx, r.profilerPkg)
		if err != nil {
			return BuildConfig{}, fmt.Errorf("profiler flags for %s: %w", name, err)
		}
		cfg.CompilerFlags = append(cfg.CompilerFlags, flags.CompilerFlags...)
		cfg.LinkerFlags = append(cfg.LinkerFlags, flags.LinkerFlags...)
		cfg.Defines = append(cfg.Defines, flags.Defines...)
	case s.asan && rules.sanitizer != nil:
		cfg.CompilerFlags = append(cfg.CompilerFlags, rules.sanitizer...)
		cfg.LinkerFlags = append(cfg.LinkerFlags, rules.sanitizer...)
	}

	cfg.CompilerFlags = append(cfg.CompilerFlags, rules.debugInfo...)
	cfg.LinkerFlags = append(cfg.LinkerFlags, rules.linkerFlags...)

	if f == Debug {
		cfg.CompilerFlags = append(cfg.CompilerFlags, rules.debugFlags...)
		cfg.Defines = append(cfg.Defines, rules.debugDefines...)
	} else {
		cfg.CompilerFlags = append(cfg.CompilerFlags, rules.releaseFlags...)
		cfg.Defines = append(cfg.Defines, rules.releaseDefines...)
	}

	if !s.verbose {
		cfg.Messages = terseMessages
	}
	if info.family == FamilyWindows {
		cfg.Toolchain = s.msvcVersion
	}
	return cfg, nil
}
