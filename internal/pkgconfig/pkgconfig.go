// Package pkgconfig queries package metadata for compiler and linker flags
// and sorts the returned words into the lists a build configuration keeps.
package pkgconfig

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"mvdan.cc/sh/v3/shell"
)

// DefaultBinary is the lookup tool used when none is configured.
const DefaultBinary = "pkg-config"

// ErrLookupFailed is returned when package metadata cannot be obtained.
var ErrLookupFailed = errors.New("package config lookup failed")

// Flags are the classified words of a package's --cflags and --libs output.
type Flags struct {
	CompilerFlags []string
	LinkerFlags   []string
	Defines       []string
}

// Lookup resolves the build flags of an installed package.
type Lookup interface {
	Lookup(ctx context.Context, pkg string) (Flags, error)
}

// Runner executes name with args and returns its standard output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Command is a Lookup backed by an external pkg-config compatible binary.
type Command struct {
	binary string
	run    Runner
}

// Option configures a Command.
type Option func(*Command)

// WithRunner replaces process execution, primarily for tests.
func WithRunner(run Runner) Option {
	return func(c *Command) {
		c.run = run
	}
}

// New returns a Command running binary, or DefaultBinary when binary is empty.
func New(binary string, opts ...Option) *Command {
	if strings.TrimSpace(binary) == "" {
		binary = DefaultBinary
	}
	c := &Command{
		binary: binary,
		run:    execRunner,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Binary reports the executable the lookup runs.
func (c *Command) Binary() string {
	return c.binary
}

// Lookup runs `<binary> --cflags --libs pkg` and classifies the output.
func (c *Command) Lookup(ctx context.Context, pkg string) (Flags, error) {
	out, err := c.run(ctx, c.binary, "--cflags", "--libs", pkg)
	if err != nil {
		return Flags{}, fmt.Errorf("%w: %s %s: %v", ErrLookupFailed, c.binary, pkg, err)
	}
	flags, err := ParseFlags(string(out))
	if err != nil {
		return Flags{}, fmt.Errorf("%w: %s %s: %v", ErrLookupFailed, c.binary, pkg, err)
	}
	return flags, nil
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%w: %s", err, bytes.TrimSpace(exitErr.Stderr))
		}
		return nil, err
	}
	return out, nil
}

// ParseFlags splits s with shell word rules and sorts each word into
// compiler flags, linker flags or defines.
func ParseFlags(s string) (Flags, error) {
	words, err := shell.Fields(s, func(string) string { return "" })
	if err != nil {
		return Flags{}, fmt.Errorf("split flags: %w", err)
	}

	var f Flags
	for i := 0; i < len(words); i++ {
		w := words[i]
		switch {
		case w == "-D":
			if i+1 < len(words) {
				i++
				f.Defines = append(f.Defines, words[i])
			}
		case strings.HasPrefix(w, "-D"):
			f.Defines = append(f.Defines, w[2:])
		case w == "-isystem", w == "-include", w == "-iquote", w == "-idirafter":
			f.CompilerFlags = append(f.CompilerFlags, w)
			if i+1 < len(words) {
				i++
				f.CompilerFlags = append(f.CompilerFlags, words[i])
			}
		case w == "-I":
			if i+1 < len(words) {
				i++
				f.CompilerFlags = append(f.CompilerFlags, "-I"+words[i])
			}
		case w == "-L", w == "-l":
			// Separated forms are joined so each list entry is one flag.
			if i+1 < len(words) {
				i++
				f.LinkerFlags = append(f.LinkerFlags, w+words[i])
			}
		case w == "-framework":
			f.LinkerFlags = append(f.LinkerFlags, w)
			if i+1 < len(words) {
				i++
				f.LinkerFlags = append(f.LinkerFlags, words[i])
			}
		case strings.HasPrefix(w, "-I"):
			f.CompilerFlags = append(f.CompilerFlags, w)
		case strings.HasPrefix(w, "-L"), strings.HasPrefix(w, "-l"), strings.HasPrefix(w, "-Wl,"), w == "-rdynamic":
			f.LinkerFlags = append(f.LinkerFlags, w)
		case w == "-pthread", w == "-fopenmp", strings.HasPrefix(w, "-fsanitize="):
			f.CompilerFlags = append(f.CompilerFlags, w)
			f.LinkerFlags = append(f.LinkerFlags, w)
		case strings.HasPrefix(w, "-"):
			f.CompilerFlags = append(f.CompilerFlags, w)
		default:
			// Bare words are library files.
			f.LinkerFlags = append(f.LinkerFlags, w)
		}
	}
	return f, nil
}
