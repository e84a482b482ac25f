package application

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
	"mvdan.cc/sh/v3/syntax"

	"github.com/eugenenazirov/buildenv/internal/buildcfg"
	"github.com/eugenenazirov/buildenv/internal/config"
)

// WriteConfigs renders cfgs to w in the given output format.
func WriteConfigs(w io.Writer, format string, cfgs []buildcfg.BuildConfig) error {
	switch format {
	case config.FormatYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(cfgs); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case config.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cfgs); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	case config.FormatEnv:
		return writeEnv(w, cfgs)
	}
	return fmt.Errorf("unknown output format %q", format)
}

// writeEnv prints shell export lines. With more than one configuration each
// variable is prefixed with the configuration name so blocks do not clobber
// each other.
func writeEnv(w io.Writer, cfgs []buildcfg.BuildConfig) error {
	for i, cfg := range cfgs {
		prefix := ""
		if len(cfgs) > 1 {
			prefix = envPrefix(cfg.Name)
		}
		compile := strings.Join(cfg.CompilerFlags, " ")
		vars := []struct{ key, value string }{
			{"BUILDENV_NAME", cfg.Name},
			{"CPPFLAGS", strings.Join(cfg.DefineFlags(), " ")},
			{"CFLAGS", compile},
			{"CXXFLAGS", compile},
			{"LDFLAGS", strings.Join(cfg.LinkerFlags, " ")},
		}

		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "# %s\n", cfg.Name); err != nil {
			return err
		}
		for _, v := range vars {
			quoted, err := syntax.Quote(v.value, syntax.LangPOSIX)
			if err != nil {
				return fmt.Errorf("quote %s for %s: %w", v.key, cfg.Name, err)
			}
			if _, err := fmt.Fprintf(w, "export %s%s=%s\n", prefix, v.key, quoted); err != nil {
				return err
			}
		}
	}
	return nil
}

// envPrefix turns a configuration name into a shell identifier prefix,
// e.g. Linux-x86_64-release -> LINUX_X86_64_RELEASE_.
func envPrefix(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	b.WriteByte('_')
	return b.String()
}
