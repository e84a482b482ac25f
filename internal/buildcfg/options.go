package buildcfg

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// OptionSet maps option names to their raw values as given on the command
// line or in the configuration file.
type OptionSet map[string]string

// Clone returns a copy of o.
func (o OptionSet) Clone() OptionSet {
	out := make(OptionSet, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// OptionKind is the value type of an option.
type OptionKind int

const (
	BoolOption OptionKind = iota
	StringOption
)

// OptionSpec declares one recognised option.
type OptionSpec struct {
	Name    string     `json:"name" yaml:"name"`
	Help    string     `json:"help" yaml:"help"`
	Kind    OptionKind `json:"kind" yaml:"kind"`
	Default string     `json:"default" yaml:"default"`
}

const (
	OptVerbose     = "verbose"
	OptDebug       = "debug"
	OptRelease     = "release"
	OptASan        = "asan"
	OptGProf       = "gprof"
	OptMSVCVersion = "msvc_version"
)

var commonOptions = []OptionSpec{
	{Name: OptVerbose, Help: "Show command lines", Kind: BoolOption, Default: "0"},
	{Name: OptDebug, Help: "Build debug version", Kind: BoolOption, Default: "0"},
	{Name: OptRelease, Help: "Build release version", Kind: BoolOption, Default: "0"},
}

var boolWords = map[string]bool{
	"1": true, "y": true, "yes": true, "true": true, "t": true, "on": true, "all": true,
	"0": false, "n": false, "no": false, "false": false, "f": false, "off": false, "none": false,
}

// parseBool accepts the spellings build scripts traditionally allow for
// boolean variables.
func parseBool(key, value string) (bool, error) {
	b, ok := boolWords[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		return false, &OptionValueError{Key: key, Value: value, Want: "boolean"}
	}
	return b, nil
}

// Enabled reports whether key holds a true boolean word. Missing keys and
// unparseable values are false.
func (o OptionSet) Enabled(key string) bool {
	raw, ok := o[key]
	if !ok {
		return false
	}
	on, err := parseBool(key, raw)
	return err == nil && on
}

// expressSuffix marks the Express edition of an MSVC toolset, e.g. 14.0Exp.
const expressSuffix = "Exp"

// parseToolchainVersion accepts MSVC toolset versions such as 14.0, 14.29 or
// 12.0Exp. The value is returned as given.
func parseToolchainVersion(key, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	version := strings.TrimSuffix(value, expressSuffix)
	if version == "" {
		return "", &OptionValueError{Key: key, Value: value, Want: "version"}
	}
	if _, err := semver.NewVersion(version); err != nil {
		return "", &OptionValueError{Key: key, Value: value, Want: "version"}
	}
	return value, nil
}

// Schema returns the options recognised for targets of family f, sorted by name.
func Schema(f Family) []OptionSpec {
	specs := slices.Clone(commonOptions)
	if rules, ok := families[f]; ok {
		specs = append(specs, rules.options...)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// HelpText renders specs in the listing shown to operators when an option is
// not recognised.
func HelpText(specs []OptionSpec) string {
	var b strings.Builder
	for _, spec := range specs {
		kind := "(yes|no)"
		if spec.Kind == StringOption {
			kind = "( value )"
		}
		fmt.Fprintf(&b, "\n%s: %s %s\n    default: %s\n", spec.Name, spec.Help, kind, spec.Default)
	}
	return b.String()
}

// ParseOptionArgs turns KEY=VALUE arguments into an OptionSet. Later
// assignments to the same key win.
func ParseOptionArgs(args []string) (OptionSet, error) {
	opts := make(OptionSet, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("option %q: expected KEY=VALUE", arg)
		}
		opts[key] = value
	}
	return opts, nil
}

// Flavors returns the flavors selected by the debug and release options,
// defaulting to release when neither is set.
func Flavors(opts OptionSet) ([]Flavor, error) {
	var flavors []Flavor
	for _, candidate := range []struct {
		key    string
		flavor Flavor
	}{{OptDebug, Debug}, {OptRelease, Release}} {
		raw, ok := opts[candidate.key]
		if !ok {
			continue
		}
		on, err := parseBool(candidate.key, raw)
		if err != nil {
			return nil, err
		}
		if on {
			flavors = append(flavors, candidate.flavor)
		}
	}
	if len(flavors) == 0 {
		flavors = append(flavors, Release)
	}
	return flavors, nil
}

// settings is an OptionSet validated against one family's schema.
type settings struct {
	verbose     bool
	asan        bool
	gprof       bool
	msvcVersion string
}

func validateOptions(f Family, opts OptionSet) (settings, error) {
	schema := Schema(f)
	known := make(map[string]OptionSpec, len(schema))
	for _, spec := range schema {
		known[spec.Name] = spec
	}

	var unknown []string
	for key := range opts {
		if _, ok := known[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return settings{}, &UnknownOptionError{Keys: unknown, Help: HelpText(schema)}
	}

	var s settings
	flag := func(key string) (bool, error) {
		raw, ok := opts[key]
		if !ok {
			raw = known[key].Default
		}
		return parseBool(key, raw)
	}

	// Flavor keys are validated here as well so a bad value fails every resolve.
	var err error
	for _, key := range []string{OptDebug, OptRelease} {
		if _, err = flag(key); err != nil {
			return settings{}, err
		}
	}
	if s.verbose, err = flag(OptVerbose); err != nil {
		return settings{}, err
	}
	if _, ok := known[OptASan]; ok {
		if s.asan, err = flag(OptASan); err != nil {
			return settings{}, err
		}
	}
	if _, ok := known[OptGProf]; ok {
		if s.gprof, err = flag(OptGProf); err != nil {
			return settings{}, err
		}
	}
	if _, ok := known[OptMSVCVersion]; ok {
		if s.msvcVersion, err = parseToolchainVersion(OptMSVCVersion, opts[OptMSVCVersion]); err != nil {
			return settings{}, err
		}
	}
	return s, nil
}
