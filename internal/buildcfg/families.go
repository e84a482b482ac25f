package buildcfg

import (
	"sort"
	"strings"
)

// familyRules is the flag-assembly strategy shared by all targets of a family.
type familyRules struct {
	options      []OptionSpec
	definePrefix string

	warnings []string
	arch32   []string
	defines  []string

	// Nil when the family has no sanitizer support.
	sanitizer []string
	profiler  []string

	debugInfo   []string
	linkerFlags []string

	debugFlags     []string
	debugDefines   []string
	releaseFlags   []string
	releaseDefines []string

	naming Naming
}

type targetInfo struct {
	family Family
	bits32 bool
}

var families = map[Family]*familyRules{
	FamilyLinux: {
		options: []OptionSpec{
			{Name: OptASan, Help: "Build with address sanitizer", Kind: BoolOption, Default: "0"},
			{Name: OptGProf, Help: "Build with google gperftools libprofiler", Kind: BoolOption, Default: "0"},
		},
		definePrefix: "-D",
		warnings: []string{
			"-Wall",
			"-Wextra",
			"-Wpedantic",
			"-Wmissing-include-dirs",
			"-Wformat=2",
			"-Wshadow",
			"-Wno-unused-parameter",
			"-Wno-missing-field-initializers",
		},
		arch32:  []string{"-m32"},
		defines: []string{"_LARGEFILE64_SOURCE=1", "_FILE_OFFSET_BITS=64"},
		sanitizer: []string{
			"-fno-omit-frame-pointer",
			"-fno-optimize-sibling-calls",
			"-fsanitize=address",
			"-fsanitize=leak",
			"-fsanitize=undefined",
			"-fsanitize=float-divide-by-zero",
			"-fsanitize=bounds",
			"-fsanitize=object-size",
		},
		profiler:       []string{"GPROFILER"},
		linkerFlags:    []string{"-Wl,--no-as-needed", "-march=native", "-gdwarf-4", "-g2", "-Wl,--build-id=sha1"},
		debugFlags:     []string{"-O0"},
		debugDefines:   []string{"DEBUG", "_GLIBCXX_DEBUG", "_GLIBCXX_DEBUG_PEDANTIC", "_GLIBCXX_SANITIZE_VECTOR"},
		releaseFlags:   []string{"-O2"},
		releaseDefines: []string{"NDEBUG"},
		naming: Naming{
			ObjectSuffix:    ".o",
			StaticLibPrefix: "lib",
			StaticLibSuffix: ".a",
			SharedLibPrefix: "lib",
			SharedLibSuffix: ".so",
		},
	},
	FamilyWindows: {
		options: []OptionSpec{
			{Name: OptMSVCVersion, Help: "MSVC toolchain version, e.g. 14.0", Kind: StringOption},
		},
		definePrefix: "/D",
		warnings:     []string{"/W3"},
		defines:      []string{"WIN32", "_WINDOWS", "_CRT_SECURE_NO_WARNINGS"},
		// /Zi puts debug info in a PDB, /FS serialises PDB writes across parallel compiles.
		debugInfo: []string{"/Zi", "/FS"},
		// /DEBUG keeps a PDB for release images too.
		linkerFlags:    []string{"/DEBUG"},
		debugFlags:     []string{"/Od"},
		debugDefines:   []string{"DEBUG"},
		releaseFlags:   []string{"/O2", "/Ob1"},
		releaseDefines: []string{"NDEBUG"},
		naming: Naming{
			ObjectSuffix:    ".obj",
			StaticLibSuffix: ".lib",
			SharedLibSuffix: ".dll",
			ProgramSuffix:   ".exe",
		},
	},
}

var targets = map[Target]targetInfo{
	LinuxX86_64: {family: FamilyLinux},
	LinuxI386:   {family: FamilyLinux, bits32: true},
	WindowsX86:  {family: FamilyWindows, bits32: true},
	WindowsX64:  {family: FamilyWindows},
}

// Short names used by older build scripts.
var targetAliases = map[string]Target{
	"lnx64": LinuxX86_64,
	"lnx32": LinuxI386,
	"win32": WindowsX86,
	"win64": WindowsX64,
}

// ParseTarget normalises a target identifier or alias.
func ParseTarget(s string) (Target, error) {
	s = strings.TrimSpace(s)
	if t := Target(s); isKnownTarget(t) {
		return t, nil
	}
	if t, ok := targetAliases[strings.ToLower(s)]; ok {
		return t, nil
	}
	return "", &UnsupportedTargetError{Target: s}
}

func isKnownTarget(t Target) bool {
	_, ok := targets[t]
	return ok
}

// ParseFlavor validates a flavor name.
func ParseFlavor(s string) (Flavor, error) {
	switch f := Flavor(strings.ToLower(strings.TrimSpace(s))); f {
	case Debug, Release:
		return f, nil
	}
	return "", &UnsupportedFlavorError{Flavor: s}
}

// Family returns the platform family of t, or "" when t is not supported.
func (t Target) Family() Family {
	return targets[t].family
}

// Targets lists the supported targets in name order.
func Targets() []Target {
	out := make([]Target, 0, len(targets))
	for t := range targets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
