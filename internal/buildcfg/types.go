package buildcfg

import (
	"context"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// Target identifies the platform and architecture a configuration is built for.
type Target string

const (
	LinuxX86_64 Target = "Linux-x86_64"
	LinuxI386   Target = "Linux-i386"
	WindowsX86  Target = "Windows-x86"
	WindowsX64  Target = "Windows-x64"
)

// Flavor selects the optimisation and diagnostics profile.
type Flavor string

const (
	Debug   Flavor = "debug"
	Release Flavor = "release"
)

// Family groups targets that share one set of flag-assembly rules.
type Family string

const (
	FamilyLinux   Family = "linux"
	FamilyWindows Family = "windows"
)

// Messages holds the terse progress templates installed when command lines
// are not echoed. All fields are empty in verbose mode.
type Messages struct {
	Compile    string `json:"compile,omitempty" yaml:"compile,omitempty"`
	CompileCXX string `json:"compileCxx,omitempty" yaml:"compile_cxx,omitempty"`
	Link       string `json:"link,omitempty" yaml:"link,omitempty"`
}

// Naming is the output-naming strategy of a configuration.
type Naming struct {
	OutputDir       string `json:"outputDir" yaml:"output_dir"`
	ObjectSuffix    string `json:"objectSuffix" yaml:"object_suffix"`
	StaticLibPrefix string `json:"staticLibPrefix,omitempty" yaml:"static_lib_prefix,omitempty"`
	StaticLibSuffix string `json:"staticLibSuffix" yaml:"static_lib_suffix"`
	SharedLibPrefix string `json:"sharedLibPrefix,omitempty" yaml:"shared_lib_prefix,omitempty"`
	SharedLibSuffix string `json:"sharedLibSuffix" yaml:"shared_lib_suffix"`
	ProgramSuffix   string `json:"programSuffix,omitempty" yaml:"program_suffix,omitempty"`
}

// Object returns the object file path for a source file.
func (n Naming) Object(src string) string {
	base := strings.TrimSuffix(filepath.ToSlash(src), path.Ext(src))
	return path.Join(n.OutputDir, base+n.ObjectSuffix)
}

// StaticLibrary returns the archive path for a library name.
func (n Naming) StaticLibrary(name string) string {
	return path.Join(n.OutputDir, n.StaticLibPrefix+name+n.StaticLibSuffix)
}

// SharedLibrary returns the shared object path for a library name.
func (n Naming) SharedLibrary(name string) string {
	return path.Join(n.OutputDir, n.SharedLibPrefix+name+n.SharedLibSuffix)
}

// Program returns the executable path for a program name.
func (n Naming) Program(name string) string {
	return path.Join(n.OutputDir, name+n.ProgramSuffix)
}

// BuildConfig is the resolved bundle of flags for one (target, flavor) pair.
// Values handed out by a Resolver are copies; callers may modify them freely.
type BuildConfig struct {
	Name          string   `json:"name" yaml:"name"`
	Target        Target   `json:"target" yaml:"target"`
	Flavor        Flavor   `json:"flavor" yaml:"flavor"`
	Family        Family   `json:"family" yaml:"family"`
	CompilerFlags []string `json:"compilerFlags" yaml:"compiler_flags"`
	LinkerFlags   []string `json:"linkerFlags" yaml:"linker_flags"`
	Defines       []string `json:"defines" yaml:"defines"`
	Messages      Messages `json:"messages" yaml:"messages,omitempty"`
	Naming        Naming   `json:"naming" yaml:"naming"`
	Toolchain     string   `json:"toolchain,omitempty" yaml:"toolchain,omitempty"`
}

// Clone returns a deep copy of c.
func (c BuildConfig) Clone() BuildConfig {
	out := c
	out.CompilerFlags = slices.Clone(c.CompilerFlags)
	out.LinkerFlags = slices.Clone(c.LinkerFlags)
	out.Defines = slices.Clone(c.Defines)
	return out
}

// DefineFlags renders Defines as command-line switches for the family's compiler.
func (c BuildConfig) DefineFlags() []string {
	prefix := "-D"
	if rules, ok := families[c.Family]; ok {
		prefix = rules.definePrefix
	}
	out := make([]string, 0, len(c.Defines))
	for _, d := range c.Defines {
		out = append(out, prefix+d)
	}
	return out
}

// BuildName derives the cache key and configuration name of a pair.
func BuildName(target Target, flavor Flavor) string {
	return string(target) + "-" + string(flavor)
}

// Resolver produces build configurations.
type Resolver interface {
	Resolve(ctx context.Context, target Target, flavor Flavor, opts OptionSet) (BuildConfig, error)
}

// Cache stores resolved configurations by name. Implementations must hand
// out copies so that callers cannot corrupt the stored template.
type Cache interface {
	Get(name string) (BuildConfig, bool)
	// LoadOrStore inserts cfg when name is absent and returns the stored value.
	// loaded reports whether an existing entry won.
	LoadOrStore(name string, cfg BuildConfig) (stored BuildConfig, loaded bool)
}
