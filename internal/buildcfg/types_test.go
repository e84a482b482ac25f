package buildcfg

import (
	"errors"
	"fmt"
	"slices"
	"testing"
)

func TestNamingPaths(t *testing.T) {
	t.Parallel()

	linux := families[FamilyLinux].naming
	linux.OutputDir = "build/Linux-x86_64-release"
	windows := families[FamilyWindows].naming
	windows.OutputDir = "build/Windows-x64-release"

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"LinuxObject", linux.Object("src/main.cpp"), "build/Linux-x86_64-release/src/main.o"},
		{"LinuxStatic", linux.StaticLibrary("core"), "build/Linux-x86_64-release/libcore.a"},
		{"LinuxShared", linux.SharedLibrary("core"), "build/Linux-x86_64-release/libcore.so"},
		{"LinuxProgram", linux.Program("tool"), "build/Linux-x86_64-release/tool"},
		{"WindowsObject", windows.Object("main.c"), "build/Windows-x64-release/main.obj"},
		{"WindowsStatic", windows.StaticLibrary("core"), "build/Windows-x64-release/core.lib"},
		{"WindowsShared", windows.SharedLibrary("core"), "build/Windows-x64-release/core.dll"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.want, tt.got)
		}
	}
}

func TestBuildConfigCloneIsDeep(t *testing.T) {
	t.Parallel()

	cfg := BuildConfig{
		CompilerFlags: []string{"-O2"},
		LinkerFlags:   []string{"-g2"},
		Defines:       []string{"NDEBUG"},
	}
	clone := cfg.Clone()
	clone.CompilerFlags[0] = "-O0"
	clone.LinkerFlags[0] = "-g0"
	clone.Defines[0] = "DEBUG"

	if cfg.CompilerFlags[0] != "-O2" || cfg.LinkerFlags[0] != "-g2" || cfg.Defines[0] != "NDEBUG" {
		t.Fatalf("clone shares storage with the source: %+v", cfg)
	}
}

func TestDefineFlags(t *testing.T) {
	t.Parallel()

	linux := BuildConfig{Family: FamilyLinux, Defines: []string{"NDEBUG", "A=1"}}
	if got, want := linux.DefineFlags(), []string{"-DNDEBUG", "-DA=1"}; !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	windows := BuildConfig{Family: FamilyWindows, Defines: []string{"WIN32"}}
	if got, want := windows.DefineFlags(), []string{"/DWIN32"}; !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestParseTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Target
		wantErr bool
	}{
		{"Linux-x86_64", LinuxX86_64, false},
		{" Linux-i386 ", LinuxI386, false},
		{"Lnx32", LinuxI386, false},
		{"lnx64", LinuxX86_64, false},
		{"WIN64", WindowsX64, false},
		{"Win32", WindowsX86, false},
		{"linux-x86_64", "", true},
		{"Darwin-arm64", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseTarget(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnsupportedTarget) {
				t.Errorf("ParseTarget(%q): expected unsupported target, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseTarget(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestTargetsAreSortedAndMapped(t *testing.T) {
	t.Parallel()

	got := Targets()
	want := []Target{LinuxI386, LinuxX86_64, WindowsX64, WindowsX86}
	if !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for _, target := range got {
		if _, ok := families[target.Family()]; !ok {
			t.Fatalf("target %s has no family rules", target)
		}
	}
	if Target("Bogus").Family() != "" {
		t.Fatalf("unknown target reported a family")
	}
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"Nil", nil, 0},
		{"UnknownOption", &UnknownOptionError{Keys: []string{"x"}}, ExitOptionError},
		{"InvalidValue", &OptionValueError{Key: "debug", Value: "2"}, ExitOptionError},
		{"UnsupportedTarget", &UnsupportedTargetError{Target: "x"}, ExitUnsupportedTarget},
		{"WrappedTarget", fmt.Errorf("resolve: %w", &UnsupportedTargetError{Target: "x"}), ExitUnsupportedTarget},
		{"UnsupportedFlavor", &UnsupportedFlavorError{Flavor: "x"}, ExitUnsupportedTarget},
		{"Plain", errors.New("boom"), 1},
	}

	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("%s: expected %d, got %d", tt.name, tt.want, got)
		}
	}
}
