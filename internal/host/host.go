// Package host describes the machine the process runs on and picks the
// build target that matches it.
package host

import (
	"strings"

	"github.com/eugenenazirov/buildenv/internal/buildcfg"
)

// Info names the host operating system and machine, as uname reports them.
type Info struct {
	System  string
	Machine string
}

// DefaultTarget returns the target to build for when none is requested.
// Hosts without platform rules yield their system name, which the resolver
// then rejects as unsupported.
func DefaultTarget(info Info) buildcfg.Target {
	machine := strings.ToLower(info.Machine)
	switch strings.ToLower(info.System) {
	case "linux":
		if is32Bit(machine) {
			return buildcfg.LinuxI386
		}
		return buildcfg.LinuxX86_64
	case "windows":
		if is32Bit(machine) {
			return buildcfg.WindowsX86
		}
		return buildcfg.WindowsX64
	}
	return buildcfg.Target(info.System)
}

func is32Bit(machine string) bool {
	switch machine {
	case "i386", "i486", "i586", "i686", "x86", "386":
		return true
	}
	return false
}
