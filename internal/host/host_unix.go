//go:build unix

package host

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// Detect reports the running host using uname(2).
func Detect() Info {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return fromRuntime()
	}
	return Info{
		System:  unix.ByteSliceToString(uts.Sysname[:]),
		Machine: unix.ByteSliceToString(uts.Machine[:]),
	}
}

func fromRuntime() Info {
	return Info{System: runtime.GOOS, Machine: runtime.GOARCH}
}
