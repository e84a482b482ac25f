//go:build !unix

package host

import (
	"runtime"
	"strings"
)

// Detect reports the running host from the Go runtime.
func Detect() Info {
	system := runtime.GOOS
	if system != "" {
		system = strings.ToUpper(system[:1]) + system[1:]
	}
	return Info{System: system, Machine: runtime.GOARCH}
}
