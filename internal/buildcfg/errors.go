package buildcfg

import (
	"errors"
	"fmt"
	"strings"
)

// Process exit statuses for configuration failures.
const (
	ExitOptionError       = 1
	ExitUnsupportedTarget = 2
)

var (
	// ErrUnknownOption is returned when an option key is not part of the schema.
	ErrUnknownOption = errors.New("unknown option")
	// ErrInvalidOptionValue is returned when an option value cannot be parsed.
	ErrInvalidOptionValue = errors.New("invalid option value")
	// ErrUnsupportedTarget is returned for target identifiers with no platform rules.
	ErrUnsupportedTarget = errors.New("unsupported target")
	// ErrUnsupportedFlavor is returned for flavors other than debug and release.
	ErrUnsupportedFlavor = errors.New("unsupported build flavor")
)

// UnknownOptionError lists the unrecognised option keys together with the
// help text of the options that are recognised.
type UnknownOptionError struct {
	Keys []string
	Help string
}

func (e *UnknownOptionError) Error() string {
	return fmt.Sprintf("unknown options: %s", strings.Join(e.Keys, ", "))
}

func (e *UnknownOptionError) Unwrap() error { return ErrUnknownOption }

func (e *UnknownOptionError) ExitCode() int { return ExitOptionError }

// OptionValueError reports a value that does not fit the option's type.
type OptionValueError struct {
	Key   string
	Value string
	// Want names the expected kind of value, e.g. "boolean".
	Want string
}

func (e *OptionValueError) Error() string {
	want := e.Want
	if want == "" {
		want = "value"
	}
	return fmt.Sprintf("option %s: invalid %s %q", e.Key, want, e.Value)
}

func (e *OptionValueError) Unwrap() error { return ErrInvalidOptionValue }

func (e *OptionValueError) ExitCode() int { return ExitOptionError }

// UnsupportedTargetError names a target that has no platform rules.
type UnsupportedTargetError struct {
	Target string
}

func (e *UnsupportedTargetError) Error() string {
	return fmt.Sprintf("target %s not defined", e.Target)
}

func (e *UnsupportedTargetError) Unwrap() error { return ErrUnsupportedTarget }

func (e *UnsupportedTargetError) ExitCode() int { return ExitUnsupportedTarget }

// UnsupportedFlavorError names a flavor other than debug or release.
type UnsupportedFlavorError struct {
	Flavor string
}

func (e *UnsupportedFlavorError) Error() string {
	return fmt.Sprintf("build flavor %s not defined", e.Flavor)
}

func (e *UnsupportedFlavorError) Unwrap() error { return ErrUnsupportedFlavor }

func (e *UnsupportedFlavorError) ExitCode() int { return ExitUnsupportedTarget }

// ExitCode maps err to a process exit status. Errors that do not carry their
// own status exit with 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coded interface{ ExitCode() int }
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}
	return 1
}
