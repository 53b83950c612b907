// Package mode resolves and publishes the record/replay operating mode.
//
// A mode is chosen once per test from two independent intents ("store" and
// "mock") and never changes afterwards. The resolved mode is published two
// ways: through a context value for code that is handed a context, and
// through the PMSM_MODE environment variable for code that is not (the
// skip helper in internal/fixture).
package mode

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// Mode is the operating mode of the record/replay fixture.
type Mode int

const (
	// Passthrough uses the real client unchanged.
	Passthrough Mode = iota
	// Record uses the real client and captures every observable outcome.
	Record
	// Replay serves captured outcomes without touching the real client.
	Replay
)

// EnvVar holds the published mode string while a test runs.
const EnvVar = "PMSM_MODE"

// Published mode strings, as read by SkipForDBMocking and external tooling.
const (
	publishedPassthrough = "Normal"
	publishedRecord      = "Store Data"
	publishedReplay      = "Mock"
)

// String returns the published mode string.
func (m Mode) String() string {
	switch m {
	case Passthrough:
		return publishedPassthrough
	case Record:
		return publishedRecord
	case Replay:
		return publishedReplay
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Parse converts a published mode string back to a Mode.
func Parse(s string) (Mode, error) {
	switch s {
	case publishedPassthrough:
		return Passthrough, nil
	case publishedRecord:
		return Record, nil
	case publishedReplay:
		return Replay, nil
	default:
		return Passthrough, fmt.Errorf("unknown mode %q", s)
	}
}

// ConfigurationError reports mutually exclusive or incomplete mode intents.
type ConfigurationError struct {
	Reason string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// IsConfigurationError returns true if err is a ConfigurationError.
// Uses errors.As to handle wrapped errors.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// Intent is the raw, unvalidated mode selection.
type Intent struct {
	// Store requests RECORD.
	Store bool
	// Mock requests REPLAY.
	Mock bool
	// Root is an explicitly configured snapshot root (flag or option).
	Root string
	// EnvRoot is the environment-supplied default root.
	EnvRoot string
}

// Resolution is a validated mode plus the snapshot root it will use.
type Resolution struct {
	Mode Mode
	Root string
}

// Resolve validates intent and selects exactly one Mode.
//
// Root resolution: explicit Root, then EnvRoot, then (PASSTHROUGH only)
// os.TempDir(). RECORD and REPLAY require one of the first two.
func Resolve(in Intent) (Resolution, error) {
	if in.Store && in.Mock {
		return Resolution{}, &ConfigurationError{
			Reason: "store and mock are mutually exclusive",
		}
	}

	root := in.Root
	if root == "" {
		root = in.EnvRoot
	}

	if (in.Store || in.Mock) && root == "" {
		return Resolution{}, &ConfigurationError{
			Reason: "a snapshot directory is required when storing or mocking database data " +
				"(use -db-data-dir or set PMSM_DATA_DIR)",
		}
	}

	switch {
	case in.Store:
		return Resolution{Mode: Record, Root: root}, nil
	case in.Mock:
		return Resolution{Mode: Replay, Root: root}, nil
	}

	if root == "" {
		root = os.TempDir()
	}
	return Resolution{Mode: Passthrough, Root: root}, nil
}

// Publish sets EnvVar to m's published string using setenv.
// Tests pass t.Setenv so the value is restored when the test ends.
func Publish(m Mode, setenv func(key, value string)) {
	setenv(EnvVar, m.String())
}

// Active returns the currently published mode. An unset or unknown value
// means PASSTHROUGH.
func Active() Mode {
	m, _ := Published()
	return m
}

// Published returns the mode published in EnvVar. ok is false when the
// variable is unset or holds an unknown value.
func Published() (m Mode, ok bool) {
	m, err := Parse(os.Getenv(EnvVar))
	if err != nil {
		return Passthrough, false
	}
	return m, true
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying m.
func NewContext(ctx context.Context, m Mode) context.Context {
	return context.WithValue(ctx, contextKey{}, m)
}

// FromContext returns the mode carried by ctx, if any.
func FromContext(ctx context.Context) (Mode, bool) {
	m, ok := ctx.Value(contextKey{}).(Mode)
	return m, ok
}
