// Package config loads record/replay settings from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/roach88/dbtape/internal/mode"
)

// Environment variable names.
const (
	EnvDataDir = "PMSM_DATA_DIR"
	EnvStore   = "PMSM_STORE_DB_DATA"
	EnvMock    = "PMSM_MOCK_DB_DATA"
)

// Settings are the environment-supplied defaults. Command-line flags take
// precedence over every field.
type Settings struct {
	DataDir string `env:"PMSM_DATA_DIR"`
	Store   bool   `env:"PMSM_STORE_DB_DATA" envDefault:"false"`
	Mock    bool   `env:"PMSM_MOCK_DB_DATA" envDefault:"false"`
}

// Load parses Settings from the process environment.
func Load() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	return s, nil
}

// Overrides are values given explicitly on the command line. A nil pointer
// means the flag was not set.
type Overrides struct {
	Store   *bool
	Mock    *bool
	DataDir string
}

// Intent merges overrides over s into a mode.Intent.
// DataDir from the environment becomes EnvRoot; an explicit DataDir
// override becomes Root.
func (s Settings) Intent(o Overrides) mode.Intent {
	in := mode.Intent{
		Store:   s.Store,
		Mock:    s.Mock,
		Root:    o.DataDir,
		EnvRoot: s.DataDir,
	}
	if o.Store != nil {
		in.Store = *o.Store
	}
	if o.Mock != nil {
		in.Mock = *o.Mock
	}
	return in
}
