package harness

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// Scenario is a scripted client session that is recorded, replayed and
// compared.
type Scenario struct {
	// Name identifies the scenario and names its snapshot and golden files.
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario exercises.
	Description string `yaml:"description" json:"description"`

	// Setup holds SQL statements run on the real connection before the
	// steps. Setup is not recorded and is skipped on replay.
	Setup []string `yaml:"setup,omitempty" json:"setup,omitempty"`

	// Steps are the member calls, in order.
	Steps []Step `yaml:"steps" json:"steps"`
}

// Step is one member call on the connection or on a named cursor.
type Step struct {
	// On is "connection" or a cursor name. A cursor is created on first use.
	On string `yaml:"on" json:"on"`

	// Call is the member, named as in the ledger ("execute", "fetchone",
	// "get_server_info", ...).
	Call string `yaml:"call" json:"call"`

	// Query is the SQL for execute, executemany and mogrify, or the
	// procedure name for callproc.
	Query string `yaml:"query,omitempty" json:"query,omitempty"`

	// Args are positional arguments.
	Args []any `yaml:"args,omitempty" json:"args,omitempty"`

	// ArgSets are the argument lists of executemany.
	ArgSets [][]any `yaml:"arg_sets,omitempty" json:"arg_sets,omitempty"`

	// Size is the fetchmany size, the scroll offset, the arraysize or the
	// thread id to kill.
	Size int `yaml:"size,omitempty" json:"size,omitempty"`

	// Value is the argument of escape, literal, escape_string, autocommit,
	// select_db and set_charset.
	Value any `yaml:"value,omitempty" json:"value,omitempty"`

	// Mode is the scroll mode, "relative" (default) or "absolute".
	Mode string `yaml:"mode,omitempty" json:"mode,omitempty"`

	// Expect checks the outcome during the recording run. Optional.
	Expect *Expect `yaml:"expect,omitempty" json:"expect,omitempty"`
}

// Expect is the expected outcome of a step.
type Expect struct {
	// Error is the expected error kind, e.g. "IntegrityError".
	Error string `yaml:"error,omitempty" json:"error,omitempty"`

	// Value is the expected result. Compared by canonical encoding.
	Value any `yaml:"value,omitempty" json:"value,omitempty"`

	// Null expects a null result (end of result set, no description).
	Null bool `yaml:"null,omitempty" json:"null,omitempty"`
}

// FacetConnection is the Step.On value addressing the connection.
const FacetConnection = "connection"

// Members a step may call, by facet.
var (
	connectionCalls = map[string]bool{
		"open": true, "get_autocommit": true, "autocommit": true,
		"begin": true, "commit": true, "rollback": true, "ping": true,
		"escape": true, "literal": true, "escape_string": true,
		"insert_id": true, "get_server_info": true, "get_host_info": true,
		"get_proto_info": true, "thread_id": true, "character_set_name": true,
		"show_warnings": true, "kill": true, "select_db": true,
		"set_charset": true, "affected_rows": true, "close": true,
	}
	cursorCalls = map[string]bool{
		"execute": true, "executemany": true, "mogrify": true, "callproc": true,
		"fetchone": true, "fetchmany": true, "fetchall": true, "nextset": true,
		"scroll": true, "description": true, "rowcount": true, "rownumber": true,
		"lastrowid": true, "arraysize": true, "set_arraysize": true, "close": true,
	}
)

var scenarioName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

//go:embed scenario.cue
var scenarioSchema string

// LoadScenario reads a scenario file. The format follows the extension:
// .yaml/.yml are decoded strictly (unknown fields are errors), .cue files
// are unified with the #Scenario schema and must be concrete.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var sc *Scenario
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		sc, err = ParseYAML(data)
	case ".cue":
		sc, err = ParseCUE(data, path)
	default:
		return nil, fmt.Errorf("unsupported scenario format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// ParseYAML decodes and validates a YAML scenario.
func ParseYAML(data []byte) (*Scenario, error) {
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &sc, nil
}

// ParseCUE unifies a CUE scenario with the #Scenario schema and decodes it.
// filename is used in error positions.
func ParseCUE(data []byte, filename string) (*Scenario, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(scenarioSchema, cue.Filename("scenario.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile scenario schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse CUE: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Scenario")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	var sc Scenario
	if err := unified.Decode(&sc); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if err := validateScenario(&sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &sc, nil
}

// validateScenario checks required fields and that every step names a
// member of its facet.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if !scenarioName.MatchString(s.Name) {
		return fmt.Errorf("name %q may only contain letters, digits, '_' and '-'", s.Name)
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.On == "" {
			return fmt.Errorf("steps[%d]: on is required", i)
		}
		if step.Call == "" {
			return fmt.Errorf("steps[%d]: call is required", i)
		}
		calls := cursorCalls
		if step.On == FacetConnection {
			calls = connectionCalls
		}
		if !calls[step.Call] {
			return fmt.Errorf("steps[%d]: %q is not a member of %s", i, step.Call, facetName(step.On))
		}
		if step.Mode != "" && step.Mode != "relative" && step.Mode != "absolute" {
			return fmt.Errorf("steps[%d]: unknown scroll mode %q", i, step.Mode)
		}
		if e := step.Expect; e != nil && e.Error != "" && (e.Value != nil || e.Null) {
			return fmt.Errorf("steps[%d].expect: error and value are mutually exclusive", i)
		}
	}
	return nil
}

func facetName(on string) string {
	if on == FacetConnection {
		return "the connection"
	}
	return "cursor " + on
}
