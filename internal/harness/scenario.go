package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultScript is the top-level script a scenario runs when it names none.
const DefaultScript = "main.exodep"

// Scenario defines a script run and what it must produce.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Script is the top-level script path. Defaults to DefaultScript.
	Script string `yaml:"script,omitempty"`

	// Platform is the GOOS matched by windows, linux and osx lines.
	// Defaults to "linux" so scenarios are portable.
	Platform string `yaml:"platform,omitempty"`

	// Variables are seeded into the top-level script.
	Variables map[string]string `yaml:"variables,omitempty"`

	// Files are written to the workspace before the first run.
	// The script itself and any included scripts live here.
	Files map[string]string `yaml:"files"`

	// Remote maps full URIs to the content served for them.
	Remote map[string]string `yaml:"remote,omitempty"`

	// Runs lists changes applied before each run. An empty list means a
	// single run with no changes.
	Runs []RunStep `yaml:"runs,omitempty"`

	// Assertions validate the trace and the final workspace.
	Assertions []Assertion `yaml:"assertions"`
}

// RunStep changes the world before one run.
type RunStep struct {
	// Remote adds or replaces served URIs.
	Remote map[string]string `yaml:"remote,omitempty"`

	// Files are written to the workspace before the run.
	Files map[string]string `yaml:"files,omitempty"`
}

// Assertion validates the trace or the final workspace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "event_contains": an event matches kind/path/line/error (and run, if set)
	// - "event_count": exactly Count events of Kind (in Run, if set)
	// - "path_order": sync decisions for Paths appear in this order
	// - "exec_order": exec commands appear exactly in this order
	// - "file_content": the workspace file at Path has Content
	// - "file_absent": nothing exists at Path
	// - "fetched": URI was requested at least once
	Type string `yaml:"type"`

	Run      int      `yaml:"run,omitempty"`
	Kind     string   `yaml:"kind,omitempty"`
	Path     string   `yaml:"path,omitempty"`
	Line     int      `yaml:"line,omitempty"`
	Error    string   `yaml:"error,omitempty"`
	Count    int      `yaml:"count,omitempty"`
	Paths    []string `yaml:"paths,omitempty"`
	Commands []string `yaml:"commands,omitempty"`
	Content  *string  `yaml:"content,omitempty"`
	URI      string   `yaml:"uri,omitempty"`
}

// Assertion type constants.
const (
	AssertEventContains = "event_contains"
	AssertEventCount    = "event_count"
	AssertPathOrder     = "path_order"
	AssertExecOrder     = "exec_order"
	AssertFileContent   = "file_content"
	AssertFileAbsent    = "file_absent"
	AssertFetched       = "fetched"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml scenario in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if _, ok := s.Files[s.script()]; !ok {
		return fmt.Errorf("files must contain the script %q", s.script())
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(a, len(s.runs())); err != nil {
			return fmt.Errorf("assertion %d: %w", i, err)
		}
	}

	return nil
}

func validateAssertion(a Assertion, runs int) error {
	if a.Run < 0 || a.Run > runs {
		return fmt.Errorf("run %d out of range 1..%d", a.Run, runs)
	}

	switch a.Type {
	case AssertEventContains:
		if a.Kind == "" {
			return fmt.Errorf("event_contains requires 'kind'")
		}
	case AssertEventCount:
		if a.Kind == "" {
			return fmt.Errorf("event_count requires 'kind'")
		}
		if a.Count < 0 {
			return fmt.Errorf("event_count 'count' must be non-negative")
		}
	case AssertPathOrder:
		if len(a.Paths) < 2 {
			return fmt.Errorf("path_order requires at least 2 'paths'")
		}
	case AssertExecOrder:
		if len(a.Commands) == 0 {
			return fmt.Errorf("exec_order requires 'commands'")
		}
	case AssertFileContent:
		if a.Path == "" || a.Content == nil {
			return fmt.Errorf("file_content requires 'path' and 'content'")
		}
	case AssertFileAbsent:
		if a.Path == "" {
			return fmt.Errorf("file_absent requires 'path'")
		}
	case AssertFetched:
		if a.URI == "" {
			return fmt.Errorf("fetched requires 'uri'")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

func (s *Scenario) script() string {
	if s.Script == "" {
		return DefaultScript
	}
	return s.Script
}

func (s *Scenario) runs() []RunStep {
	if len(s.Runs) == 0 {
		return []RunStep{{}}
	}
	return s.Runs
}
