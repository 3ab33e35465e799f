// Package config loads the optional .exodep.yaml file that seeds a run.
//
// The file is decoded strictly: unknown keys are rejected so a typo such as
// "max_redirect:" fails loudly instead of being ignored.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/roach88/exodep/internal/fetch"
)

// DefaultFileName is looked up next to the script when --config is not given.
const DefaultFileName = ".exodep.yaml"

// Config is the decoded configuration file.
type Config struct {
	// Hosting adds provider templates or replaces built-in ones.
	Hosting map[string]string `yaml:"hosting" validate:"dive,keys,varname,endkeys,required"`

	// Variables are seeded into the top-level script before any --var flag.
	Variables map[string]string `yaml:"variables" validate:"dive,keys,varname,endkeys"`

	Fetch FetchConfig `yaml:"fetch"`

	// Ledger is the SQLite run ledger path. Empty disables the ledger.
	Ledger string `yaml:"ledger"`

	// MaxExpansions bounds substitutions per expansion. 0 keeps the default.
	MaxExpansions int `yaml:"max_expansions" validate:"gte=0"`
}

// FetchConfig tunes the HTTP client.
type FetchConfig struct {
	// Timeout applies per request. An explicit 0 disables it.
	Timeout *time.Duration `yaml:"timeout" validate:"omitempty,gte=0"`

	MaxRedirects int    `yaml:"max_redirects" validate:"gte=0,lte=20"`
	UserAgent    string `yaml:"user_agent"`
}

// Options converts the fetch settings to client options.
func (f FetchConfig) Options() fetch.Options {
	opts := fetch.Options{
		MaxRedirects: f.MaxRedirects,
		UserAgent:    f.UserAgent,
	}
	if f.Timeout != nil {
		opts.Timeout = *f.Timeout
		if opts.Timeout == 0 {
			opts.Timeout = -1
		}
	}
	return opts
}

// Default returns an empty configuration. Every zero value selects the
// built-in behaviour.
func Default() *Config {
	return &Config{
		Hosting:   map[string]string{},
		Variables: map[string]string{},
	}
}

// Locate returns the default config path for a script.
func Locate(script string) string {
	return filepath.Join(filepath.Dir(script), DefaultFileName)
}

// Load reads, decodes and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadOptional is Load, except that a missing file yields Default.
func LoadOptional(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Parse decodes and validates config YAML. An empty document is valid.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if cfg.Hosting == nil {
		cfg.Hosting = map[string]string{}
	}
	if cfg.Variables == nil {
		cfg.Variables = map[string]string{}
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

var namePattern = regexp.MustCompile(`^\w+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// varname accepts the names a script can reference as ${name}.
	_ = v.RegisterValidation("varname", func(fl validator.FieldLevel) bool {
		return namePattern.MatchString(fl.Field().String())
	})
	return v
}

// Validate checks cfg against its struct tags and reports the first
// failure by its YAML path.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fe := verrs[0]
	path := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "varname":
		return fmt.Errorf("%s: %q is not a valid variable name", path, fe.Value())
	case "required":
		return fmt.Errorf("%s: value is required", path)
	default:
		return fmt.Errorf("%s: failed %s=%s (got %v)", path, fe.Tag(), fe.Param(), fe.Value())
	}
}

// ParseAssignments parses --var flags of the form name=value.
func ParseAssignments(assignments []string) (map[string]string, error) {
	vars := make(map[string]string, len(assignments))
	for _, a := range assignments {
		name, value, ok := strings.Cut(a, "=")
		if !ok {
			return nil, fmt.Errorf("invalid variable %q: expected name=value", a)
		}
		if !namePattern.MatchString(name) {
			return nil, fmt.Errorf("invalid variable %q: %q is not a valid name", a, name)
		}
		vars[name] = value
	}
	return vars, nil
}
