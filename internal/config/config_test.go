package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/exodep/internal/fetch"
)

func TestParse_Full(t *testing.T) {
	data := []byte(`
hosting:
  mirror: https://mirror.example/${owner}/${project}/${strand}/${file}
variables:
  owner: codalogic
  empty: ""
fetch:
  timeout: 5s
  max_redirects: 2
  user_agent: test-agent
ledger: .exodep/ledger.db
max_expansions: 50
`)

	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "https://mirror.example/${owner}/${project}/${strand}/${file}", cfg.Hosting["mirror"])
	assert.Equal(t, map[string]string{"owner": "codalogic", "empty": ""}, cfg.Variables)
	assert.Equal(t, ".exodep/ledger.db", cfg.Ledger)
	assert.Equal(t, 50, cfg.MaxExpansions)
	assert.Equal(t, fetch.Options{
		Timeout:      5 * time.Second,
		MaxRedirects: 2,
		UserAgent:    "test-agent",
	}, cfg.Fetch.Options())
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)

	assert.Empty(t, cfg.Hosting)
	assert.Empty(t, cfg.Variables)
	assert.Equal(t, fetch.Options{}, cfg.Fetch.Options())
}

func TestParse_ZeroTimeoutDisables(t *testing.T) {
	cfg, err := Parse([]byte("fetch:\n  timeout: 0s\n"))
	require.NoError(t, err)

	assert.Equal(t, time.Duration(-1), cfg.Fetch.Options().Timeout)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown key", "max_redirect: 3\n", "field max_redirect not found"},
		{"nested unknown key", "fetch:\n  retries: 3\n", "field retries not found"},
		{"bad variable name", "variables:\n  bad-name: x\n", "not a valid variable name"},
		{"bad hosting name", "hosting:\n  my host: x\n", "not a valid variable name"},
		{"empty template", "hosting:\n  mirror: \"\"\n", "value is required"},
		{"negative expansions", "max_expansions: -1\n", "max_expansions"},
		{"too many redirects", "fetch:\n  max_redirects: 50\n", "max_redirects"},
		{"negative timeout", "fetch:\n  timeout: -1s\n", "timeout"},
		{"not a duration", "fetch:\n  timeout: soon\n", "failed to parse YAML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte("variables:\n  owner: me\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "me", cfg.Variables["owner"])

	assert.Equal(t, path, Locate(filepath.Join(dir, "mydeps.exodep")))
}

func TestLoad_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)

	_, err := Load(path)
	assert.ErrorIs(t, err, os.ErrNotExist)

	cfg, err := LoadOptional(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOptional_InvalidStillFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte("nope: 1\n"), 0644))

	_, err := LoadOptional(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestParseAssignments(t *testing.T) {
	vars, err := ParseAssignments([]string{"owner=me", "path=src/", "empty=", "eq=a=b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"owner": "me",
		"path":  "src/",
		"empty": "",
		"eq":    "a=b",
	}, vars)

	_, err = ParseAssignments([]string{"novalue"})
	assert.Error(t, err)

	_, err = ParseAssignments([]string{"bad name=x"})
	assert.Error(t, err)
}
