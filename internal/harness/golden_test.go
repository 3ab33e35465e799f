package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenarios runs every scenario under testdata/scenarios and compares
// its trace with the matching golden file. To regenerate after an intended
// behavior change:
//
//	go test ./internal/harness -run TestScenarios -update
func TestScenarios(t *testing.T) {
	goldenDir, err := filepath.Abs(filepath.Join("testdata", "golden"))
	require.NoError(t, err)

	scenarios, err := LoadScenarios(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			t.Chdir(t.TempDir())

			result, err := RunWithGolden(t, s, goldenDir)
			require.NoError(t, err)
			assert.True(t, result.Pass, "assertion failures:\n%v", result.Errors)
		})
	}
}

func TestRenderTrace(t *testing.T) {
	result := NewResult()
	result.Trace = []TraceEvent{
		{Run: 1, Type: TraceTypeEvent, Seq: 1, Kind: "created", Script: "main.exodep", Line: 1, Path: "a.h", Source: "https://example.com/a.h"},
		{Run: 1, Type: TraceTypeExec, Command: "make", Dir: "."},
		{Run: 2, Type: TraceTypeEvent, Seq: 1, Kind: "error", Script: "main.exodep", Line: 2, ErrorKind: "FETCH_FAILURE", Message: "unable to retrieve b.h"},
	}
	result.Files = map[string]string{"main.exodep": "x\n", "a.h": "A"}

	want := `scenario demo

run 1
  1 created main.exodep:1 a.h <- https://example.com/a.h
  exec [.] make

run 2
  1 error main.exodep:2 FETCH_FAILURE: unable to retrieve b.h

files
  a.h "A"
  main.exodep "x\n"
`
	assert.Equal(t, want, string(RenderTrace("demo", result)))
}

func TestWriteAndMatchGolden(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "golden")
	result := NewResult()
	result.Files = map[string]string{"a.h": "A"}

	_, err := MatchGolden(dir, "demo", result)
	require.Error(t, err)

	require.NoError(t, WriteGolden(dir, "demo", result))
	assert.FileExists(t, GoldenPath(dir, "demo"))

	match, err := MatchGolden(dir, "demo", result)
	require.NoError(t, err)
	assert.True(t, match)

	result.Files["a.h"] = "B"
	match, err = MatchGolden(dir, "demo", result)
	require.NoError(t, err)
	assert.False(t, match)
}
