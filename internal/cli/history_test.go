package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/exodep/internal/store"
)

const (
	digestA = "0123456789abcdef0123456789abcdef"
	digestB = "fedcba9876543210fedcba9876543210"
)

// seedLedger records a finished run-a and an unfinished run-b.
func seedLedger(t *testing.T, path string) {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(path, store.WithIDGenerator(store.NewFixedGenerator("run-a", "run-b")))
	require.NoError(t, err)
	defer st.Close()

	first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	runA, err := st.BeginRun(ctx, "deps.exodep", first)
	require.NoError(t, err)
	require.NoError(t, st.AppendEvent(ctx, store.Event{
		RunID: runA.ID, Seq: 1, Kind: "created", Script: "deps.exodep", Line: 2,
		Path: "a.h", Source: "https://example.com/a.h", Digest: digestA,
	}))
	require.NoError(t, st.FinishRun(ctx, runA.ID, first.Add(time.Second), store.Counts{Created: 1}))

	runB, err := st.BeginRun(ctx, "deps.exodep", first.Add(24*time.Hour))
	require.NoError(t, err)
	require.NoError(t, st.AppendEvent(ctx, store.Event{
		RunID: runB.ID, Seq: 1, Kind: "updated", Script: "deps.exodep", Line: 2,
		Path: "a.h", Source: "https://example.com/a.h", Digest: digestB,
	}))
	require.NoError(t, st.AppendEvent(ctx, store.Event{
		RunID: runB.ID, Seq: 2, Kind: "error", Script: "deps.exodep", Line: 3,
		Message: "unrecognised command: bogus",
	}))
}

func TestHistory_ListRuns(t *testing.T) {
	dir := inTempDir(t)
	ledger := filepath.Join(dir, "ledger.db")
	seedLedger(t, ledger)

	stdout, _, err := execute(t, "history", "--ledger", ledger)
	require.NoError(t, err)
	assert.Equal(t,
		"run-b  2026-03-02T12:00:00Z  deps.exodep  unfinished\n"+
			"run-a  2026-03-01T12:00:00Z  deps.exodep  created=1 updated=0 unchanged=0 errors=0\n",
		stdout)
}

func TestHistory_Limit(t *testing.T) {
	dir := inTempDir(t)
	ledger := filepath.Join(dir, "ledger.db")
	seedLedger(t, ledger)

	stdout, _, err := execute(t, "history", "--ledger", ledger, "-n", "1")
	require.NoError(t, err)
	assert.Equal(t, "run-b  2026-03-02T12:00:00Z  deps.exodep  unfinished\n", stdout)
}

func TestHistory_RunEvents(t *testing.T) {
	dir := inTempDir(t)
	ledger := filepath.Join(dir, "ledger.db")
	seedLedger(t, ledger)

	stdout, _, err := execute(t, "history", "--ledger", ledger, "--run", "run-b")
	require.NoError(t, err)
	assert.Equal(t,
		"run-b  2026-03-02T12:00:00Z  deps.exodep  unfinished\n"+
			"   1  updated    deps.exodep:2  a.h\n"+
			"   2  error      deps.exodep:3  unrecognised command: bogus\n",
		stdout)
}

func TestHistory_UnknownRun(t *testing.T) {
	dir := inTempDir(t)
	ledger := filepath.Join(dir, "ledger.db")
	seedLedger(t, ledger)

	_, _, err := execute(t, "history", "--ledger", ledger, "--run", "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrRunNotFound)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestHistory_Path(t *testing.T) {
	dir := inTempDir(t)
	ledger := filepath.Join(dir, "ledger.db")
	seedLedger(t, ledger)

	stdout, _, err := execute(t, "history", "--ledger", ledger, "--path", "a.h")
	require.NoError(t, err)
	assert.Equal(t,
		"run-a  created    deps.exodep:2  0123456789ab\n"+
			"run-b  updated    deps.exodep:2  fedcba987654\n",
		stdout)
}

func TestHistory_JSON(t *testing.T) {
	dir := inTempDir(t)
	ledger := filepath.Join(dir, "ledger.db")
	seedLedger(t, ledger)

	stdout, _, err := execute(t, "--format", "json", "history", "--ledger", ledger, "--run", "run-a")
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   runDetailJSON `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-a", resp.Data.Run.ID)
	require.NotNil(t, resp.Data.Run.FinishedAt)
	assert.Equal(t, store.Counts{Created: 1}, resp.Data.Run.Counts)
	require.Len(t, resp.Data.Events, 1)
	assert.Equal(t, digestA, resp.Data.Events[0].Digest)
}

func TestHistory_EmptyLedger(t *testing.T) {
	dir := inTempDir(t)
	ledger := filepath.Join(dir, "ledger.db")
	st, err := store.Open(ledger)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	stdout, _, err := execute(t, "history", "--ledger", ledger)
	require.NoError(t, err)
	assert.Equal(t, "No runs recorded.\n", stdout)
}

func TestHistory_LedgerFromConfig(t *testing.T) {
	dir := inTempDir(t)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "conf"), 0755))
	seedLedger(t, filepath.Join(dir, "conf", "ledger.db"))
	writeFile(t, filepath.Join("conf", "exodep.yaml"), "ledger: ledger.db\n")

	stdout, _, err := execute(t, "history", "--config", filepath.Join("conf", "exodep.yaml"), "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, stdout, "run-b")
}

func TestHistory_Errors(t *testing.T) {
	inTempDir(t)

	_, _, err := execute(t, "history")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no ledger configured")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, _, err = execute(t, "history", "--ledger", "missing.db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger not found")

	_, _, err = execute(t, "history", "--ledger", "missing.db", "--run", "a", "--path", "b")
	require.Error(t, err)
}

func TestHistory_JSONCommandError(t *testing.T) {
	inTempDir(t)

	stdout, stderr, err := execute(t, "history", "--format", "json", "--ledger", "missing.db")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Empty(t, stderr)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeCommandError, resp.Error.Code)
	assert.Equal(t, "ledger not found", resp.Error.Message)

	var printed bytes.Buffer
	PrintError(&printed, err)
	assert.Empty(t, printed.String())
}

func TestHistory_JSONNoLedgerConfigured(t *testing.T) {
	inTempDir(t)

	stdout, _, err := execute(t, "history", "--format", "json")
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeCommandError, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "no ledger configured")
	assert.Nil(t, resp.Error.Details)
}
