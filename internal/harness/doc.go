// Package harness runs exodep scenarios: self-contained YAML descriptions
// of a workspace, the remote files a script fetches, one or more runs of
// the script, and assertions over what happened.
//
// Scenarios run against real interpreter sessions. Only the edges are
// faked: remote content is served from the scenario's fixtures and exec
// commands are recorded instead of run. Each run uses a fresh session, so
// a scenario with two runs checks idempotence the way a user re-running
// exodep would.
//
// Run works in the current working directory, which should be empty;
// tests chdir into t.TempDir() first and `exodep test` into a fresh
// temporary directory.
//
// # Golden traces
//
// RunWithGolden renders the trace and final workspace as text and compares
// it with testdata/golden/<scenario>.golden using goldie. Regenerate with:
//
//	go test ./internal/harness -update
//
// WriteGolden and MatchGolden read and write the same files outside tests.
package harness
