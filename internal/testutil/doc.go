// Package testutil provides deterministic collaborators for running
// scripts in tests: a fetcher serving fixed content and an exec runner
// that records commands instead of running them.
package testutil
