// Package interp implements the exodep script interpreter.
//
// A script is a line-based list of commands naming remote source files to
// synchronize into the local tree:
//
//	$owner codalogic
//	$project exodep
//	versions                 # load strand aliases from versions.exodep
//	copy src/parser.h include/
//	onchanged exec make
//
// # Execution model
//
// A Session holds the state shared by every script of one run: the set of
// scripts already processed and whether any file changed. Each script file
// (or in-memory script) gets its own context with a private copy of the
// variables, its own URI template and its own strand table. Included scripts
// receive a copy of the includer's variables; nothing flows back.
//
// Lines are dispatched one at a time through an ordered command table. The
// first grammar that matches owns the line. Conditional commands feed their
// payload back through the same dispatcher, so any command may follow
// onchanged, on $var, windows and friends.
//
// # Errors
//
// Every failure is reported to the session's Reporter as an Event carrying
// the script path and 1-based line number, and execution continues with the
// next line. Only failing to open the top-level script aborts a run.
//
// Execution is strictly sequential. A Session must not be used from more
// than one goroutine.
package interp
