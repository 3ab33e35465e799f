// Package fetch retrieves the content of source files named by a script.
//
// A source is either an absolute http(s) URI, fetched with a fasthttp
// client, or a local path read from disk. Text-mode fetches normalize line
// endings so that a file served with CRLF endings compares equal to the same
// file served with LF endings.
package fetch
