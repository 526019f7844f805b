// Package modpath resolves relative module identifiers against the
// identifier of the module that references them. Identifiers are
// slash-separated names, not filesystem paths, so the rules here are
// deliberately independent of path/filepath and the host OS.
package modpath
