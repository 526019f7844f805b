// Package testutil provides shared helpers for integration-style tests:
// a thread-safe output buffer, an HCL fixture writer, a full-app harness,
// and a CDN stub that plays the remote end of the module loader.
package testutil
