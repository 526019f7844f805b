// Package registry provides the central bookkeeping for the module system.
//
// The Registry maps module names to their runtime descriptors: declared
// dependencies (rewritten to absolute form on insertion), fetch-path
// overrides, the factory that produces the implementation, and the
// lifecycle state a resolution pass and overlapping requests observe. It
// also owns the conditional-module index, mapping a trigger name to the
// modules that activate themselves when that trigger is requested.
//
// Registries are per-instance: each loader owns one, which keeps test
// loaders and parallel loader contexts fully isolated.
package registry
