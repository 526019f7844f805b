// Package config defines the format-agnostic configuration model for the
// module loader, along with the Loader interface for reading it from
// various sources.
//
// The `config.Model` is the single source of truth for the `registry`,
// `resolver`, and `urlbuilder` packages. Concrete implementations of the
// Loader interface, such as for HCL, are provided in separate packages.
package config
