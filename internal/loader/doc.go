// Package loader is the public entry point of the module runtime. It
// composes the registry, resolver, urlbuilder, and fetch packages: Define
// declares modules and realizes them once their dependencies exist,
// Request expands a set of module names into their full dependency
// closure, drives the asynchronous fetches, and hands back the realized
// implementations in request order.
package loader
