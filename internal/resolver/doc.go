// Package resolver computes the complete, cycle-free, dependency-first
// ordering of modules needed to satisfy a request.
//
// Traversal state is local to each pass: a visitation map plus the queue
// of pending names, never flags on the shared descriptors. A failed pass
// therefore leaves the registry untouched, and independent passes never
// observe each other.
package resolver
