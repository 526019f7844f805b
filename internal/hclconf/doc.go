// Package hclconf loads loader configuration from HCL files.
//
// It translates the declarative surface (global settings, `module` blocks,
// `condition` blocks) into the format-agnostic config.Model. Conditional
// `when` predicates are retained as unevaluated expressions so the
// resolver can evaluate them against the loader's properties at
// resolution time.
package hclconf
