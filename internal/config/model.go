package config

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// DefaultURLMaxLength caps the length of a combined fetch URL when the
// configuration does not set one explicitly.
const DefaultURLMaxLength = 2000

// Model is the unified, format-agnostic representation of the entire
// loader configuration: global settings plus every declared module.
type Model struct {
	Settings Settings
	Modules  []*Module
}

// Settings holds the non-module configuration values shared by every
// resolution pass and fetch.
type Settings struct {
	// BasePath is prefixed to every module's relative path when building
	// fetch URLs.
	BasePath string
	// URL is the base address of the server that serves module code.
	URL string
	// Combine enables batching eligible modules into combined fetch URLs.
	Combine bool
	// URLMaxLength bounds the length of a combined URL; batches are split
	// so no emitted URL exceeds it.
	URLMaxLength int
	// Properties is the variable namespace available to conditional-module
	// predicates as `props`.
	Properties map[string]cty.Value
}

// Module is the format-agnostic representation of a `module` block.
type Module struct {
	Name      string
	Deps      []string
	Path      string
	FullPath  string
	Condition *Condition
}

// Condition declares a module as conditionally activated: when Trigger is
// part of a request and the predicate holds, the module joins the request.
// Exactly one of When (a retained configuration expression) or Test (a
// programmatic predicate) provides the predicate; a Condition with neither
// always holds.
type Condition struct {
	Trigger string
	When    hcl.Expression
	Test    func() bool
}

// Normalize applies defaults to settings left unset by the source.
func (m *Model) Normalize() {
	if m.Settings.URLMaxLength <= 0 {
		m.Settings.URLMaxLength = DefaultURLMaxLength
	}
	if m.Settings.Properties == nil {
		m.Settings.Properties = map[string]cty.Value{}
	}
}
