// Package urlbuilder turns an ordered list of not-yet-loaded modules into
// the set of network fetches needed to load them, batching eligible
// modules into combined requests when the configuration allows it.
package urlbuilder

import (
	"strings"

	"github.com/edalgrin/amdloader/internal/config"
	"github.com/edalgrin/amdloader/internal/registry"
)

const scriptExtension = ".js"

// Build consumes the ordered module names and returns the URLs to fetch,
// marking every listed module as loading. Marking is idempotent, so
// re-listing an already-loading module is harmless.
func Build(settings config.Settings, reg *registry.Registry, ordered []string) []string {
	for _, name := range ordered {
		if d, ok := reg.Lookup(name); ok {
			d.MarkLoading()
		}
	}
	return Plan(settings, reg, ordered)
}

// Plan computes the URLs Build would fetch without touching any load
// state. Modules with a full-path override are fetched directly and never
// batched. With combining off, each remaining module gets its own direct
// URL. With combining on, relative paths accumulate into combined URLs of
// the form url?basePath+p1&basePath+p2..., split so no emitted URL
// exceeds the configured length cap; a module that cannot fit alone is
// still emitted alone.
func Plan(settings config.Settings, reg *registry.Registry, ordered []string) []string {
	var urls []string
	var batch []string
	batchLen := len(settings.URL) + 1 // trailing "?"

	flush := func() {
		if len(batch) == 0 {
			return
		}
		urls = append(urls, settings.URL+"?"+strings.Join(batch, "&"))
		batch = batch[:0]
		batchLen = len(settings.URL) + 1
	}

	for _, name := range ordered {
		d, ok := reg.Lookup(name)
		if !ok {
			continue
		}

		if d.FullPath != "" {
			urls = append(urls, d.FullPath)
			continue
		}

		part := settings.BasePath + modulePath(d)
		if !settings.Combine {
			urls = append(urls, settings.URL+part)
			continue
		}

		cost := len(part)
		if len(batch) > 0 {
			cost++ // the "&" separator
		}
		if settings.URLMaxLength > 0 && len(batch) > 0 && batchLen+cost > settings.URLMaxLength {
			flush()
			cost = len(part)
		}
		batch = append(batch, part)
		batchLen += cost
	}
	flush()

	return urls
}

// modulePath returns the relative fetch path for a module: its explicit
// path override when present, otherwise its name with the script extension
// appended unless the name already carries it.
func modulePath(d *registry.Descriptor) string {
	if d.Path != "" {
		return d.Path
	}
	if strings.HasSuffix(d.Name, scriptExtension) {
		return d.Name
	}
	return d.Name + scriptExtension
}
