package hclconf

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/edalgrin/amdloader/internal/config"
	"github.com/edalgrin/amdloader/internal/ctxlog"
	"github.com/edalgrin/amdloader/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// fileRoot decodes the top-level surface of one configuration file.
// Settings attributes are pointers so a later file can override an earlier
// one without a zero value clobbering it.
type fileRoot struct {
	BasePath     *string        `hcl:"base_path,optional"`
	URL          *string        `hcl:"url,optional"`
	Combine      *bool          `hcl:"combine,optional"`
	URLMaxLength *int           `hcl:"url_max_length,optional"`
	Properties   *cty.Value     `hcl:"properties,optional"`
	Modules      []*moduleBlock `hcl:"module,block"`
}

type moduleBlock struct {
	Name      string          `hcl:"name,label"`
	Deps      []string        `hcl:"deps,optional"`
	Path      string          `hcl:"path,optional"`
	FullPath  string          `hcl:"full_path,optional"`
	Condition *conditionBlock `hcl:"condition,block"`
}

type conditionBlock struct {
	Trigger string         `hcl:"trigger"`
	When    hcl.Expression `hcl:"when"`
}

// Load orchestrates the HCL configuration loading process. Each path may
// be a single .hcl file or a directory searched recursively; blocks from
// every discovered file merge into one model, later files overriding
// earlier ones where they collide.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := l.findFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	model := &config.Model{}
	byName := make(map[string]int)
	parser := hclparse.NewParser()

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		if err := mergeSettings(&model.Settings, &root); err != nil {
			return nil, fmt.Errorf("invalid settings in %s: %w", file, err)
		}

		for _, block := range root.Modules {
			mod := translateModule(block)
			if idx, ok := byName[mod.Name]; ok {
				model.Modules[idx] = mod
				continue
			}
			byName[mod.Name] = len(model.Modules)
			model.Modules = append(model.Modules, mod)
		}
	}

	model.Normalize()
	logger.Debug("HCL loading complete.", "modules", len(model.Modules))
	return model, nil
}

func mergeSettings(s *config.Settings, root *fileRoot) error {
	if root.BasePath != nil {
		s.BasePath = *root.BasePath
	}
	if root.URL != nil {
		s.URL = *root.URL
	}
	if root.Combine != nil {
		s.Combine = *root.Combine
	}
	if root.URLMaxLength != nil {
		s.URLMaxLength = *root.URLMaxLength
	}
	if root.Properties != nil {
		v := *root.Properties
		if v.IsNull() || !v.IsKnown() {
			return fmt.Errorf("properties must be a known object value")
		}
		if !v.Type().IsObjectType() && !v.Type().IsMapType() {
			return fmt.Errorf("properties must be an object, got %s", v.Type().FriendlyName())
		}
		if s.Properties == nil {
			s.Properties = map[string]cty.Value{}
		}
		for key, val := range v.AsValueMap() {
			s.Properties[key] = val
		}
	}
	return nil
}

func translateModule(block *moduleBlock) *config.Module {
	mod := &config.Module{
		Name:     block.Name,
		Deps:     block.Deps,
		Path:     block.Path,
		FullPath: block.FullPath,
	}
	if block.Condition != nil {
		mod.Condition = &config.Condition{
			Trigger: block.Condition.Trigger,
			When:    block.Condition.When,
		}
	}
	return mod
}

// findFiles expands the given paths into the flat list of .hcl files they
// name, preserving path order and dropping duplicates.
func (l *Loader) findFiles(paths []string) ([]string, error) {
	var all []string
	seen := make(map[string]struct{})

	add := func(file string) {
		if _, ok := seen[file]; ok {
			return
		}
		seen[file] = struct{}{}
		all = append(all, file)
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue // A configured path that does not exist is not an error.
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			add(path)
			continue
		}

		found, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, err
		}
		for _, file := range found {
			add(file)
		}
	}

	return all, nil
}
