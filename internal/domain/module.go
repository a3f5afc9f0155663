package domain

import (
	"fmt"
	"slices"
)

// ModuleConfig describes where a module's source lives.
// Identity is Name; two configs with the same name describe the same module.
type ModuleConfig struct {
	// Name is the module name as known to the host framework
	Name string `toml:"name" json:"name"`

	// Files are fetched, in order, before the module's declarations exist
	Files []string `toml:"files" json:"files,omitempty"`

	// Template is an optional view fetched by an Outlet after loading
	Template string `toml:"template" json:"template,omitempty"`

	// Onload is an optional expression evaluated in the Outlet's child scope
	Onload string `toml:"onload" json:"onload,omitempty"`
}

// Validate reports whether the config can be registered.
func (c ModuleConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: module config without name", ErrInvalidConfig)
	}
	return nil
}

// HasFiles reports whether anything has to be fetched for this module.
func (c ModuleConfig) HasFiles() bool {
	return len(c.Files) > 0
}

// Equal reports whether two configs are identical, field by field.
func (c ModuleConfig) Equal(o ModuleConfig) bool {
	return c.Name == o.Name &&
		c.Template == o.Template &&
		c.Onload == o.Onload &&
		slices.Equal(c.Files, o.Files)
}

// Clone returns a copy that shares no slices with c.
func (c ModuleConfig) Clone() ModuleConfig {
	c.Files = slices.Clone(c.Files)
	return c
}

// Ref references a module either by bare name or by inline configuration.
// When Config is set, its Name wins over the Name field.
type Ref struct {
	Name   string
	Config *ModuleConfig
}

// NameRef references a module by name only.
func NameRef(name string) Ref {
	return Ref{Name: name}
}

// ConfigRef references a module through an inline configuration.
func ConfigRef(cfg ModuleConfig) Ref {
	c := cfg.Clone()
	return Ref{Name: c.Name, Config: &c}
}

// ModuleName resolves the referenced module name. It is empty when the
// reference is malformed.
func (r Ref) ModuleName() string {
	if r.Config != nil {
		return r.Config.Name
	}
	return r.Name
}

// Inline reports whether the reference carries its own configuration.
func (r Ref) Inline() bool {
	return r.Config != nil
}

// String implements fmt.Stringer.
func (r Ref) String() string {
	if r.Inline() {
		return fmt.Sprintf("%s%v", r.Config.Name, r.Config.Files)
	}
	return r.Name
}

// ConfigFromMap builds a ModuleConfig from a loosely typed value, as produced
// by expression evaluation or script tables. Unknown keys are ignored.
func ConfigFromMap(m map[string]any) (ModuleConfig, error) {
	var cfg ModuleConfig
	name, ok := m["name"].(string)
	if !ok || name == "" {
		return cfg, fmt.Errorf("%w: object without string name", ErrInvalidModuleRef)
	}
	cfg.Name = name

	switch files := m["files"].(type) {
	case nil:
	case []string:
		cfg.Files = slices.Clone(files)
	case []any:
		for i, f := range files {
			s, ok := f.(string)
			if !ok {
				return cfg, fmt.Errorf("%w: module %q files[%d] is %T, want string", ErrInvalidConfig, name, i, f)
			}
			cfg.Files = append(cfg.Files, s)
		}
	default:
		return cfg, fmt.Errorf("%w: module %q files is %T, want list", ErrInvalidConfig, name, files)
	}

	if s, ok := m["template"].(string); ok {
		cfg.Template = s
	}
	if s, ok := m["onload"].(string); ok {
		cfg.Onload = s
	}
	return cfg, nil
}
