package script

import (
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/bft-labs/lazyload/internal/domain"
	"github.com/bft-labs/lazyload/pkg/host"
)

// ErrManifest wraps parse and decode failures of HCL manifests.
var ErrManifest = errors.New("script: invalid manifest")

type manifestSchema struct {
	Modules []*moduleBlock `hcl:"module,block"`
}

type moduleBlock struct {
	Name     string         `hcl:"name,label"`
	Requires hcl.Expression `hcl:"requires,optional"`

	Constants   []*valueBlock   `hcl:"constant,block"`
	Values      []*valueBlock   `hcl:"value,block"`
	Factories   []*handlerBlock `hcl:"factory,block"`
	Services    []*handlerBlock `hcl:"service,block"`
	Controllers []*handlerBlock `hcl:"controller,block"`
	Directives  []*handlerBlock `hcl:"directive,block"`
	Filters     []*handlerBlock `hcl:"filter,block"`
	Configs     []*invokeBlock  `hcl:"config,block"`
	Runs        []*invokeBlock  `hcl:"run,block"`
}

type valueBlock struct {
	Name  string    `hcl:"name,label"`
	Value cty.Value `hcl:"value"`
}

type handlerBlock struct {
	Name    string   `hcl:"name,label"`
	Handler string   `hcl:"handler"`
	Deps    []string `hcl:"deps,optional"`
}

type invokeBlock struct {
	Handler string   `hcl:"handler"`
	Deps    []string `hcl:"deps,optional"`
}

// Manifest defines modules from HCL files, binding handlers from a Catalog.
type Manifest struct {
	fw      *host.Framework
	catalog *Catalog
}

// NewManifest creates a manifest evaluator.
func NewManifest(fw *host.Framework, catalog *Catalog) *Manifest {
	if catalog == nil {
		catalog = NewCatalog()
	}
	return &Manifest{fw: fw, catalog: catalog}
}

// Exec parses src and defines every module it declares. A module is defined
// only once all of its handlers resolve. Returns the names defined.
func (m *Manifest) Exec(filename string, src []byte) ([]string, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s: %w", ErrManifest, filename, diags)
	}
	var schema manifestSchema
	if diags := gohcl.DecodeBody(file.Body, nil, &schema); diags.HasErrors() {
		return nil, fmt.Errorf("%w: %s: %w", ErrManifest, filename, diags)
	}

	var defined []string
	for _, block := range schema.Modules {
		if err := m.define(block); err != nil {
			return defined, fmt.Errorf("%w: %s: module %s: %w", ErrManifest, filename, block.Name, err)
		}
		defined = append(defined, block.Name)
	}
	return defined, nil
}

type pendingFn struct {
	name string
	fn   host.Fn
}

func (m *Manifest) define(b *moduleBlock) error {
	requires, err := refsFromExpr(b.Requires)
	if err != nil {
		return err
	}

	type kindFns struct {
		register func(string, host.Fn) *host.Module
		fns      []pendingFn
	}
	resolve := func(blocks []*handlerBlock) ([]pendingFn, error) {
		out := make([]pendingFn, 0, len(blocks))
		for _, hb := range blocks {
			fn, err := m.catalog.Fn(hb.Handler, hb.Deps)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", hb.Name, err)
			}
			out = append(out, pendingFn{name: hb.Name, fn: fn})
		}
		return out, nil
	}
	resolveInvoke := func(blocks []*invokeBlock) ([]host.Fn, error) {
		out := make([]host.Fn, 0, len(blocks))
		for _, ib := range blocks {
			fn, err := m.catalog.Fn(ib.Handler, ib.Deps)
			if err != nil {
				return nil, err
			}
			out = append(out, fn)
		}
		return out, nil
	}

	values := make(map[*valueBlock]any)
	for _, vb := range append(append([]*valueBlock(nil), b.Constants...), b.Values...) {
		v, err := host.FromValue(vb.Value)
		if err != nil {
			return fmt.Errorf("%s: %w", vb.Name, err)
		}
		values[vb] = v
	}

	kinds := [][]*handlerBlock{b.Factories, b.Services, b.Controllers, b.Directives, b.Filters}
	resolved := make([][]pendingFn, len(kinds))
	for i, blocks := range kinds {
		if resolved[i], err = resolve(blocks); err != nil {
			return err
		}
	}
	configs, err := resolveInvoke(b.Configs)
	if err != nil {
		return err
	}
	runs, err := resolveInvoke(b.Runs)
	if err != nil {
		return err
	}

	mod := m.fw.Define(b.Name, requires...)
	for _, vb := range b.Constants {
		mod.Constant(vb.Name, values[vb])
	}
	for _, vb := range b.Values {
		mod.Value(vb.Name, values[vb])
	}
	registers := []kindFns{
		{register: mod.Factory, fns: resolved[0]},
		{register: mod.Service, fns: resolved[1]},
		{register: mod.Controller, fns: resolved[2]},
		{register: mod.Directive, fns: resolved[3]},
		{register: mod.Filter, fns: resolved[4]},
	}
	for _, k := range registers {
		for _, p := range k.fns {
			k.register(p.name, p.fn)
		}
	}
	for _, fn := range configs {
		mod.Config(fn)
	}
	for _, fn := range runs {
		mod.Run(fn)
	}
	return nil
}

// refsFromExpr evaluates a requires attribute: a list of names and objects.
func refsFromExpr(expr hcl.Expression) ([]host.Ref, error) {
	if expr == nil {
		return nil, nil
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("requires: %w", diags)
	}
	raw, err := host.FromValue(v)
	if err != nil {
		return nil, fmt.Errorf("requires: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("requires: %w: %T, want list", domain.ErrInvalidModuleRef, raw)
	}

	refs := make([]host.Ref, 0, len(list))
	for i, item := range list {
		switch x := item.(type) {
		case string:
			refs = append(refs, domain.NameRef(x))
		case map[string]any:
			cfg, err := domain.ConfigFromMap(x)
			if err != nil {
				return nil, fmt.Errorf("requires[%d]: %w", i, err)
			}
			refs = append(refs, domain.ConfigRef(cfg))
		default:
			return nil, fmt.Errorf("requires[%d]: %w: %T", i, domain.ErrInvalidModuleRef, item)
		}
	}
	return refs, nil
}
