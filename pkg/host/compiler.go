package host

import (
	"fmt"
	"sync"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	"github.com/bft-labs/lazyload/internal/ports"
)

// TemplateCompiler compiles HCL string templates such as
// "Hello ${upper(user)}". Linked templates re-render on every digest in
// which their value changes.
type TemplateCompiler struct{}

// Compile implements ports.Compiler.
func (TemplateCompiler) Compile(content string) (ports.Linker, error) {
	expr, diags := hclsyntax.ParseTemplate([]byte(content), "template", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("compile template: %w", diags)
	}

	return func(scope ports.Scope, element ports.Element) error {
		if len(expr.Variables()) == 0 {
			v, diags := expr.Value(nil)
			if diags.HasErrors() {
				return fmt.Errorf("render template: %w", diags)
			}
			element.SetContent(render(v))
			return nil
		}

		s, ok := scope.(*Scope)
		if !ok {
			return fmt.Errorf("link template: scope %T does not support bindings", scope)
		}
		v, err := s.evalExpr(expr)
		if err != nil {
			return fmt.Errorf("render template: %w", err)
		}
		element.SetContent(render(v))
		s.watchExpr(content, expr, func(newValue, _ any) {
			element.SetContent(renderAny(newValue))
		})
		return nil
	}, nil
}

// Element is an in-memory ports.Element.
type Element struct {
	mu      sync.RWMutex
	content string
}

// NewElement returns an empty Element.
func NewElement() *Element {
	return &Element{}
}

// SetContent implements ports.Element.
func (e *Element) SetContent(content string) {
	e.mu.Lock()
	e.content = content
	e.mu.Unlock()
}

// Content implements ports.Element.
func (e *Element) Content() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.content
}

var (
	_ ports.Compiler = TemplateCompiler{}
	_ ports.Element  = (*Element)(nil)
)

func render(v cty.Value) string {
	out, err := FromValue(v)
	if err != nil {
		return ""
	}
	return renderAny(out)
}

func renderAny(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
