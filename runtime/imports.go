package runtime

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/wasm-module/errors"
	"github.com/wippyai/wasm-module/wasm"
)

// Host is the interface for struct-based import providers.
// All exported methods (except Namespace) become functions of the namespace.
type Host interface {
	// Namespace returns the import module name (e.g., "env").
	Namespace() string
}

// ExplicitRegistrar allows hosts to provide exact import names when the
// PascalCase-to-kebab-case conversion does not apply (e.g., "__wbg_log").
type ExplicitRegistrar interface {
	Register() map[string]any
}

// Imports is the import table a module is instantiated against.
// Functions must have signatures accepted by wazero's HostFunctionBuilder.WithFunc:
// numeric parameters and results, optionally preceded by context.Context
// and api.Module.
type Imports struct {
	funcs map[string]map[string]any
	mu    sync.RWMutex
}

// NewImports creates an empty import table.
func NewImports() *Imports {
	return &Imports{funcs: make(map[string]map[string]any)}
}

// RegisterFunc adds fn as namespace#name.
func (i *Imports) RegisterFunc(namespace, name string, fn any) error {
	if namespace == "" {
		return errors.InvalidInput(errors.PhaseHost, "namespace cannot be empty")
	}
	if name == "" {
		return errors.InvalidInput(errors.PhaseHost, "function name cannot be empty")
	}
	if namespace == wasiModuleName {
		return errors.InvalidInput(errors.PhaseHost, "namespace "+wasiModuleName+" is provided by the runtime")
	}
	if fn == nil || reflect.TypeOf(fn).Kind() != reflect.Func {
		return errors.New(errors.PhaseHost, errors.KindTypeMismatch).
			GoType(fmt.Sprintf("%T", fn)).
			Detail("handler must be a function").
			Build()
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if i.funcs[namespace] == nil {
		i.funcs[namespace] = make(map[string]any)
	}
	i.funcs[namespace][name] = fn
	return nil
}

// RegisterHost registers all exported methods of h under h.Namespace().
// Method names are converted from PascalCase to kebab-case (GetValue -> get-value).
func (i *Imports) RegisterHost(h Host) error {
	ns := h.Namespace()
	if ns == "" {
		return errors.InvalidInput(errors.PhaseHost, "namespace cannot be empty")
	}

	if er, ok := h.(ExplicitRegistrar); ok {
		for name, fn := range er.Register() {
			if err := i.RegisterFunc(ns, name, fn); err != nil {
				return errors.Registration(errors.PhaseHost, ns, name, err)
			}
		}
		return nil
	}

	rv := reflect.ValueOf(h)
	rt := rv.Type()
	for m := 0; m < rt.NumMethod(); m++ {
		method := rt.Method(m)
		if !method.IsExported() || method.Name == "Namespace" {
			continue
		}
		name := toKebabCase(method.Name)
		if err := i.RegisterFunc(ns, name, rv.Method(m).Interface()); err != nil {
			return errors.Registration(errors.PhaseHost, ns, name, err)
		}
	}
	return nil
}

// Lookup returns the function registered as namespace#name.
func (i *Imports) Lookup(namespace, name string) (any, bool) {
	if i == nil {
		return nil, false
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	fn, ok := i.funcs[namespace][name]
	return fn, ok
}

// Namespaces returns the registered namespaces in sorted order.
func (i *Imports) Namespaces() []string {
	if i == nil {
		return nil
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]string, 0, len(i.funcs))
	for ns := range i.funcs {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered functions.
func (i *Imports) Len() int {
	if i == nil {
		return 0
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	n := 0
	for _, fns := range i.funcs {
		n += len(fns)
	}
	return n
}

// instantiate builds a host module named hostName exporting the functions
// in needed under their import keys (namespace#name).
func (i *Imports) instantiate(ctx context.Context, r wazero.Runtime, hostName string, needed []wasm.Import) (api.Module, error) {
	builder := r.NewHostModuleBuilder(hostName)
	for _, imp := range needed {
		fn, ok := i.Lookup(imp.Module, imp.Name)
		if !ok {
			continue
		}
		builder = builder.NewFunctionBuilder().WithFunc(fn).Export(imp.Key())
	}
	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseHost, errors.KindRegistration, err, "instantiate import table")
	}
	return mod, nil
}

// toKebabCase converts PascalCase to kebab-case.
// Handles acronyms: GetHTTPURL -> get-http-url
func toKebabCase(s string) string {
	if len(s) == 0 {
		return ""
	}

	runes := []rune(s)
	var result strings.Builder

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if !unicode.IsUpper(r) {
			result.WriteRune(r)
			continue
		}

		end := i + 1
		for end < len(runes) && unicode.IsUpper(runes[end]) {
			end++
		}
		// last capital before a lowercase run starts the next word
		if end > i+1 && end < len(runes) && unicode.IsLower(runes[end]) {
			end--
		}

		if i > 0 {
			result.WriteByte('-')
		}
		for j := i; j < end; j++ {
			result.WriteRune(unicode.ToLower(runes[j]))
		}
		i = end - 1
	}
	return result.String()
}
