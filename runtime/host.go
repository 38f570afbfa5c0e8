package runtime

import (
	"reflect"
	"slices"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/wippyai/reflect-runtime/errors"
	"github.com/wippyai/reflect-runtime/types"
)

// Host is the interface for struct-based host modules.
// All exported methods (except Namespace) are registered as host functions.
type Host interface {
	// Namespace returns the namespace the functions are registered under.
	Namespace() string
}

// ExplicitRegistrar allows hosts to provide exact function names when the
// automatic PascalCase-to-kebab-case conversion doesn't apply.
type ExplicitRegistrar interface {
	Register() map[string]any
}

// Bindings is a registry of Go host functions by namespace.
type Bindings struct {
	funcs map[string]map[string]*types.Function
	mu    sync.RWMutex
}

// namespace owns the functions registered under one name. Host functions
// live as long as the process.
type namespace string

func (n namespace) Alive() bool      { return true }
func (n namespace) FullName() string { return string(n) }

// NewBindings creates an empty registry.
func NewBindings() *Bindings {
	return &Bindings{
		funcs: make(map[string]map[string]*types.Function),
	}
}

// RegisterHost registers all exported methods of h. Method names are
// converted from PascalCase to kebab-case (GetValue -> get-value).
func (b *Bindings) RegisterHost(h Host) error {
	ns := h.Namespace()
	if ns == "" {
		return errors.InvalidInput(errors.PhaseBind, "namespace cannot be empty")
	}

	handlers := make(map[string]any)
	if er, ok := h.(ExplicitRegistrar); ok {
		for name, handler := range er.Register() {
			handlers[name] = handler
		}
	} else {
		rv := reflect.ValueOf(h)
		rt := rv.Type()
		for i := 0; i < rt.NumMethod(); i++ {
			method := rt.Method(i)
			if !method.IsExported() || method.Name == "Namespace" {
				continue
			}
			handlers[toKebabCase(method.Name)] = rv.Method(i).Interface()
		}
	}

	names := make([]string, 0, len(handlers))
	for name := range handlers {
		names = append(names, name)
	}
	sort.Strings(names)

	fns := make([]*types.Function, 0, len(names))
	for _, name := range names {
		fn, err := types.Bind(name, handlers[name])
		if err != nil {
			return errors.New(errors.PhaseBind, errors.KindOf(err)).
				Path(ns, name).
				Cause(err).
				Detail("register host method").
				Build()
		}
		fns = append(fns, fn)
	}
	return b.add(ns, fns...)
}

// RegisterFunc binds a single Go function as ns#name.
func (b *Bindings) RegisterFunc(ns, name string, fn any) error {
	if ns == "" {
		return errors.InvalidInput(errors.PhaseBind, "namespace cannot be empty")
	}
	if name == "" {
		return errors.InvalidInput(errors.PhaseBind, "function name cannot be empty")
	}
	f, err := types.Bind(name, fn)
	if err != nil {
		return err
	}
	return b.add(ns, f)
}

// Register adds prebuilt functions under ns. They must not be attached yet.
func (b *Bindings) Register(ns string, fns ...*types.Function) error {
	if ns == "" {
		return errors.InvalidInput(errors.PhaseBind, "namespace cannot be empty")
	}
	return b.add(ns, fns...)
}

func (b *Bindings) add(ns string, fns ...*types.Function) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	existing := b.funcs[ns]
	seen := make(map[string]bool, len(fns))
	for _, fn := range fns {
		if fn == nil {
			return errors.InvalidInput(errors.PhaseBind, "nil function")
		}
		if err := fn.Validate(); err != nil {
			return err
		}
		if _, dup := existing[fn.Name]; dup || seen[fn.Name] {
			return errors.DuplicateName([]string{ns}, "host function", fn.Name)
		}
		if fn.Owner() != nil {
			return errors.InvalidInput(errors.PhaseBind, "function "+fn.Name+" already belongs to "+fn.Owner().FullName())
		}
		seen[fn.Name] = true
	}

	if existing == nil {
		existing = make(map[string]*types.Function)
		b.funcs[ns] = existing
	}
	for _, fn := range fns {
		if err := fn.Attach(namespace(ns)); err != nil {
			return err
		}
		existing[fn.Name] = fn
	}
	return nil
}

// Lookup resolves a "namespace#name" reference.
func (b *Bindings) Lookup(ref string) (*types.Function, bool) {
	ns, name, ok := strings.Cut(ref, "#")
	if !ok {
		return nil, false
	}
	return b.Get(ns, name)
}

// Get returns the function registered as ns#name.
func (b *Bindings) Get(ns, name string) (*types.Function, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	fn, ok := b.funcs[ns][name]
	return fn, ok
}

// Namespaces returns the registered namespaces, sorted.
func (b *Bindings) Namespaces() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.funcs))
	for ns := range b.funcs {
		out = append(out, ns)
	}
	sort.Strings(out)
	return out
}

// Functions returns the functions of ns sorted by name.
func (b *Bindings) Functions(ns string) []*types.Function {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*types.Function, 0, len(b.funcs[ns]))
	for _, fn := range b.funcs[ns] {
		out = append(out, fn)
	}
	slices.SortFunc(out, func(x, y *types.Function) int { return strings.Compare(x.Name, y.Name) })
	return out
}

// toKebabCase converts PascalCase to kebab-case.
// Handles acronyms: GetHTTPRequest -> get-http-request. Adjacent acronyms
// stay one word: GetHTTPURL -> get-httpurl.
func toKebabCase(s string) string {
	if len(s) == 0 {
		return ""
	}

	runes := []rune(s)
	var result strings.Builder

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if unicode.IsUpper(r) {
			acronymEnd := i + 1
			for acronymEnd < len(runes) && unicode.IsUpper(runes[acronymEnd]) {
				acronymEnd++
			}

			if acronymEnd > i+1 {
				// Last uppercase before lowercase starts next word, not part of acronym
				if acronymEnd < len(runes) && unicode.IsLower(runes[acronymEnd]) {
					acronymEnd--
				}
			}

			if i > 0 {
				result.WriteByte('-')
			}

			for j := i; j < acronymEnd; j++ {
				result.WriteRune(unicode.ToLower(runes[j]))
			}
			i = acronymEnd - 1
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
