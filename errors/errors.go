package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseRegister Phase = "register" // type registry association
	PhaseDefine   Phase = "define"   // module type/function definition
	PhaseResolve  Phase = "resolve"  // weak handle and base link lookups
	PhaseCall     Phase = "call"     // function invocation
	PhaseStack    Phase = "stack"    // execution context stack discipline
	PhaseTeardown Phase = "teardown" // context/module release
	PhaseBind     Phase = "bind"     // native/scripted implementation binding
	PhaseLoad     Phase = "load"     // manifest and wasm loading
	PhaseParse    Phase = "parse"    // manifest parsing
	PhaseConvert  Phase = "convert"  // value conversion
)

// Kind categorizes the error
type Kind string

const (
	KindAlreadyRegistered   Kind = "already_registered"
	KindDuplicateTypeName   Kind = "duplicate_type_name"
	KindDuplicateModuleName Kind = "duplicate_module_name"
	KindDuplicateName       Kind = "duplicate_name"
	KindArityMismatch       Kind = "arity_mismatch"
	KindTypeMismatch        Kind = "type_mismatch"
	KindUnresolvedFunction  Kind = "unresolved_function"
	KindUnbalancedStack     Kind = "unbalanced_stack"
	KindStackOverflow       Kind = "stack_overflow"
	KindExpired             Kind = "expired"
	KindNotFound            Kind = "not_found"
	KindInvalidInput        Kind = "invalid_input"
	KindInvalidData         Kind = "invalid_data"
	KindUnsupported         Kind = "unsupported"
	KindUnloaded            Kind = "unloaded"
)

// Error is the structured error type used throughout the runtime
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Got    string
	Want   string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Got != "" || e.Want != "" {
		b.WriteString(": ")
		switch {
		case e.Got != "" && e.Want != "":
			b.WriteString("got ")
			b.WriteString(e.Got)
			b.WriteString(", want ")
			b.WriteString(e.Want)
		case e.Got != "":
			b.WriteString("got ")
			b.WriteString(e.Got)
		default:
			b.WriteString("want ")
			b.WriteString(e.Want)
		}
	}

	if e.Detail != "" {
		if e.Got != "" || e.Want != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error.
// A target without a Phase matches any phase.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && t.Phase != e.Phase {
		return false
	}
	return e.Kind == t.Kind
}

// IsKind reports whether err, or any error it wraps, is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return stderrors.Is(err, &Error{Kind: kind})
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the entity path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Got sets the observed kind or type name
func (b *Builder) Got(t string) *Builder {
	b.err.Got = t
	return b
}

// Want sets the expected kind or type name
func (b *Builder) Want(t string) *Builder {
	b.err.Want = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// AlreadyRegistered reports a live registry entry for a native type id.
func AlreadyRegistered(nativeID uint64, existing string) *Error {
	return &Error{
		Phase:  PhaseRegister,
		Kind:   KindAlreadyRegistered,
		Detail: fmt.Sprintf("native id %d already bound to %s", nativeID, existing),
		Value:  nativeID,
	}
}

// DuplicateTypeName reports a type name collision inside one module.
func DuplicateTypeName(module, name string) *Error {
	return &Error{
		Phase:  PhaseDefine,
		Kind:   KindDuplicateTypeName,
		Path:   []string{module, name},
		Detail: fmt.Sprintf("type %q already defined in module %q", name, module),
	}
}

// DuplicateModuleName reports a module name that is already loaded.
func DuplicateModuleName(name string) *Error {
	return &Error{
		Phase:  PhaseDefine,
		Kind:   KindDuplicateModuleName,
		Path:   []string{name},
		Detail: fmt.Sprintf("module %q already loaded", name),
	}
}

// DuplicateName reports a repeated member name (property, function, parameter).
func DuplicateName(path []string, what, name string) *Error {
	return &Error{
		Phase:  PhaseDefine,
		Kind:   KindDuplicateName,
		Path:   path,
		Detail: fmt.Sprintf("%s %q declared twice", what, name),
	}
}

// ArityMismatch reports a call with the wrong number of arguments.
func ArityMismatch(path []string, want, got int) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindArityMismatch,
		Path:   path,
		Detail: fmt.Sprintf("expected %d argument(s), got %d", want, got),
		Value:  got,
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, got, want string) *Error {
	return &Error{
		Phase: phase,
		Kind:  KindTypeMismatch,
		Path:  path,
		Got:   got,
		Want:  want,
	}
}

// UnresolvedFunction reports a function whose owning type or module is gone.
func UnresolvedFunction(path []string, detail string) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindUnresolvedFunction,
		Path:   path,
		Detail: detail,
	}
}

// UnbalancedStack reports a stack that does not have the expected depth.
func UnbalancedStack(phase Phase, want, got int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnbalancedStack,
		Detail: fmt.Sprintf("stack depth %d, expected %d", got, want),
		Value:  got,
	}
}

// UnbalancedStackOnTeardown reports a context released with values still on its stack.
func UnbalancedStackOnTeardown(depth int) *Error {
	return UnbalancedStack(PhaseTeardown, 0, depth)
}

// StackOverflow reports a push beyond the configured stack limit.
func StackOverflow(limit int) *Error {
	return &Error{
		Phase:  PhaseStack,
		Kind:   KindStackOverflow,
		Detail: fmt.Sprintf("stack limit %d exceeded", limit),
		Value:  limit,
	}
}

// Expired reports a weak handle whose referent has been released.
func Expired(phase Phase, path []string, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindExpired,
		Path:   path,
		Detail: fmt.Sprintf("%s expired", what),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// Unloaded reports use of a module after it was unloaded.
func Unloaded(module string) *Error {
	return &Error{
		Phase:  PhaseDefine,
		Kind:   KindUnloaded,
		Path:   []string{module},
		Detail: fmt.Sprintf("module %q is unloaded", module),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Load creates a loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// ParseFailed creates a parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}
