package container

import (
	"fmt"
	"strings"
)

// ── Declarations ──────────────────────────────────────────────────────────────

// Constructor builds a concrete value from its resolved arguments.
// args is ordered exactly like the Params passed to Define.
type Constructor func(args []any) (any, error)

// Param declares one constructor parameter.
//
// Hint is the declared type: empty for untyped, a scalar name such as
// "string", or a type identifier known to the container. A leading "?"
// marks a nullable hint and is ignored for classification.
type Param struct {
	Name     string
	Hint     string
	Optional bool
	Default  any
}

// Dep declares a parameter typed as another constructible type.
//
//	// PHP: public function __construct(View $view)
//	container.Dep("view", "view")
func Dep(name, typ string) Param {
	return Param{Name: name, Hint: typ}
}

// Value declares an untyped plain parameter.
func Value(name string) Param {
	return Param{Name: name}
}

// Typed declares a parameter with an explicit hint.
func Typed(name, hint string) Param {
	return Param{Name: name, Hint: hint}
}

// Optional declares a plain parameter with a default value.
func Optional(name string, def any) Param {
	return Param{Name: name, Optional: true, Default: def}
}

// OrDefault returns a copy of p that falls back to def.
func (p Param) OrDefault(def any) Param {
	p.Optional = true
	p.Default = def
	return p
}

// definition is the static descriptor table entry for one type.
type definition struct {
	params    []Param
	construct Constructor
	abstract  bool
}

// ── Descriptors ───────────────────────────────────────────────────────────────

// Kind classifies a constructor parameter.
type Kind uint8

const (
	KindPlain Kind = iota // scalar, untyped or collection value
	KindClass             // another type resolved through the container
)

func (k Kind) String() string {
	if k == KindClass {
		return "class"
	}
	return "plain"
}

// Descriptor describes one constructor parameter as seen by the resolver.
// When Err is set the other classification fields are meaningless.
type Descriptor struct {
	Name     string
	Kind     Kind
	Type     string
	Optional bool
	Default  any
	Err      error
}

// scalarHints are the hints that always classify as plain values.
var scalarHints = map[string]bool{
	"string":   true,
	"int":      true,
	"int64":    true,
	"float":    true,
	"float64":  true,
	"bool":     true,
	"array":    true,
	"map":      true,
	"slice":    true,
	"mixed":    true,
	"any":      true,
	"callable": true,
	"iterable": true,
}

func isScalarHint(hint string) bool {
	return scalarHints[strings.ToLower(hint)]
}

// Arg returns args[i] as T. A nil argument yields the zero value of T, so
// optional parameters defaulting to nil can be read without special cases.
//
//	func(args []any) (any, error) {
//	    name, err := container.Arg[string](args, 1)
//	    ...
//	}
func Arg[T any](args []any, i int) (T, error) {
	var zero T
	if i < 0 || i >= len(args) {
		return zero, fmt.Errorf("%w: argument %d out of range (%d arguments)", ErrTypeMismatch, i, len(args))
	}
	if args[i] == nil {
		return zero, nil
	}
	v, ok := args[i].(T)
	if !ok {
		return zero, fmt.Errorf("%w: argument %d is %T, want %T", ErrTypeMismatch, i, args[i], zero)
	}
	return v, nil
}
