package container

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors, matched with errors.Is. Typed errors below unwrap to them.
var (
	ErrInspection         = errors.New("container: unclassifiable parameter")
	ErrMissingArgument    = errors.New("container: missing argument")
	ErrUnregisteredType   = errors.New("container: unregistered type")
	ErrUnconstructible    = errors.New("container: unconstructible type")
	ErrCircularDependency = errors.New("container: circular dependency")
	ErrBuild              = errors.New("container: constructor failed")
	ErrTypeMismatch       = errors.New("container: type mismatch")
)

// InspectionError reports a parameter whose declared type cannot be classified.
type InspectionError struct {
	Type   string
	Param  string
	Hint   string
	Reason string
}

func (e *InspectionError) Error() string {
	return fmt.Sprintf("container: parameter $%s of [%s] has unclassifiable type %q: %s",
		e.Param, e.Type, e.Hint, e.Reason)
}

func (e *InspectionError) Unwrap() error { return ErrInspection }

// MissingArgumentError reports a required plain parameter with neither an
// override nor a default.
type MissingArgumentError struct {
	Type     string
	Param    string
	Position int
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("container: missing argument $%s (plain position %d) for [%s]",
		e.Param, e.Position, e.Type)
}

func (e *MissingArgumentError) Unwrap() error { return ErrMissingArgument }

// UnregisteredTypeError is returned by GetInstance for an unknown shared instance.
type UnregisteredTypeError struct {
	Type string
}

func (e *UnregisteredTypeError) Error() string {
	return fmt.Sprintf("container: no shared instance registered for [%s]", e.Type)
}

func (e *UnregisteredTypeError) Unwrap() error { return ErrUnregisteredType }

// UnconstructibleError reports a type that cannot be built: it was never
// defined, or it is abstract and nothing is registered for it.
type UnconstructibleError struct {
	Type     string
	Abstract bool
}

func (e *UnconstructibleError) Error() string {
	if e.Abstract {
		return fmt.Sprintf("container: [%s] is abstract and has no registered instance", e.Type)
	}
	return fmt.Sprintf("container: no definition for [%s]", e.Type)
}

func (e *UnconstructibleError) Unwrap() error { return ErrUnconstructible }

// CircularDependencyError reports a type that appeared twice on the active
// resolution path. Path ends with the repeated type.
type CircularDependencyError struct {
	Path []string
}

func (e *CircularDependencyError) Error() string {
	return "container: circular dependency " + strings.Join(e.Path, " -> ")
}

func (e *CircularDependencyError) Unwrap() error { return ErrCircularDependency }

// BuildError wraps a failure returned by a Constructor.
type BuildError struct {
	Type string
	Err  error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("container: building [%s]: %v", e.Type, e.Err)
}

func (e *BuildError) Unwrap() []error { return []error{ErrBuild, e.Err} }

// ParamError attaches the enclosing parameter to an error raised while
// resolving a nested class dependency.
type ParamError struct {
	Type  string
	Param string
	Err   error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("container: resolving $%s of [%s]: %v", e.Param, e.Type, e.Err)
}

func (e *ParamError) Unwrap() error { return e.Err }

// TypeMismatchError reports a value whose dynamic type differs from the one
// the caller asked for.
type TypeMismatchError struct {
	Type string
	Want string
	Got  string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("container: [%s] resolved to %s, want %s", e.Type, e.Got, e.Want)
}

func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }
