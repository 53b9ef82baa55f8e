package container

import (
	"fmt"
	"io"
	"reflect"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"
)

// ── Container ─────────────────────────────────────────────────────────────────

// Container builds object graphs from statically declared constructors and
// owns the registry of shared instances.
//
// It supports:
//   - Define / Abstract / Alias
//   - Instantiate (always a fresh build) and Make (shared instance first)
//   - Register / HasInstance / GetInstance (shared instances)
//   - Singleton (explicit build-and-register)
//   - Tags, deferred loaders, rebound and resolved callbacks
//
// Building never registers the result implicitly. A type becomes shared only
// through Register or Singleton, so transient consumers never alias a
// singleton by accident.
type Container struct {
	*registry

	// deferred loaders running on this call chain; they are not waited for
	loading []*loader
}

// registry is the state shared by a container and the views of it handed
// to deferred loaders.
type registry struct {
	mu sync.RWMutex

	// type → static constructor table entry
	definitions map[string]*definition

	// type → shared instance
	instances map[string]any

	// alias → canonical type
	aliases map[string]string

	// tag → []type
	tags map[string][]string

	// type → lazy loader (deferred providers)
	deferred map[string]*loader

	// rebound callbacks: type → []func(any)
	reboundCallbacks map[string][]func(any)

	// resolved callbacks: []func(type, instance)
	afterResolving []func(string, any)

	resolver *Resolver
	log      logrus.FieldLogger
}

// Option configures a Container.
type Option func(*Container)

// WithLogger sets the logger used for debug tracing of builds and
// registrations. By default nothing is logged.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Container) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates an empty container. The container registers itself under
// "container".
func New(opts ...Option) *Container {
	silent := logrus.New()
	silent.SetOutput(io.Discard)

	c := &Container{registry: &registry{
		definitions:      make(map[string]*definition),
		instances:        make(map[string]any),
		aliases:          make(map[string]string),
		tags:             make(map[string][]string),
		deferred:         make(map[string]*loader),
		reboundCallbacks: make(map[string][]func(any)),
		log:              silent,
	}}
	for _, opt := range opts {
		opt(c)
	}
	c.resolver = NewResolver(NewInspector(c))
	c.Register("container", c)
	return c
}

// ── Definitions ───────────────────────────────────────────────────────────────

// Define declares how typ is constructed: its ordered parameters and the
// constructor receiving the resolved arguments. Redefining replaces the
// previous declaration.
//
//	// PHP: class A { function __construct(B $b, string $name) }
//	c.Define("A", []container.Param{
//	    container.Dep("b", "B"),
//	    container.Typed("name", "string"),
//	}, func(args []any) (any, error) {
//	    return &A{B: args[0].(*B), Name: args[1].(string)}, nil
//	})
func (c *Container) Define(typ string, params []Param, construct Constructor) {
	if construct == nil {
		panic(fmt.Sprintf("container: nil constructor for [%s]", typ))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.definitions[c.canonicalLocked(typ)] = &definition{
		params:    slices.Clone(params),
		construct: construct,
	}
}

// Abstract declares typ as an interface identifier. Parameters typed with it
// classify as class dependencies, but it is satisfied only by a registered
// instance.
func (c *Container) Abstract(typ string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.canonicalLocked(typ)
	if _, ok := c.definitions[key]; !ok {
		c.definitions[key] = &definition{abstract: true}
	}
}

// Defined returns true if typ has a definition (concrete or abstract).
func (c *Container) Defined(typ string) bool {
	_, ok := c.definitionOf(typ)
	return ok
}

// Alias registers an alternative name for a type.
//
//	c.Alias("config", "configuration")
func (c *Container) Alias(abstract, alias string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if abstract == alias {
		panic(fmt.Sprintf("container: [%s] is aliased to itself", abstract))
	}
	c.aliases[alias] = c.canonicalLocked(abstract)
}

// ── Shared instances ─────────────────────────────────────────────────────────

// Register stores instance as the shared instance for typ, replacing any
// previous entry. It also binds abstract identifiers to a concrete value.
func (c *Container) Register(typ string, instance any) {
	c.mu.Lock()
	key := c.canonicalLocked(typ)
	_, existed := c.instances[key]
	c.instances[key] = instance
	c.mu.Unlock()

	c.log.WithField("type", key).Debug("Registered shared instance")
	if existed {
		c.fireRebound(key, instance)
	}
}

// HasInstance returns true if a shared instance is registered for typ.
func (c *Container) HasInstance(typ string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.instances[c.canonicalLocked(typ)]
	return ok
}

// GetInstance returns the shared instance registered for typ.
func (c *Container) GetInstance(typ string) (any, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key := c.canonicalLocked(typ)
	inst, ok := c.instances[key]
	if !ok {
		return nil, &UnregisteredTypeError{Type: key}
	}
	return inst, nil
}

// ── Building ─────────────────────────────────────────────────────────────────

// Instantiate builds a new instance of typ. Class dependencies reuse
// registered shared instances and are built recursively otherwise; plain
// parameters come from overrides[typ] or their defaults.
//
// The result is not registered. On error nothing is returned and the
// registry is left untouched.
func (c *Container) Instantiate(typ string, overrides Overrides) (any, error) {
	return c.instantiate(typ, overrides, nil)
}

func (c *Container) instantiate(typ string, overrides Overrides, path []string) (any, error) {
	key := c.canonical(typ)
	if slices.Contains(path, key) {
		cycle := append(slices.Clone(path), key)
		return nil, &CircularDependencyError{Path: cycle}
	}
	if err := c.load(key); err != nil {
		return nil, err
	}

	path = append(slices.Clone(path), key)
	args, err := c.resolver.resolve(key, c, overrides.normalize(c.canonical), path)
	if err != nil {
		return nil, err
	}

	def, ok := c.definitionOf(key)
	if !ok || def.abstract {
		return nil, &UnconstructibleError{Type: key, Abstract: ok}
	}
	instance, err := def.construct(args)
	if err != nil {
		return nil, &BuildError{Type: key, Err: err}
	}

	c.log.WithFields(logrus.Fields{"type": key, "depth": len(path)}).Debug("Instantiated")
	c.fireAfterResolving(key, instance)
	return instance, nil
}

// Singleton builds typ and registers the result as its shared instance.
// The registry is only written once the build has succeeded.
func (c *Container) Singleton(typ string, overrides Overrides) (any, error) {
	instance, err := c.Instantiate(typ, overrides)
	if err != nil {
		return nil, err
	}
	c.Register(typ, instance)
	return instance, nil
}

// Make returns the shared instance for typ if there is one, and a fresh
// build without overrides otherwise.
func (c *Container) Make(typ string) (any, error) {
	if err := c.load(typ); err != nil {
		return nil, err
	}
	if inst, err := c.GetInstance(typ); err == nil {
		return inst, nil
	}
	return c.Instantiate(typ, nil)
}

// Inspect returns the descriptors of typ.
func (c *Container) Inspect(typ string) ([]Descriptor, error) {
	return c.resolver.inspector.Inspect(typ)
}

// ── Tags ──────────────────────────────────────────────────────────────────────

// Tag associates multiple types under a named group.
//
//	c.Tag([]string{"CpuReport", "MemoryReport"}, "reports")
func (c *Container) Tag(types []string, tag string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags[tag] = append(c.tags[tag], types...)
}

// Tagged resolves, with Make, every type registered under tag.
func (c *Container) Tagged(tag string) ([]any, error) {
	c.mu.RLock()
	types := slices.Clone(c.tags[tag])
	c.mu.RUnlock()

	result := make([]any, 0, len(types))
	for _, typ := range types {
		v, err := c.Make(typ)
		if err != nil {
			return nil, fmt.Errorf("container: tag %q: %w", tag, err)
		}
		result = append(result, v)
	}
	return result, nil
}

// ── Deferred loading ─────────────────────────────────────────────────────────

type loaderState uint8

const (
	loaderPending loaderState = iota
	loaderRunning
	loaderDone
)

// loader registers a group of types on first use.
type loader struct {
	types []string
	fn    func(c *Container) error
	state loaderState
	err   error
	done  chan struct{}
}

// Defer installs fn to run the first time any of types is built, made or
// needed as a dependency. fn typically defines or registers those types.
//
// fn runs once. Concurrent first uses wait for it to finish; builds started
// from inside fn, through the container it receives, do not.
func (c *Container) Defer(types []string, fn func(c *Container) error) {
	l := &loader{types: slices.Clone(types), fn: fn, done: make(chan struct{})}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, typ := range types {
		c.deferred[c.canonicalLocked(typ)] = l
	}
}

// load runs the pending loader for typ, if any, or waits for it when
// another call chain is running it.
func (c *Container) load(typ string) error {
	c.mu.Lock()
	l, ok := c.deferred[c.canonicalLocked(typ)]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	switch l.state {
	case loaderDone:
		err := l.err
		c.mu.Unlock()
		return err
	case loaderRunning:
		c.mu.Unlock()
		if slices.Contains(c.loading, l) {
			return nil
		}
		<-l.done
		c.mu.RLock()
		defer c.mu.RUnlock()
		return l.err
	}
	l.state = loaderRunning
	c.mu.Unlock()

	c.log.WithField("types", l.types).Debug("Loading deferred types")
	defer close(l.done)

	inner := &Container{registry: c.registry, loading: append(slices.Clone(c.loading), l)}
	err := l.fn(inner)

	c.mu.Lock()
	defer c.mu.Unlock()
	l.state = loaderDone
	if err != nil {
		l.err = fmt.Errorf("container: deferred loader for %v: %w", l.types, err)
	}
	return l.err
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// Types returns every defined or registered type (for debugging).
func (c *Container) Types() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.definitions)+len(c.instances))
	for k := range c.definitions {
		out = append(out, k)
	}
	for k := range c.instances {
		if _, already := c.definitions[k]; !already {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

func (c *Container) canonical(typ string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.canonicalLocked(typ)
}

// canonicalLocked resolves an alias to its canonical key (must hold mu).
func (c *Container) canonicalLocked(typ string) string {
	if target, ok := c.aliases[typ]; ok {
		return target
	}
	return typ
}

func (c *Container) definitionOf(typ string) (*definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.definitions[c.canonicalLocked(typ)]
	return def, ok
}

// known reports whether typ may be used as a class dependency.
func (c *Container) known(typ string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key := c.canonicalLocked(typ)
	_, defined := c.definitions[key]
	_, registered := c.instances[key]
	_, deferred := c.deferred[key]
	return defined || registered || deferred
}

// ── Callbacks ─────────────────────────────────────────────────────────────────

// Rebinding registers a callback fired whenever Register replaces the shared
// instance of typ.
func (c *Container) Rebinding(typ string, cb func(any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.canonicalLocked(typ)
	c.reboundCallbacks[key] = append(c.reboundCallbacks[key], cb)
}

// AfterResolving registers a callback fired after every successful build.
func (c *Container) AfterResolving(cb func(typ string, instance any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.afterResolving = append(c.afterResolving, cb)
}

func (c *Container) fireRebound(typ string, instance any) {
	c.mu.RLock()
	cbs := slices.Clone(c.reboundCallbacks[typ])
	c.mu.RUnlock()
	for _, cb := range cbs {
		cb(instance)
	}
}

func (c *Container) fireAfterResolving(typ string, instance any) {
	c.mu.RLock()
	cbs := slices.Clone(c.afterResolving)
	c.mu.RUnlock()
	for _, cb := range cbs {
		cb(typ, instance)
	}
}

// ── Reflect helpers ───────────────────────────────────────────────────────────

// TypeKey returns the package-qualified type name of v, useful as a stable
// type identifier. A nil v gives "".
//
//	key := container.TypeKey((*UserRepository)(nil))  // "main.UserRepository"
func TypeKey(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.PkgPath() + "." + t.Name()
}

// KeyOf returns TypeKey for T, including interface types.
//
//	c.Abstract(container.KeyOf[Mailer]())
func KeyOf[T any]() string {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.PkgPath() + "." + t.Name()
}

// ── Generics helpers ──────────────────────────────────────────────────────────

// Build instantiates typ and type-asserts the result.
//
//	a, err := container.Build[*A](c, "A", container.Overrides{"A": container.Args("hello")})
func Build[T any](c *Container, typ string, overrides Overrides) (T, error) {
	v, err := c.Instantiate(typ, overrides)
	if err != nil {
		var zero T
		return zero, err
	}
	return assert[T](typ, v)
}

// Resolve calls Make and type-asserts the result.
//
//	cfg, err := container.Resolve[*config.Config](c, "config")
func Resolve[T any](c *Container, typ string) (T, error) {
	v, err := c.Make(typ)
	if err != nil {
		var zero T
		return zero, err
	}
	return assert[T](typ, v)
}

// MustResolve is like Resolve but panics on error. Meant for boot code where
// a missing service is fatal.
func MustResolve[T any](c *Container, typ string) T {
	v, err := Resolve[T](c, typ)
	if err != nil {
		panic(err)
	}
	return v
}

func assert[T any](typ string, v any) (T, error) {
	typed, ok := v.(T)
	if !ok {
		var zero T
		return zero, &TypeMismatchError{Type: typ, Want: fmt.Sprintf("%T", &zero)[1:], Got: fmt.Sprintf("%T", v)}
	}
	return typed, nil
}
