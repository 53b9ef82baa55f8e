// Package container provides the dependency-injection container at the heart
// of the framework.
//
// # Overview
//
// Go has no runtime constructor reflection of the kind the container needs,
// so every constructible type is declared once with Define: its ordered
// parameters and a constructor receiving the resolved arguments. From those
// declarations the container builds whole object graphs:
//
//   - Inspector classifies each parameter as a class dependency (another
//     type known to the container) or a plain value (scalar, untyped,
//     collection). Unions, intersections and unknown names are reported per
//     parameter.
//   - Resolver walks the descriptors in order. Class dependencies reuse a
//     registered shared instance or are built recursively; plain values come
//     from the caller's overrides, then from declared defaults.
//   - Container owns the shared-instance registry and runs the constructors.
//
// # Container Lifecycle
//
//  1. Create: c := container.New()
//  2. Declare: c.Define(...), c.Abstract(...), c.Alias(...)
//  3. Register providers: registry.Register(&MyProvider{})
//  4. Boot: registry.Boot()
//  5. Build: c.Instantiate(...), c.Make(...)
//
// # Declaring types
//
//	c.Define("B", nil, func([]any) (any, error) { return &B{}, nil })
//
//	c.Define("A", []container.Param{
//	    container.Dep("b", "B"),                 // class dependency
//	    container.Typed("name", "string"),       // required plain value
//	    container.Optional("retries", 3),        // plain value with default
//	}, func(args []any) (any, error) {
//	    return &A{B: args[0].(*B), Name: args[1].(string), Retries: args[2].(int)}, nil
//	})
//
//	c.Abstract("Mailer")                      // satisfied only by Register
//	c.Alias("Mailer", "mail")
//
// # Shared instances
//
// Building never registers its result. Sharing is explicit:
//
//	c.Register("Mailer", smtpMailer)          // bind an instance
//	c.Singleton("Cache", nil)                 // build once, then register
//	c.HasInstance("Cache")                    // true
//	inst, err := c.GetInstance("Cache")
//
// Every later build that depends on a shared type receives that exact
// instance.
//
// # Overrides
//
// Plain parameters are filled positionally from the override bucket of the
// type being built; class parameters do not take a position:
//
//	// A(b B, name string)
//	a, err := c.Instantiate("A", container.Overrides{"A": container.Args("hello")})
//
// A bucket is visible only to its own type. A dependency sees the bucket
// stored under its key in its parent's map, and nested maps reach further
// down:
//
//	c.Instantiate("A", container.Overrides{
//	    "A": container.Args("hello"),
//	    "B": container.Nest(container.Overrides{
//	        "B":    container.Args("dsn"),
//	        "Pool": container.Args(8),
//	    }),
//	})
//
// # Errors
//
// A build stops at the first failing parameter and returns one of
// ErrInspection, ErrMissingArgument, ErrUnconstructible,
// ErrCircularDependency or ErrBuild (wrapping the constructor error). Typed
// errors name the parameter and the enclosing type; nested failures are
// wrapped in ParamError for each level.
//
// # Service Providers
//
//	type AppServiceProvider struct{ container.BaseProvider }
//
//	func (p *AppServiceProvider) Register(app *container.Container) {
//	    app.Define("mailer", []container.Param{container.Dep("config", "config")}, newMailer)
//	}
//
//	func (p *AppServiceProvider) Boot(app *container.Container) error {
//	    _, err := app.Singleton("mailer", nil)
//	    return err
//	}
//
// Deferred providers return true from IsDeferred and list their types in
// Provides; they register the first time one of those types is needed.
package container
