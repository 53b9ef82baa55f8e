package container

import "fmt"

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups related definitions and registrations.
//
// Register is called when the provider is added (or, for deferred providers,
// the first time one of its types is needed). Boot is called after all eager
// providers have registered, so it is safe to build or make other types there.
//
//	type MailProvider struct{ container.BaseProvider }
//
//	func (p *MailProvider) Register(app *container.Container) {
//	    app.Define("mailer", []container.Param{
//	        container.Dep("config", "config"),
//	    }, newMailer)
//	}
//
//	func (p *MailProvider) Boot(app *container.Container) error {
//	    _, err := app.Singleton("mailer", nil)
//	    return err
//	}
type ServiceProvider interface {
	// Register defines types and registers instances.
	// Do not build other types here; use Boot for that.
	Register(app *Container)

	// Boot is called after all providers are registered.
	Boot(app *Container) error

	// Provides lists the types a deferred provider makes available.
	Provides() []string

	// IsDeferred reports whether Register waits until one of Provides() is
	// first needed.
	IsDeferred() bool
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable struct with no-op Boot, Provides and
// IsDeferred. Embed it and implement Register.
type BaseProvider struct{}

func (p *BaseProvider) Boot(_ *Container) error { return nil }
func (p *BaseProvider) Provides() []string      { return nil }
func (p *BaseProvider) IsDeferred() bool        { return false }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry registers and boots ServiceProviders, including deferred
// ones.
type ProviderRegistry struct {
	app        *Container
	eager      []ServiceProvider
	booted     bool
	registered map[ServiceProvider]bool
}

// NewProviderRegistry creates a registry bound to app.
func NewProviderRegistry(app *Container) *ProviderRegistry {
	return &ProviderRegistry{
		app:        app,
		registered: make(map[ServiceProvider]bool),
	}
}

// Register adds a provider. Eager providers register immediately, and boot
// immediately too when the registry has already booted. Registering the
// same provider twice is a no-op.
func (r *ProviderRegistry) Register(provider ServiceProvider) error {
	if r.registered[provider] {
		return nil
	}
	r.registered[provider] = true

	if provider.IsDeferred() {
		r.app.Defer(provider.Provides(), func(c *Container) error {
			provider.Register(c)
			if r.booted {
				return r.boot(c, provider)
			}
			return nil
		})
		return nil
	}

	provider.Register(r.app)
	r.eager = append(r.eager, provider)

	if r.booted {
		return r.boot(r.app, provider)
	}
	return nil
}

// Boot calls Boot on every eager provider in registration order and stops
// at the first error. Later calls are no-ops.
func (r *ProviderRegistry) Boot() error {
	if r.booted {
		return nil
	}
	r.booted = true
	for _, provider := range r.eager {
		if err := r.boot(r.app, provider); err != nil {
			return err
		}
	}
	return nil
}

// boot boots provider on c, which is the loader's view of the container when
// a deferred provider is loaded.
func (r *ProviderRegistry) boot(c *Container, provider ServiceProvider) error {
	if err := provider.Boot(c); err != nil {
		return fmt.Errorf("booting %T: %w", provider, err)
	}
	return nil
}

// Booted returns true if Boot has been called.
func (r *ProviderRegistry) Booted() bool { return r.booted }

// Providers returns the eager providers.
func (r *ProviderRegistry) Providers() []ServiceProvider { return r.eager }
