// Package app wires the container, the framework providers and the HTTP
// server into an Application.
//
//	application := app.New()
//	application.Container.Define("UserController", ...)
//	application.Front()
//	err := application.Run(ctx)
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/km-arc/go-peak/framework/config"
	"github.com/km-arc/go-peak/framework/container"
	"github.com/km-arc/go-peak/framework/controller"
	"github.com/km-arc/go-peak/framework/events"
	"github.com/km-arc/go-peak/framework/log"
	"github.com/km-arc/go-peak/framework/providers"
	"github.com/km-arc/go-peak/framework/routing"
	"github.com/km-arc/go-peak/framework/view"
)

// Version of the framework.
const Version = "0.1.0"

// Events fired by the application.
const (
	EventBooted   = "app.booted"
	EventShutdown = "app.shutdown"
)

// ShutdownTimeout bounds how long Run waits for in-flight requests.
var ShutdownTimeout = 10 * time.Second

// Application is the top-level container. It embeds the Container and the
// ProviderRegistry so user code can Define, Register and Instantiate on it
// directly.
type Application struct {
	*container.Container
	Providers *container.ProviderRegistry

	config *config.Config
	log    *logrus.Logger

	booted  bool
	bootErr error
}

// New loads the environment configuration, creates the logger and registers
// the framework providers. Nothing is built until Boot.
func New(envFiles ...string) *Application {
	return NewWithConfig(config.Load(envFiles...))
}

// NewWithConfig is New with an already loaded configuration.
func NewWithConfig(cfg *config.Config) *Application {
	logger := log.New(log.WithLevel(cfg.Log.Level), log.WithFormat(cfg.Log.Format))
	if cfg.App.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	c := container.New(container.WithLogger(logger))
	app := &Application{
		Container: c,
		Providers: container.NewProviderRegistry(c),
		config:    cfg,
		log:       logger,
	}
	c.Register("app", app)

	// The registry is not booted yet, so registering cannot fail.
	for _, p := range []container.ServiceProvider{
		&providers.ConfigServiceProvider{Config: cfg},
		&providers.LogServiceProvider{Logger: logger},
		&providers.EventServiceProvider{},
		&providers.RoutingServiceProvider{},
		&providers.ViewServiceProvider{},
	} {
		_ = app.Providers.Register(p)
	}
	return app
}

// RegisterProvider adds a ServiceProvider to the application.
func (a *Application) RegisterProvider(provider container.ServiceProvider) error {
	return a.Providers.Register(provider)
}

// Boot runs the Boot phase of every provider, then fires EventBooted.
// Later calls return the first call's result.
func (a *Application) Boot() error {
	if !a.booted {
		a.booted = true
		a.bootErr = a.boot()
	}
	return a.bootErr
}

func (a *Application) boot() error {
	if err := a.Providers.Boot(); err != nil {
		return err
	}
	a.log.WithFields(logrus.Fields{
		"env":   a.config.App.Env,
		"types": len(a.Types()),
	}).Debug("Application booted")
	return a.Events().Fire(EventBooted, a)
}

// Config returns the bootstrap configuration.
func (a *Application) Config() *config.Config { return a.config }

// Log returns the application logger.
func (a *Application) Log() *logrus.Logger { return a.log }

// Repository resolves the application config repository.
func (a *Application) Repository() *config.Repository {
	return container.MustResolve[*config.Repository](a.Container, "config.repository")
}

// Router resolves the HTTP router.
func (a *Application) Router() *routing.Router {
	return container.MustResolve[*routing.Router](a.Container, "router")
}

// Routing resolves the path routing.
func (a *Application) Routing() *routing.Routing {
	return container.MustResolve[*routing.Routing](a.Container, "routing")
}

// Views resolves the template engine.
func (a *Application) Views() *view.Engine {
	return container.MustResolve[*view.Engine](a.Container, "view")
}

// Events resolves the event dispatcher.
func (a *Application) Events() *events.Dispatcher {
	return container.MustResolve[*events.Dispatcher](a.Container, "events")
}

// Front mounts the front controller on every path not matched by an
// explicit route, so /user/view/id/1 dispatches UserController.
func (a *Application) Front() {
	a.Router().Handle("/*", controller.Front(a.Container, a.Routing()))
}

// Handler boots the application if needed and returns the router.
func (a *Application) Handler() (http.Handler, error) {
	if err := a.Boot(); err != nil {
		return nil, err
	}
	return a.Router(), nil
}

// Run boots the application and serves HTTP until ctx is done, then shuts
// the server down gracefully.
func (a *Application) Run(ctx context.Context) error {
	handler, err := a.Handler()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + a.config.App.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.WithFields(logrus.Fields{
			"name": a.config.App.Name,
			"addr": srv.Addr,
			"env":  a.config.App.Env,
		}).Info("Server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return a.Events().Fire(EventShutdown, a)
}

// Environment returns APP_ENV.
func (a *Application) Environment() string { return a.config.App.Env }
func (a *Application) IsLocal() bool       { return a.Environment() == "dev" }
func (a *Application) IsProduction() bool  { return a.Environment() == "prod" }
func (a *Application) IsTesting() bool     { return a.Environment() == "testing" }
func (a *Application) IsDebug() bool       { return a.config.App.Debug }
func (a *Application) Version() string     { return Version }
