// Package providers holds the service providers that declare the
// framework's own types to the container.
//
// Types and their dependencies:
//
//	config             *config.Config
//	config.repository  *config.Repository  ← config
//	log                *logrus.Logger      ← config
//	events             *events.Dispatcher  ← container
//	router             *routing.Router     ← log
//	routing            *routing.Routing    ← config.repository
//	view               *view.Engine        ← config.repository (deferred)
//	view.cache         *view.Cache         ← view, config.repository (deferred)
package providers

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/km-arc/go-peak/framework/config"
	"github.com/km-arc/go-peak/framework/container"
	"github.com/km-arc/go-peak/framework/events"
	"github.com/km-arc/go-peak/framework/log"
	"github.com/km-arc/go-peak/framework/routing"
	"github.com/km-arc/go-peak/framework/view"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider declares the bootstrap Config and the application
// config Repository.
//
// The repository starts from Config.Items() and merges the application
// config file (Config.ConfFile()), flattened for the current environment.
// A missing file is not an error.
type ConfigServiceProvider struct {
	container.BaseProvider

	// Config, when set, is registered as is instead of loading one.
	Config   *config.Config
	EnvFiles []string
}

func (p *ConfigServiceProvider) Register(app *container.Container) {
	if p.Config != nil {
		app.Register("config", p.Config)
	} else {
		envFiles := p.EnvFiles
		app.Define("config", nil, func([]any) (any, error) {
			return config.Load(envFiles...), nil
		})
	}
	app.Alias("config", "configuration")

	app.Define("config.repository", []container.Param{
		container.Dep("config", "config"),
	}, func(args []any) (any, error) {
		cfg, err := container.Arg[*config.Config](args, 0)
		if err != nil {
			return nil, err
		}
		return Repository(cfg)
	})
}

func (p *ConfigServiceProvider) Boot(app *container.Container) error {
	if !app.HasInstance("config") {
		if _, err := app.Singleton("config", nil); err != nil {
			return err
		}
	}
	cfg, err := container.Resolve[*config.Config](app, "config")
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	_, err = app.Singleton("config.repository", nil)
	return err
}

// Repository builds the application config repository for cfg.
func Repository(cfg *config.Config) (*config.Repository, error) {
	file := config.FileStream{Path: cfg.ConfFile(), Optional: true}
	items, err := file.Get()
	if err != nil {
		return nil, err
	}
	return config.Merge(
		config.RepositoryStream{Repository: config.NewRepository(cfg.Items())},
		config.DataStream{
			Data:      func() map[string]any { return config.Environment(items, cfg.App.Env) },
			Processor: config.CallableProcessor{},
		},
	)
}

// ── LogServiceProvider ────────────────────────────────────────────────────────

// LogServiceProvider declares the application logger, configured from
// Config.Log.
type LogServiceProvider struct {
	container.BaseProvider

	// Logger, when set, is registered as is.
	Logger *logrus.Logger
}

func (p *LogServiceProvider) Register(app *container.Container) {
	if p.Logger != nil {
		app.Register("log", p.Logger)
		return
	}
	app.Define("log", []container.Param{
		container.Dep("config", "config"),
	}, func(args []any) (any, error) {
		cfg, err := container.Arg[*config.Config](args, 0)
		if err != nil {
			return nil, err
		}
		return log.New(log.WithLevel(cfg.Log.Level), log.WithFormat(cfg.Log.Format)), nil
	})
}

func (p *LogServiceProvider) Boot(app *container.Container) error {
	if app.HasInstance("log") {
		return nil
	}
	_, err := app.Singleton("log", nil)
	return err
}

// ── EventServiceProvider ──────────────────────────────────────────────────────

// EventServiceProvider declares the event dispatcher.
type EventServiceProvider struct {
	container.BaseProvider
}

func (p *EventServiceProvider) Register(app *container.Container) {
	app.Define("events", []container.Param{
		container.Dep("container", "container"),
	}, func(args []any) (any, error) {
		c, err := container.Arg[*container.Container](args, 0)
		if err != nil {
			return nil, err
		}
		return events.NewDispatcher(c), nil
	})
}

func (p *EventServiceProvider) Boot(app *container.Container) error {
	_, err := app.Singleton("events", nil)
	return err
}

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider declares the HTTP router and the path Routing.
//
// Configuration keys read from "config.repository":
//   - routing.base_uri (default: "/")
//   - routes: list of "pattern | controller/action" custom routes
type RoutingServiceProvider struct {
	container.BaseProvider
}

func (p *RoutingServiceProvider) Register(app *container.Container) {
	app.Define("router", []container.Param{
		container.Dep("log", "log"),
	}, func(args []any) (any, error) {
		logger, err := container.Arg[*logrus.Logger](args, 0)
		if err != nil {
			return nil, err
		}
		return routing.New(logger), nil
	})

	app.Define("routing", []container.Param{
		container.Dep("repo", "config.repository"),
	}, func(args []any) (any, error) {
		repo, err := container.Arg[*config.Repository](args, 0)
		if err != nil {
			return nil, err
		}
		return Routing(repo)
	})
}

func (p *RoutingServiceProvider) Boot(app *container.Container) error {
	if _, err := app.Singleton("router", nil); err != nil {
		return err
	}
	_, err := app.Singleton("routing", nil)
	return err
}

// Routing builds the path Routing from repo.
func Routing(repo *config.Repository) (*routing.Routing, error) {
	rt := routing.NewRouting(repo.String("routing.base_uri", "/"))

	raw := repo.Get("routes")
	if raw == nil {
		return rt, nil
	}
	entries, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: routes must be a list, %T given", routing.ErrInvalidRoute, raw)
	}
	var errs []error
	for i, e := range entries {
		s, ok := e.(string)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: routes[%d] must be a string", routing.ErrInvalidRoute, i))
			continue
		}
		cr, err := routing.ParseCustomRoute(s)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rt.Add(cr)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return rt, nil
}

// ── ViewServiceProvider ───────────────────────────────────────────────────────

// ViewServiceProvider declares the template engine. It is deferred: nothing
// is parsed or stat'ed until "view" is first needed.
//
// Configuration keys read from "config.repository":
//   - view.dir (default: Dir, then "<path.app>/views")
//   - view.ext (default: Ext, then ".html")
//   - view.base_url (default: "/")
//   - view.cache.dir: enables the output cache; the directory must exist
//   - view.cache.ttl: entry lifetime, a duration ("5m") or seconds (default: 0, disabled)
type ViewServiceProvider struct {
	container.BaseProvider
	Dir string
	Ext string
}

func (p *ViewServiceProvider) Register(app *container.Container) {
	app.Define("view", []container.Param{
		container.Dep("repo", "config.repository"),
	}, func(args []any) (any, error) {
		repo, err := container.Arg[*config.Repository](args, 0)
		if err != nil {
			return nil, err
		}
		dir := p.Dir
		if dir == "" {
			dir = filepath.Join(repo.String("path.app", "app"), "views")
		}
		ext := p.Ext
		if ext == "" {
			ext = ".html"
		}
		engine := view.NewEngine(repo.String("view.dir", dir), repo.String("view.ext", ext))
		engine.SetBaseURL(repo.String("view.base_url", "/"))
		return engine, nil
	})

	app.Define("view.cache", []container.Param{
		container.Dep("view", "view"),
		container.Dep("repo", "config.repository"),
	}, func(args []any) (any, error) {
		engine, err := container.Arg[*view.Engine](args, 0)
		if err != nil {
			return nil, err
		}
		repo, err := container.Arg[*config.Repository](args, 1)
		if err != nil {
			return nil, err
		}
		return Cache(engine, repo)
	})
}

func (p *ViewServiceProvider) Boot(app *container.Container) error {
	if _, err := app.Singleton("view", nil); err != nil {
		return err
	}
	repo, err := container.Resolve[*config.Repository](app, "config.repository")
	if err != nil {
		return err
	}
	if !repo.Has("view.cache.dir") {
		return nil
	}
	_, err = app.Singleton("view.cache", nil)
	return err
}

func (p *ViewServiceProvider) IsDeferred() bool   { return true }
func (p *ViewServiceProvider) Provides() []string { return []string{"view", "view.cache"} }

// Cache builds the view output cache configured in repo. It is enabled when
// view.cache.ttl is positive.
func Cache(engine *view.Engine, repo *config.Repository) (*view.Cache, error) {
	cache, err := view.NewCache(engine, repo.String("view.cache.dir", ""))
	if err != nil {
		return nil, err
	}
	ttl, err := duration(repo.Get("view.cache.ttl"))
	if err != nil {
		return nil, fmt.Errorf("%w: view.cache.ttl: %v", config.ErrInvalid, err)
	}
	if ttl > 0 {
		cache.Enable(ttl)
	}
	return cache, nil
}

// duration reads a duration string or a number of seconds.
func duration(v any) (time.Duration, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case string:
		return time.ParseDuration(t)
	case int:
		return time.Duration(t) * time.Second, nil
	case float64:
		return time.Duration(t * float64(time.Second)), nil
	default:
		return 0, fmt.Errorf("unsupported value %v (%T)", v, v)
	}
}
