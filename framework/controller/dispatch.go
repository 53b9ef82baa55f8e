package controller

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/km-arc/go-peak/framework/container"
	"github.com/km-arc/go-peak/framework/routing"
)

// ActionController is a controller built on Action. PreAction and
// PostAction are resolved on the embedding type, so overriding them there
// takes effect.
type ActionController interface {
	Base() *Action
	PreAction() error
	PostAction() error
}

// Dispatch runs PreAction, the routed action and PostAction, stopping at
// the first error.
func Dispatch(c ActionController) error {
	if err := c.PreAction(); err != nil {
		return err
	}
	if err := c.Base().DispatchAction(); err != nil {
		return err
	}
	return c.PostAction()
}

// TypeName maps a route controller to its container type identifier:
// "user" gives "UserController".
func TypeName(controller string) string {
	if controller == "" {
		return ""
	}
	return strings.ToUpper(controller[:1]) + controller[1:] + "Controller"
}

// Handler builds typ from c for every request and dispatches action, with
// the matched URL parameters as action parameters.
//
//	router.Get("/users/{id}", controller.Handler(app.Container, "UserController", "view").ServeHTTP)
func Handler(c *container.Container, typ, action string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params := routing.Params(r)
		route := routing.Route{Action: action, ParamsAssoc: params}
		for _, k := range slices.Sorted(maps.Keys(params)) {
			route.Params = append(route.Params, k, params[k])
		}
		serve(c, typ, route, w, r)
	})
}

// Front resolves every request path with rt and dispatches the routed
// controller, built from c under TypeName(route.Controller).
func Front(c *container.Container, rt *routing.Routing) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := rt.Resolve(r.URL.Path)
		serve(c, TypeName(route.Controller), route, w, r)
	})
}

func serve(c *container.Container, typ string, route routing.Route, w http.ResponseWriter, r *http.Request) {
	log := routing.RequestLogger(r.Context(), logger(c)).WithFields(logrus.Fields{
		"controller": typ,
		"action":     route.Action,
	})

	built, err := c.Instantiate(typ, nil)
	if err != nil {
		// only a missing controller is a 404; a missing dependency is a wiring error
		var uc *container.UnconstructibleError
		if errors.As(err, &uc) && uc.Type == typ && !uc.Abstract {
			log.WithError(err).Debug("Controller not found")
			http.NotFound(w, r)
			return
		}
		log.WithError(err).Error("Building controller failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	ctrl, ok := built.(ActionController)
	if !ok {
		log.Errorf("Built %T, which is not an action controller", built)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	base := ctrl.Base()
	base.SetRoute(route)
	base.Bind(w, r)

	if err := Dispatch(ctrl); err != nil {
		status := StatusOf(err)
		if status >= http.StatusInternalServerError {
			log.WithError(err).Error("Dispatch failed")
		} else {
			log.WithError(err).Debug("Dispatch rejected")
		}
		http.Error(w, http.StatusText(status), status)
	}
}

// StatusOf maps a dispatch error to an HTTP status.
func StatusOf(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrActionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrActionParamsMissing):
		return http.StatusBadRequest
	default:
		var herr *HTTPError
		if errors.As(err, &herr) {
			return herr.Status
		}
		return http.StatusInternalServerError
	}
}

// HTTPError lets an action fail with a specific status.
type HTTPError struct {
	Status int
	Err    error
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("controller: %d %s: %v", e.Status, http.StatusText(e.Status), e.Err)
}

func (e *HTTPError) Unwrap() error { return e.Err }

func logger(c *container.Container) logrus.FieldLogger {
	if l, err := container.Resolve[logrus.FieldLogger](c, "log"); err == nil {
		return l
	}
	return logrus.StandardLogger()
}
