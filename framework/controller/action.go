// Package controller dispatches routes to action controllers.
//
// A controller embeds Action and declares its actions with their
// parameters, the same way types are declared to the container:
//
//	type UserController struct{ controller.Action }
//
//	func NewUserController(v *view.Engine) *UserController {
//		c := &UserController{Action: controller.NewAction("UserController", v)}
//		c.Handle("view", []container.Param{container.Value("id")}, c.view)
//		c.Handle("list", []container.Param{container.Optional("page", "1")}, c.list)
//		return c
//	}
//
// Action parameters are filled by name from the route's ParamsAssoc; a
// missing parameter takes its declared default or fails the dispatch.
package controller

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/km-arc/go-peak/framework/container"
	"github.com/km-arc/go-peak/framework/routing"
	"github.com/km-arc/go-peak/framework/view"
)

// Prefix is prepended to action names, so the route action "view" runs the
// action registered as "_view".
const Prefix = "_"

// DefaultAction runs when a route names no action.
const DefaultAction = Prefix + "index"

var (
	ErrActionNotFound      = errors.New("controller: action not found")
	ErrActionParamsMissing = errors.New("controller: action params missing")
)

// ActionNotFoundError is returned when the routed action is not declared.
type ActionNotFoundError struct {
	Controller string
	Action     string
}

func (e *ActionNotFoundError) Error() string {
	return fmt.Sprintf("controller: action %s not found in %s", e.Action, e.Controller)
}

func (e *ActionNotFoundError) Unwrap() error { return ErrActionNotFound }

// ActionParamsMissingError lists the required action parameters the route
// did not supply.
type ActionParamsMissingError struct {
	Controller string
	Action     string
	Missing    []string
}

func (e *ActionParamsMissingError) Error() string {
	return fmt.Sprintf("controller: action %s of %s is missing params %s",
		e.Action, e.Controller, strings.Join(e.Missing, ", "))
}

func (e *ActionParamsMissingError) Unwrap() error { return ErrActionParamsMissing }

// ActionFunc runs an action with its resolved arguments, in declaration
// order. Route values are strings; defaults keep their declared type.
type ActionFunc func(args []any) error

type action struct {
	params []container.Param
	run    ActionFunc
}

// Action is the embeddable base of action controllers.
type Action struct {
	// View renders the controller's scripts. May be nil for JSON-only
	// controllers.
	View *view.Engine

	// Cache, when set, serves and stores rendered output keyed by request
	// URI.
	Cache *view.Cache

	// File is the view script of the dispatched action, "<title>/<action>".
	File string

	Request  *http.Request
	Response *view.Response

	name        string
	action      string
	params      []string
	paramsAssoc map[string]string
	actions     map[string]action
}

// NewAction returns a base for the controller called name.
func NewAction(name string, v *view.Engine) Action {
	return Action{
		View:        v,
		name:        name,
		action:      DefaultAction,
		paramsAssoc: map[string]string{},
		actions:     map[string]action{},
	}
}

// Handle declares the action name (without prefix).
func (a *Action) Handle(name string, params []container.Param, fn ActionFunc) {
	if a.actions == nil {
		a.actions = map[string]action{}
	}
	a.actions[Prefix+name] = action{params: slices.Clone(params), run: fn}
}

// Base returns a, satisfying ActionController for embedders.
func (a *Action) Base() *Action { return a }

// PreAction runs before the action. Embedders override it.
func (a *Action) PreAction() error { return nil }

// PostAction runs after a successful action. Embedders override it.
func (a *Action) PostAction() error { return nil }

// Name returns the lowercased controller name.
func (a *Action) Name() string { return strings.ToLower(a.name) }

// Title returns the name without its "controller" suffix, capitalized:
// "UserController" gives "User".
func (a *Action) Title() string {
	name := a.Name()
	name = strings.TrimSuffix(name, "controller")
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// Current returns the prefixed name of the routed action.
func (a *Action) Current() string { return a.action }

// Actions returns the declared actions, prefixed and sorted.
func (a *Action) Actions() []string {
	out := make([]string, 0, len(a.actions))
	for name := range a.actions {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// IsAction reports whether name, with its prefix, is a declared action.
func (a *Action) IsAction(name string) bool {
	_, ok := a.actions[name]
	return ok
}

// SetRoute takes the action and parameters to dispatch from route.
func (a *Action) SetRoute(route routing.Route) {
	a.params = slices.Clone(route.Params)
	a.paramsAssoc = make(map[string]string, len(route.ParamsAssoc))
	for k, v := range route.ParamsAssoc {
		a.paramsAssoc[k] = v
	}
	a.action = Prefix + route.Action
	if a.action == Prefix {
		a.action = DefaultAction
	}
}

// Params returns the raw route parameters.
func (a *Action) Params() []string { return a.params }

// Param returns the named route parameter.
func (a *Action) Param(key string) (string, bool) {
	v, ok := a.paramsAssoc[key]
	return v, ok
}

// Bind attaches the current request and response writer.
func (a *Action) Bind(w http.ResponseWriter, r *http.Request) {
	a.Request = r
	a.Response = view.NewResponse(w)
}

// Render renders File with data, through Cache when one is set.
func (a *Action) Render(data any) error {
	if a.View == nil {
		return fmt.Errorf("controller: %s has no view", a.Name())
	}
	if a.Response == nil {
		return fmt.Errorf("controller: %s is not bound to a response", a.Name())
	}
	if a.Cache != nil {
		key := a.File
		if a.Request != nil {
			key = a.Request.URL.RequestURI()
		}
		return a.Cache.Render(a.Response.Raw(), key, a.File, data)
	}
	return a.View.Render(a.Response.Raw(), a.File, data)
}

// Redirect sends the client to url joined onto the view base URL.
func (a *Action) Redirect(url string, status int) error {
	if a.Response == nil {
		return fmt.Errorf("controller: %s is not bound to a response", a.Name())
	}
	if a.View != nil {
		url = a.View.BaseURL(url)
	}
	a.Response.Redirect(url, status)
	return nil
}

// DispatchAction runs the routed action with its parameters.
func (a *Action) DispatchAction() error {
	act, ok := a.actions[a.action]
	if !ok {
		return &ActionNotFoundError{Controller: a.Name(), Action: a.action}
	}
	a.File = a.Title() + "/" + strings.TrimPrefix(a.action, Prefix)

	args := make([]any, 0, len(act.params))
	var missing []string
	for _, p := range act.params {
		switch v, ok := a.paramsAssoc[p.Name]; {
		case ok:
			args = append(args, v)
		case p.Optional:
			args = append(args, p.Default)
		default:
			missing = append(missing, p.Name)
		}
	}
	if len(missing) > 0 {
		return &ActionParamsMissingError{Controller: a.Name(), Action: a.action, Missing: missing}
	}
	return act.run(args)
}
