package routing

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"sync"
)

// ErrInvalidRoute is wrapped by custom route parse failures.
var ErrInvalidRoute = errors.New("routing: invalid route")

// DefaultController is used when a path names no controller.
const DefaultController = "index"

// Route is the controller, action and parameters a request path resolves to.
// Params keeps the raw segments after the action; ParamsAssoc pairs them as
// key/value (or holds the named captures of a custom route).
type Route struct {
	Controller  string
	Action      string
	Params      []string
	ParamsAssoc map[string]string
}

// CustomRoute maps a path pattern to a fixed controller and action. Pattern
// segments written {name} capture one path segment into ParamsAssoc.
//
//	user/{id}  →  user/view   matches /user/42 with id=42
type CustomRoute struct {
	Pattern    string
	Controller string
	Action     string

	re    *regexp.Regexp
	names []string
}

// placeholder matches a {name} segment after regexp.QuoteMeta escaped it.
var placeholder = regexp.MustCompile(`\\\{([a-zA-Z_][a-zA-Z0-9_]*)\\\}`)

// NewCustomRoute compiles pattern.
func NewCustomRoute(pattern, controller, action string) (*CustomRoute, error) {
	pattern = strings.Trim(pattern, "/")
	if controller == "" {
		return nil, fmt.Errorf("%w: %q has no controller", ErrInvalidRoute, pattern)
	}

	var names []string
	expr := placeholder.ReplaceAllStringFunc(regexp.QuoteMeta(pattern), func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		names = append(names, name)
		return `(?P<` + name + `>[^/]+)`
	})
	re, err := regexp.Compile("^" + expr + "$")
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidRoute, pattern, err)
	}
	return &CustomRoute{Pattern: pattern, Controller: controller, Action: action, re: re, names: names}, nil
}

// ParseCustomRoute reads the config form "pattern | controller/action".
func ParseCustomRoute(s string) (*CustomRoute, error) {
	pattern, target, ok := strings.Cut(s, "|")
	if !ok {
		return nil, fmt.Errorf("%w: %q, expected \"pattern | controller/action\"", ErrInvalidRoute, s)
	}
	controller, action, _ := strings.Cut(strings.Trim(strings.TrimSpace(target), "/"), "/")
	return NewCustomRoute(strings.TrimSpace(pattern), controller, action)
}

func (cr *CustomRoute) match(path string) (Route, bool) {
	m := cr.re.FindStringSubmatch(path)
	if m == nil {
		return Route{}, false
	}
	route := Route{
		Controller:  cr.Controller,
		Action:      cr.Action,
		Params:      make([]string, 0, len(cr.names)),
		ParamsAssoc: make(map[string]string, len(cr.names)),
	}
	for i, name := range cr.names {
		route.Params = append(route.Params, m[i+1])
		route.ParamsAssoc[name] = m[i+1]
	}
	return route, true
}

// Routing resolves request paths relative to a base URI. Custom routes are
// tried in the order they were added, before the default
// /controller/action/key/value layout.
type Routing struct {
	BaseURI string

	mu     sync.RWMutex
	custom []*CustomRoute
}

// NewRouting creates a Routing rooted at baseURI ("" or "/" for the site
// root).
func NewRouting(baseURI string) *Routing {
	return &Routing{BaseURI: "/" + strings.Trim(baseURI, "/")}
}

// Add appends custom routes.
func (rt *Routing) Add(routes ...*CustomRoute) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.custom = append(rt.custom, routes...)
}

// CustomRoutes returns the custom routes in resolution order.
func (rt *Routing) CustomRoutes() []*CustomRoute {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return slices.Clone(rt.custom)
}

// Resolve turns a request path into a Route.
//
//	/user/view/id/42   →  {user view [id 42] map[id:42]}
//	/                  →  {index "" [] map[]}
func (rt *Routing) Resolve(requestPath string) Route {
	p := rt.relative(requestPath)

	for _, cr := range rt.CustomRoutes() {
		if route, ok := cr.match(p); ok {
			return route
		}
	}

	route := Route{Controller: DefaultController, ParamsAssoc: map[string]string{}}
	var segments []string
	for s := range strings.SplitSeq(p, "/") {
		if s == "" {
			continue
		}
		if u, err := url.PathUnescape(s); err == nil {
			s = u
		}
		segments = append(segments, s)
	}
	if len(segments) > 0 {
		route.Controller = segments[0]
	}
	if len(segments) > 1 {
		route.Action = segments[1]
	}
	if len(segments) > 2 {
		route.Params = segments[2:]
		for i := 0; i+1 < len(route.Params); i += 2 {
			route.ParamsAssoc[route.Params[i]] = route.Params[i+1]
		}
	}
	return route
}

func (rt *Routing) relative(requestPath string) string {
	p := "/" + strings.Trim(requestPath, "/")
	if rt.BaseURI != "/" {
		if p == rt.BaseURI {
			return ""
		}
		p = strings.TrimPrefix(p, rt.BaseURI+"/")
	}
	return strings.Trim(p, "/")
}
