// Package view renders html/template views and JSON responses.
//
//	engine := view.NewEngine("./views", ".html")
//	engine.Set("title", "Home")
//	err := engine.Render(w, "home/index", map[string]any{"user": u})
//	err  = engine.RenderWithLayout(w, "layouts/app", "home/index", data)
//
// Templates receive a map holding the engine variables, overlaid with the
// data passed to Render when that data is itself a map[string]any; any other
// data value is available as .Data.
package view

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"maps"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// ErrTemplateNotFound is returned when a view file does not exist.
var ErrTemplateNotFound = errors.New("view: template not found")

// Engine holds template location, shared variables and helper functions.
type Engine struct {
	dir     string
	ext     string
	baseURL string

	mu    sync.RWMutex
	vars  map[string]any
	funcs template.FuncMap
}

// NewEngine creates an Engine. dir is the templates directory (e.g.
// "./views"), ext the file extension (e.g. ".html").
func NewEngine(dir, ext string) *Engine {
	e := &Engine{
		dir:  dir,
		ext:  ext,
		vars: make(map[string]any),
	}
	e.funcs = template.FuncMap{"baseUrl": e.BaseURL}
	return e
}

// Dir returns the templates directory.
func (e *Engine) Dir() string { return e.dir }

// SetBaseURL sets the prefix used by BaseURL.
func (e *Engine) SetBaseURL(base string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.baseURL = strings.TrimRight(base, "/")
}

// BaseURL joins p onto the configured base URL.
func (e *Engine) BaseURL(p string) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.baseURL + path.Clean("/"+p)
}

// Set stores a variable visible to every render.
func (e *Engine) Set(key string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vars[key] = value
}

// Get returns a shared variable.
func (e *Engine) Get(key string) any {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.vars[key]
}

// Func registers a template helper function.
func (e *Engine) Func(name string, fn any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.funcs[name] = fn
}

// Render executes the view name with data.
func (e *Engine) Render(w io.Writer, name string, data any) error {
	tmpl, err := e.parse(name)
	if err != nil {
		return err
	}
	setHTML(w)
	return tmpl.Execute(w, e.scope(data))
}

// RenderWithLayout executes layout, with the view name parsed into the same
// template set so the layout can call its blocks.
func (e *Engine) RenderWithLayout(w io.Writer, layout, name string, data any) error {
	tmpl, err := e.parse(layout, name)
	if err != nil {
		return err
	}
	setHTML(w)
	return tmpl.ExecuteTemplate(w, filepath.Base(e.file(layout)), e.scope(data))
}

// Exists reports whether the view file name exists.
func (e *Engine) Exists(name string) bool {
	info, err := os.Stat(e.file(name))
	return err == nil && !info.IsDir()
}

func (e *Engine) file(name string) string {
	return filepath.Join(e.dir, name+e.ext)
}

func (e *Engine) parse(names ...string) (*template.Template, error) {
	files := make([]string, len(names))
	for i, n := range names {
		files[i] = e.file(n)
		if !e.Exists(n) {
			return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, files[i])
		}
	}

	e.mu.RLock()
	funcs := maps.Clone(e.funcs)
	e.mu.RUnlock()

	tmpl, err := template.New(filepath.Base(files[0])).Funcs(funcs).ParseFiles(files...)
	if err != nil {
		return nil, fmt.Errorf("view: parsing %v: %w", names, err)
	}
	return tmpl, nil
}

func (e *Engine) scope(data any) map[string]any {
	e.mu.RLock()
	out := maps.Clone(e.vars)
	e.mu.RUnlock()

	if m, ok := data.(map[string]any); ok {
		maps.Copy(out, m)
	} else if data != nil {
		out["Data"] = data
	}
	return out
}

func setHTML(w io.Writer) {
	if rw, ok := w.(http.ResponseWriter); ok {
		rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
}
