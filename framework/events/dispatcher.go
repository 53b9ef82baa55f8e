// Package events provides a named-event dispatcher.
//
// Listeners are attached by event name and fired in attachment order:
//
//	d := events.NewDispatcher(c)
//	d.Attach("user.created", func(argv any) { ... })   // closure
//	d.Attach("user.created", mailer)                   // Listener value, keeps its state
//	d.Attach("user.created", "audit.listener")         // type built by the container on every fire
//	err := d.Fire("user.created", user)
package events

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/km-arc/go-peak/framework/container"
)

// ErrInvalidListener is returned by Fire when an attached listener cannot be
// called.
var ErrInvalidListener = errors.New("events: invalid listener")

// Listener reacts to a fired event.
type Listener interface {
	Fire(argv any)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(argv any)

func (f ListenerFunc) Fire(argv any) { f(argv) }

// Dispatcher maps event names to listeners. It is safe for concurrent use.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners map[string][]any
	container *container.Container
}

// NewDispatcher returns a dispatcher that builds type-identifier listeners
// with c. c may be nil when no such listeners are attached.
func NewDispatcher(c *container.Container) *Dispatcher {
	return &Dispatcher{
		listeners: make(map[string][]any),
		container: c,
	}
}

// Attach adds a listener to event. listener may be a Listener, a
// func(any), a func(), or a type identifier string. Anything else is
// accepted here and reported by Fire.
func (d *Dispatcher) Attach(event string, listener any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[event] = append(d.listeners[event], listener)
}

// HasEvent returns true if at least one listener is attached to event.
func (d *Dispatcher) HasEvent(event string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners[event]) > 0
}

// Detach removes every listener of event.
func (d *Dispatcher) Detach(event string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.listeners, event)
}

// Fire calls the listeners of event in attachment order with argv. It stops
// at the first listener that cannot be called or built.
func (d *Dispatcher) Fire(event string, argv ...any) error {
	d.mu.RLock()
	listeners := slices.Clone(d.listeners[event])
	d.mu.RUnlock()

	var arg any
	if len(argv) > 0 {
		arg = argv[0]
	}

	for i, l := range listeners {
		fn, err := d.callable(l)
		if err != nil {
			return fmt.Errorf("events: firing %q (listener %d): %w", event, i, err)
		}
		fn(arg)
	}
	return nil
}

func (d *Dispatcher) callable(l any) (func(any), error) {
	switch t := l.(type) {
	case Listener:
		return t.Fire, nil
	case func(any):
		return t, nil
	case func():
		return func(any) { t() }, nil
	case string:
		if d.container == nil {
			return nil, fmt.Errorf("%w: %q needs a container", ErrInvalidListener, t)
		}
		built, err := d.container.Instantiate(t, nil)
		if err != nil {
			return nil, err
		}
		listener, ok := built.(Listener)
		if !ok {
			return nil, fmt.Errorf("%w: [%s] built %T, which is not a Listener", ErrInvalidListener, t, built)
		}
		return listener.Fire, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidListener, l)
	}
}
