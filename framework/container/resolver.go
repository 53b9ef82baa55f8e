package container

import "errors"

// Resolver turns a type's descriptors into a constructor argument list.
type Resolver struct {
	inspector *Inspector
}

// NewResolver returns a resolver backed by inspector.
func NewResolver(inspector *Inspector) *Resolver {
	return &Resolver{inspector: inspector}
}

// Resolve returns the ordered arguments for typ. Class dependencies come
// from c: a shared instance when one is registered, a fresh nested build
// otherwise. Plain parameters come from overrides[typ], then defaults.
//
// Resolution stops at the first failing parameter.
func (r *Resolver) Resolve(typ string, c *Container, overrides Overrides) ([]any, error) {
	key := c.canonical(typ)
	return r.resolve(key, c, overrides.normalize(c.canonical), []string{key})
}

// resolve does the work for one type; path is the active resolution chain
// ending with typ.
func (r *Resolver) resolve(typ string, c *Container, overrides Overrides, path []string) ([]any, error) {
	descriptors, err := r.inspector.Inspect(typ)
	if err != nil {
		return nil, err
	}

	args := make([]any, 0, len(descriptors))
	classes := 0

	for i, d := range descriptors {
		if d.Err != nil {
			return nil, d.Err
		}

		if d.Kind == KindClass {
			classes++
			v, err := r.dependency(typ, d, c, overrides, path)
			if err != nil {
				return nil, err
			}
			args = append(args, v)
			continue
		}

		position := i - classes
		if v, ok := overrides.arg(typ, position); ok {
			args = append(args, v)
			continue
		}
		if d.Optional {
			args = append(args, d.Default)
			continue
		}
		return nil, &MissingArgumentError{Type: typ, Param: d.Name, Position: position}
	}

	return args, nil
}

func (r *Resolver) dependency(owner string, d Descriptor, c *Container, overrides Overrides, path []string) (any, error) {
	if err := c.load(d.Type); err != nil {
		return nil, &ParamError{Type: owner, Param: d.Name, Err: err}
	}
	if inst, err := c.GetInstance(d.Type); err == nil {
		return inst, nil
	}
	v, err := c.instantiate(d.Type, overrides.child(d.Type), path)
	if err != nil {
		// an optional abstract dependency with nothing bound falls back to its default
		var uc *UnconstructibleError
		if d.Optional && errors.As(err, &uc) && uc.Type == d.Type {
			return d.Default, nil
		}
		return nil, &ParamError{Type: owner, Param: d.Name, Err: err}
	}
	return v, nil
}
