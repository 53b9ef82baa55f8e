package container

// Override holds caller-supplied values for one type.
//
// Args are positional values for the type's own plain parameters; class
// parameters do not consume a position. Deps is applied only when the type
// is built as a nested dependency: it becomes the override map for that
// nested build.
type Override struct {
	Args []any
	Deps Overrides
}

// Overrides maps a type identifier to its override bucket.
//
//	// A(b B, name string), B(url string)
//	c.Instantiate("A", container.Overrides{
//	    "A": container.Args("hello"),
//	    "B": container.Args("postgres://..."),
//	})
//
//	// nested: C is reached only through B
//	c.Instantiate("A", container.Overrides{
//	    "B": container.Nest(container.Overrides{
//	        "B": container.Args("postgres://..."),
//	        "C": container.Args(42),
//	    }),
//	})
type Overrides map[string]Override

// Args builds an override bucket of positional plain values.
func Args(values ...any) Override {
	if values == nil {
		values = []any{}
	}
	return Override{Args: values}
}

// Nest builds an override bucket carrying a nested override map.
func Nest(deps Overrides) Override {
	return Override{Deps: deps}
}

// With returns a copy of o where typ's positional values are set to values.
func (o Overrides) With(typ string, values ...any) Overrides {
	out := make(Overrides, len(o)+1)
	for k, v := range o {
		out[k] = v
	}
	entry := out[typ]
	entry.Args = Args(values...).Args
	out[typ] = entry
	return out
}

// arg returns the plain value at position for typ.
func (o Overrides) arg(typ string, position int) (any, bool) {
	entry, ok := o[typ]
	if !ok || position < 0 || position >= len(entry.Args) {
		return nil, false
	}
	return entry.Args[position], true
}

// child returns the override map visible to a nested build of typ: the
// bucket registered under typ's own key, and nothing else.
func (o Overrides) child(typ string) Overrides {
	entry, ok := o[typ]
	if !ok {
		return nil
	}
	out := make(Overrides, len(entry.Deps)+1)
	for k, v := range entry.Deps {
		out[k] = v
	}
	if entry.Args != nil {
		own := out[typ]
		own.Args = entry.Args
		out[typ] = own
	}
	return out
}

// normalize rewrites alias keys to canonical identifiers. o is returned
// untouched when no key needs rewriting.
func (o Overrides) normalize(canonical func(string) string) Overrides {
	dirty := false
	for k := range o {
		if canonical(k) != k {
			dirty = true
			break
		}
	}
	if !dirty {
		return o
	}
	out := make(Overrides, len(o))
	for k, v := range o {
		if canonical(k) == k {
			out[k] = v
		}
	}
	// a canonical key wins over its aliases
	for k, v := range o {
		if key := canonical(k); key != k {
			if _, taken := out[key]; !taken {
				out[key] = v
			}
		}
	}
	return out
}
