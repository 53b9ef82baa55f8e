package container

import "strings"

// catalog is the read-only view of the container the inspector needs.
type catalog interface {
	canonical(typ string) string
	definitionOf(typ string) (*definition, bool)
	known(typ string) bool
}

// Inspector turns the declared parameters of a type into descriptors.
// It never constructs anything and never mutates the container.
type Inspector struct {
	types catalog
}

// NewInspector returns an inspector over the container's definitions.
func NewInspector(c *Container) *Inspector {
	return &Inspector{types: c}
}

// Inspect returns one descriptor per declared parameter of typ, in
// declaration order. A parameter that cannot be classified yields a
// descriptor carrying only Err; inspection continues past it.
//
// The returned error is non-nil only when typ itself cannot be built.
func (in *Inspector) Inspect(typ string) ([]Descriptor, error) {
	key := in.types.canonical(typ)
	def, ok := in.types.definitionOf(key)
	if !ok {
		return nil, &UnconstructibleError{Type: key}
	}
	if def.abstract {
		return nil, &UnconstructibleError{Type: key, Abstract: true}
	}

	out := make([]Descriptor, len(def.params))
	for i, p := range def.params {
		out[i] = in.describe(key, p)
	}
	return out, nil
}

func (in *Inspector) describe(owner string, p Param) Descriptor {
	hint := strings.TrimSpace(p.Hint)
	fail := func(reason string) Descriptor {
		return Descriptor{
			Name: p.Name,
			Err:  &InspectionError{Type: owner, Param: p.Name, Hint: p.Hint, Reason: reason},
		}
	}

	switch {
	case strings.Contains(hint, "|"):
		return fail("union types are not resolvable")
	case strings.Contains(hint, "&"):
		return fail("intersection types are not resolvable")
	}

	hint = strings.TrimPrefix(hint, "?")
	if hint == "" || isScalarHint(hint) {
		return Descriptor{
			Name:     p.Name,
			Kind:     KindPlain,
			Optional: p.Optional,
			Default:  p.Default,
		}
	}

	target := in.types.canonical(hint)
	if !in.types.known(target) {
		return fail("no type is defined or registered under this name")
	}
	return Descriptor{
		Name:     p.Name,
		Kind:     KindClass,
		Type:     target,
		Optional: p.Optional,
		Default:  p.Default,
	}
}
