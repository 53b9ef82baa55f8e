package container_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-peak/framework/container"
)

// ── fixtures ──────────────────────────────────────────────────────────────────

type B struct{ id int }

type A struct {
	B    *B
	Name string
}

type C struct{ D *D }

type D struct{ Required string }

type Pair struct{ First, Second string }

func newB(args []any) (any, error) { return &B{}, nil }

func newA(args []any) (any, error) {
	b, err := container.Arg[*B](args, 0)
	if err != nil {
		return nil, err
	}
	name, err := container.Arg[string](args, 1)
	if err != nil {
		return nil, err
	}
	return &A{B: b, Name: name}, nil
}

func defineAB(c *container.Container) {
	c.Define("B", nil, newB)
	c.Define("A", []container.Param{
		container.Dep("b", "B"),
		container.Typed("name", "string"),
	}, newA)
}

// ── Shared instances ─────────────────────────────────────────────────────────

func TestContainer_RegisterAndGetInstance(t *testing.T) {
	c := container.New()
	b := &B{id: 7}

	assert.False(t, c.HasInstance("B"))
	c.Register("B", b)
	assert.True(t, c.HasInstance("B"))

	got, err := c.GetInstance("B")
	require.NoError(t, err)
	assert.Same(t, b, got)
}

func TestContainer_GetInstance_Unregistered(t *testing.T) {
	c := container.New()

	_, err := c.GetInstance("Nope")
	require.ErrorIs(t, err, container.ErrUnregisteredType)

	var ue *container.UnregisteredTypeError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "Nope", ue.Type)
}

func TestContainer_Register_Overwrites(t *testing.T) {
	c := container.New()
	first, second := &B{id: 1}, &B{id: 2}

	c.Register("B", first)
	c.Register("B", second)

	got, err := c.GetInstance("B")
	require.NoError(t, err)
	assert.Same(t, second, got)
}

func TestContainer_RegistersItself(t *testing.T) {
	c := container.New()
	got, err := c.GetInstance("container")
	require.NoError(t, err)
	assert.Same(t, c, got)
}

// ── Instantiate ──────────────────────────────────────────────────────────────

func TestInstantiate_RegisteredDependencyAndOverride(t *testing.T) {
	c := container.New()
	defineAB(c)
	b := &B{id: 1}
	c.Register("B", b)

	a, err := container.Build[*A](c, "A", container.Overrides{"A": container.Args("hello")})
	require.NoError(t, err)
	assert.Same(t, b, a.B)
	assert.Equal(t, "hello", a.Name)
}

func TestInstantiate_FreshInstanceEachCall(t *testing.T) {
	c := container.New()
	defineAB(c)
	b := &B{}
	c.Register("B", b)
	ov := container.Overrides{"A": container.Args("x")}

	first, err := container.Build[*A](c, "A", ov)
	require.NoError(t, err)
	second, err := container.Build[*A](c, "A", ov)
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Same(t, first.B, second.B)
	assert.Same(t, b, first.B)
}

func TestInstantiate_BuildsMissingDependencyRecursively(t *testing.T) {
	c := container.New()
	defineAB(c)

	a, err := container.Build[*A](c, "A", container.Overrides{"A": container.Args("hello")})
	require.NoError(t, err)
	require.NotNil(t, a.B)
	assert.Equal(t, "hello", a.Name)
	assert.False(t, c.HasInstance("B"), "building must not register dependencies")
}

func TestInstantiate_DoesNotRegisterResult(t *testing.T) {
	c := container.New()
	c.Define("B", nil, newB)

	_, err := c.Instantiate("B", nil)
	require.NoError(t, err)
	assert.False(t, c.HasInstance("B"))
}

func TestInstantiate_SharedInstanceAcrossDependents(t *testing.T) {
	type Left struct{ B *B }
	type Right struct{ B *B }

	c := container.New()
	c.Define("B", nil, newB)
	c.Define("Left", []container.Param{container.Dep("b", "B")}, func(args []any) (any, error) {
		return &Left{B: args[0].(*B)}, nil
	})
	c.Define("Right", []container.Param{container.Dep("b", "B")}, func(args []any) (any, error) {
		return &Right{B: args[0].(*B)}, nil
	})

	shared := &B{id: 99}
	c.Register("B", shared)

	left, err := container.Build[*Left](c, "Left", nil)
	require.NoError(t, err)
	right, err := container.Build[*Right](c, "Right", nil)
	require.NoError(t, err)

	assert.Same(t, shared, left.B)
	assert.Same(t, shared, right.B)
}

func TestInstantiate_MissingArgument(t *testing.T) {
	c := container.New()
	defineAB(c)

	_, err := c.Instantiate("A", nil)
	require.ErrorIs(t, err, container.ErrMissingArgument)

	var me *container.MissingArgumentError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "A", me.Type)
	assert.Equal(t, "name", me.Param)
}

func TestInstantiate_NestedMissingArgument(t *testing.T) {
	c := container.New()
	c.Define("D", []container.Param{container.Typed("requiredButMissing", "string")},
		func(args []any) (any, error) { return &D{Required: args[0].(string)}, nil })
	c.Define("C", []container.Param{container.Dep("d", "D")},
		func(args []any) (any, error) { return &C{D: args[0].(*D)}, nil })

	_, err := c.Instantiate("C", container.Overrides{})
	require.ErrorIs(t, err, container.ErrMissingArgument)

	var me *container.MissingArgumentError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "D", me.Type)
	assert.Equal(t, "requiredButMissing", me.Param)

	var pe *container.ParamError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "C", pe.Type)
	assert.Equal(t, "d", pe.Param)
	assert.Contains(t, err.Error(), "requiredButMissing")
	assert.Contains(t, err.Error(), "[D]")
}

func TestInstantiate_OptionalUsesDefault(t *testing.T) {
	c := container.New()
	c.Define("Greeter", []container.Param{
		container.Value("name"),
		container.Optional("greeting", "hi"),
	}, func(args []any) (any, error) {
		return args[1].(string) + " " + args[0].(string), nil
	})

	got, err := c.Instantiate("Greeter", container.Overrides{"Greeter": container.Args("bob")})
	require.NoError(t, err)
	assert.Equal(t, "hi bob", got)

	got, err = c.Instantiate("Greeter", container.Overrides{"Greeter": container.Args("bob", "hey")})
	require.NoError(t, err)
	assert.Equal(t, "hey bob", got)
}

func TestInstantiate_NilOverrideCountsAsPresent(t *testing.T) {
	c := container.New()
	c.Define("Box", []container.Param{container.Optional("v", "default")},
		func(args []any) (any, error) { return args, nil })

	got, err := c.Instantiate("Box", container.Overrides{"Box": container.Args(nil)})
	require.NoError(t, err)
	assert.Equal(t, []any{nil}, got)
}

func TestInstantiate_ParameterOrderSelectsOverrideIndex(t *testing.T) {
	newPair := func(args []any) (any, error) {
		return Pair{First: args[0].(string), Second: args[1].(string)}, nil
	}

	c := container.New()
	c.Define("Pair", []container.Param{container.Value("first"), container.Value("second")}, newPair)
	got, err := c.Instantiate("Pair", container.Overrides{"Pair": container.Args("x", "y")})
	require.NoError(t, err)
	assert.Equal(t, Pair{First: "x", Second: "y"}, got)

	// swapped declaration: "second" now receives index 0
	c.Define("Pair", []container.Param{container.Value("second"), container.Value("first")},
		func(args []any) (any, error) {
			return Pair{Second: args[0].(string), First: args[1].(string)}, nil
		})
	got, err = c.Instantiate("Pair", container.Overrides{"Pair": container.Args("x", "y")})
	require.NoError(t, err)
	assert.Equal(t, Pair{First: "y", Second: "x"}, got)
}

func TestInstantiate_ClassParamsDoNotConsumePositions(t *testing.T) {
	c := container.New()
	c.Define("B", nil, newB)
	c.Define("Mixed", []container.Param{
		container.Value("p0"),
		container.Dep("b1", "B"),
		container.Value("p1"),
		container.Dep("b2", "B"),
		container.Value("p2"),
	}, func(args []any) (any, error) { return args, nil })

	got, err := c.Instantiate("Mixed", container.Overrides{"Mixed": container.Args("a", "b", "c")})
	require.NoError(t, err)
	args := got.([]any)
	require.Len(t, args, 5)
	assert.Equal(t, "a", args[0])
	assert.IsType(t, &B{}, args[1])
	assert.Equal(t, "b", args[2])
	assert.IsType(t, &B{}, args[3])
	assert.Equal(t, "c", args[4])
	assert.NotSame(t, args[1], args[3])
}

func TestInstantiate_SiblingOverridesAreIsolated(t *testing.T) {
	type X struct{ V string }
	type Y struct{ V string }
	type Root struct {
		X *X
		Y *Y
	}

	c := container.New()
	c.Define("X", []container.Param{container.Value("v")}, func(args []any) (any, error) {
		return &X{V: args[0].(string)}, nil
	})
	c.Define("Y", []container.Param{container.Optional("v", "y-default")}, func(args []any) (any, error) {
		return &Y{V: args[0].(string)}, nil
	})
	c.Define("Root", []container.Param{container.Dep("x", "X"), container.Dep("y", "Y")},
		func(args []any) (any, error) { return &Root{X: args[0].(*X), Y: args[1].(*Y)}, nil })

	root, err := container.Build[*Root](c, "Root", container.Overrides{"X": container.Args("x-value")})
	require.NoError(t, err)
	assert.Equal(t, "x-value", root.X.V)
	assert.Equal(t, "y-default", root.Y.V)
}

func TestInstantiate_OverridesDoNotLeakIntoGrandchildren(t *testing.T) {
	type Leaf struct{ V string }
	type Mid struct{ Leaf *Leaf }

	c := container.New()
	c.Define("Leaf", []container.Param{container.Optional("v", "leaf-default")}, func(args []any) (any, error) {
		return &Leaf{V: args[0].(string)}, nil
	})
	c.Define("Mid", []container.Param{container.Dep("leaf", "Leaf")}, func(args []any) (any, error) {
		return &Mid{Leaf: args[0].(*Leaf)}, nil
	})
	c.Define("Top", []container.Param{container.Dep("mid", "Mid")}, func(args []any) (any, error) {
		return args[0], nil
	})

	// Leaf is a grandchild of Top: a top-level "Leaf" key is not visible to it
	got, err := c.Instantiate("Top", container.Overrides{"Leaf": container.Args("leaked")})
	require.NoError(t, err)
	assert.Equal(t, "leaf-default", got.(*Mid).Leaf.V)

	// nested under Mid's key it is
	got, err = c.Instantiate("Top", container.Overrides{
		"Mid": container.Nest(container.Overrides{"Leaf": container.Args("nested")}),
	})
	require.NoError(t, err)
	assert.Equal(t, "nested", got.(*Mid).Leaf.V)
}

func TestInstantiate_Unconstructible(t *testing.T) {
	c := container.New()

	_, err := c.Instantiate("Ghost", nil)
	require.ErrorIs(t, err, container.ErrUnconstructible)

	c.Abstract("Mailer")
	_, err = c.Instantiate("Mailer", nil)
	var ue *container.UnconstructibleError
	require.ErrorAs(t, err, &ue)
	assert.True(t, ue.Abstract)
}

func TestInstantiate_AbstractBoundByRegister(t *testing.T) {
	type Service struct{ M any }

	c := container.New()
	c.Abstract("Mailer")
	c.Define("Service", []container.Param{container.Dep("mailer", "Mailer")},
		func(args []any) (any, error) { return &Service{M: args[0]}, nil })

	_, err := c.Instantiate("Service", nil)
	require.ErrorIs(t, err, container.ErrUnconstructible)

	smtp := &B{id: 25}
	c.Register("Mailer", smtp)
	svc, err := container.Build[*Service](c, "Service", nil)
	require.NoError(t, err)
	assert.Same(t, smtp, svc.M)
}

func TestInstantiate_OptionalAbstractFallsBackToDefault(t *testing.T) {
	c := container.New()
	c.Abstract("Cache")
	c.Define("Repo", []container.Param{container.Dep("cache", "Cache").OrDefault(nil)},
		func(args []any) (any, error) { return args, nil })

	got, err := c.Instantiate("Repo", nil)
	require.NoError(t, err)
	assert.Equal(t, []any{nil}, got)
}

func TestInstantiate_InspectionErrorStopsResolution(t *testing.T) {
	built := false
	c := container.New()
	c.Define("B", nil, func(args []any) (any, error) {
		built = true
		return &B{}, nil
	})
	c.Define("Bad", []container.Param{
		container.Typed("either", "B|string"),
		container.Dep("b", "B"),
	}, func(args []any) (any, error) { return nil, nil })

	_, err := c.Instantiate("Bad", nil)
	require.ErrorIs(t, err, container.ErrInspection)

	var ie *container.InspectionError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "Bad", ie.Type)
	assert.Equal(t, "either", ie.Param)
	assert.False(t, built, "resolution must stop at the first failing parameter")
}

func TestInstantiate_CircularDependency(t *testing.T) {
	c := container.New()
	c.Define("Chicken", []container.Param{container.Dep("egg", "Egg")}, func(args []any) (any, error) { return 1, nil })
	c.Define("Egg", []container.Param{container.Dep("chicken", "Chicken")}, func(args []any) (any, error) { return 2, nil })

	_, err := c.Instantiate("Chicken", nil)
	require.ErrorIs(t, err, container.ErrCircularDependency)

	var ce *container.CircularDependencyError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{"Chicken", "Egg", "Chicken"}, ce.Path)
}

func TestInstantiate_SelfDependency(t *testing.T) {
	c := container.New()
	c.Define("Ouroboros", []container.Param{container.Dep("self", "Ouroboros")},
		func(args []any) (any, error) { return nil, nil })

	_, err := c.Instantiate("Ouroboros", nil)
	assert.ErrorIs(t, err, container.ErrCircularDependency)
}

func TestInstantiate_RegisteredInstanceBreaksCycle(t *testing.T) {
	c := container.New()
	c.Define("Chicken", []container.Param{container.Dep("egg", "Egg")}, func(args []any) (any, error) { return "chicken", nil })
	c.Define("Egg", []container.Param{container.Dep("chicken", "Chicken")}, func(args []any) (any, error) { return "egg", nil })
	c.Register("Egg", "the egg")

	got, err := c.Instantiate("Chicken", nil)
	require.NoError(t, err)
	assert.Equal(t, "chicken", got)
}

func TestInstantiate_DiamondIsNotACycle(t *testing.T) {
	c := container.New()
	c.Define("Base", nil, func(args []any) (any, error) { return &B{}, nil })
	c.Define("L", []container.Param{container.Dep("base", "Base")}, func(args []any) (any, error) { return args[0], nil })
	c.Define("R", []container.Param{container.Dep("base", "Base")}, func(args []any) (any, error) { return args[0], nil })
	c.Define("Top", []container.Param{container.Dep("l", "L"), container.Dep("r", "R")},
		func(args []any) (any, error) { return args, nil })

	_, err := c.Instantiate("Top", nil)
	assert.NoError(t, err)
}

func TestInstantiate_ConstructorError(t *testing.T) {
	boom := errors.New("boom")
	c := container.New()
	c.Define("Broken", nil, func(args []any) (any, error) { return nil, boom })

	_, err := c.Instantiate("Broken", nil)
	require.ErrorIs(t, err, container.ErrBuild)
	require.ErrorIs(t, err, boom)
}

func TestInstantiate_WrongOverrideType(t *testing.T) {
	c := container.New()
	defineAB(c)

	_, err := c.Instantiate("A", container.Overrides{"A": container.Args(42)})
	require.ErrorIs(t, err, container.ErrTypeMismatch)
	assert.ErrorIs(t, err, container.ErrBuild)
}

// ── Singleton / Make ─────────────────────────────────────────────────────────

func TestSingleton_RegistersOnSuccess(t *testing.T) {
	c := container.New()
	c.Define("B", nil, newB)

	first, err := c.Singleton("B", nil)
	require.NoError(t, err)
	assert.True(t, c.HasInstance("B"))

	made, err := c.Make("B")
	require.NoError(t, err)
	assert.Same(t, first, made)
}

func TestSingleton_NoRegistrationOnFailure(t *testing.T) {
	c := container.New()
	defineAB(c)

	_, err := c.Singleton("A", nil)
	require.Error(t, err)
	assert.False(t, c.HasInstance("A"))
	assert.False(t, c.HasInstance("B"))
}

func TestMake_BuildsWhenNotShared(t *testing.T) {
	c := container.New()
	c.Define("B", nil, newB)

	first, err := c.Make("B")
	require.NoError(t, err)
	second, err := c.Make("B")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

// ── Aliases ──────────────────────────────────────────────────────────────────

func TestAlias_ResolvesEverywhere(t *testing.T) {
	c := container.New()
	defineAB(c)
	c.Alias("A", "alpha")
	c.Alias("B", "beta")

	b := &B{}
	c.Register("beta", b)
	assert.True(t, c.HasInstance("B"))

	a, err := container.Build[*A](c, "alpha", container.Overrides{"alpha": container.Args("via alias")})
	require.NoError(t, err)
	assert.Same(t, b, a.B)
	assert.Equal(t, "via alias", a.Name)
}

func TestAlias_ToItselfPanics(t *testing.T) {
	c := container.New()
	assert.Panics(t, func() { c.Alias("x", "x") })
}

// ── Tags ─────────────────────────────────────────────────────────────────────

func TestTagged(t *testing.T) {
	c := container.New()
	c.Define("cpu", nil, func(args []any) (any, error) { return "cpu", nil })
	c.Define("mem", nil, func(args []any) (any, error) { return "mem", nil })
	c.Tag([]string{"cpu", "mem"}, "reports")

	got, err := c.Tagged("reports")
	require.NoError(t, err)
	assert.Equal(t, []any{"cpu", "mem"}, got)

	c.Tag([]string{"missing"}, "broken")
	_, err = c.Tagged("broken")
	assert.ErrorIs(t, err, container.ErrUnconstructible)
}

// ── Callbacks ────────────────────────────────────────────────────────────────

func TestAfterResolving_FiredPerBuild(t *testing.T) {
	c := container.New()
	defineAB(c)

	var built []string
	c.AfterResolving(func(typ string, _ any) { built = append(built, typ) })

	_, err := c.Instantiate("A", container.Overrides{"A": container.Args("x")})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, built)
}

func TestRebinding_FiredOnReplace(t *testing.T) {
	c := container.New()
	var got any
	c.Rebinding("B", func(v any) { got = v })

	c.Register("B", &B{id: 1})
	assert.Nil(t, got, "first registration is not a rebind")

	second := &B{id: 2}
	c.Register("B", second)
	assert.Same(t, second, got)
}

// ── Deferred ─────────────────────────────────────────────────────────────────

func TestDefer_LoadsOnFirstUse(t *testing.T) {
	c := container.New()
	calls := 0
	c.Defer([]string{"B"}, func(c *container.Container) error {
		calls++
		c.Define("B", nil, newB)
		return nil
	})
	c.Define("A", []container.Param{container.Dep("b", "B"), container.Value("name")}, newA)

	assert.Equal(t, 0, calls)
	_, err := c.Instantiate("A", container.Overrides{"A": container.Args("x")})
	require.NoError(t, err)
	_, err = c.Make("B")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDefer_ErrorPropagates(t *testing.T) {
	c := container.New()
	boom := errors.New("boom")
	c.Defer([]string{"B"}, func(*container.Container) error { return boom })

	_, err := c.Make("B")
	assert.ErrorIs(t, err, boom)
}

// ── Helpers ──────────────────────────────────────────────────────────────────

type Mailer interface{ Send(string) error }

func TestTypeKey(t *testing.T) {
	assert.Equal(t, "github.com/km-arc/go-peak/framework/container_test.B", container.TypeKey(&B{}))
	assert.Equal(t, container.TypeKey(B{}), container.KeyOf[*B]())
	assert.Equal(t, "github.com/km-arc/go-peak/framework/container_test.Mailer", container.KeyOf[Mailer]())
	assert.Equal(t, "", container.TypeKey(nil))
}

func TestResolve_TypeMismatch(t *testing.T) {
	c := container.New()
	c.Register("B", &B{})

	_, err := container.Resolve[string](c, "B")
	assert.ErrorIs(t, err, container.ErrTypeMismatch)
	assert.Panics(t, func() { container.MustResolve[string](c, "B") })
}

func TestTypes_Sorted(t *testing.T) {
	c := container.New()
	c.Define("zeta", nil, newB)
	c.Register("alpha", 1)
	assert.Equal(t, []string{"alpha", "container", "zeta"}, c.Types())
}

// ── Concurrency ──────────────────────────────────────────────────────────────

func TestContainer_ConcurrentUse(t *testing.T) {
	c := container.New()
	defineAB(c)
	c.Register("B", &B{})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%4 == 0 {
				c.Register("B", &B{id: i})
				return
			}
			_, err := c.Instantiate("A", container.Overrides{"A": container.Args("x")})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
}

func TestDefer_ConcurrentFirstUseWaitsForLoader(t *testing.T) {
	c := container.New()
	var runs atomic.Int32
	c.Defer([]string{"view"}, func(c *container.Container) error {
		runs.Add(1)
		time.Sleep(50 * time.Millisecond)
		c.Define("view", nil, func([]any) (any, error) { return &B{}, nil })
		// building the deferred type from inside its own loader must not block
		_, err := c.Singleton("view", nil)
		return err
	})
	c.Define("Ctrl", []container.Param{container.Dep("v", "view")}, func(args []any) (any, error) {
		return args[0], nil
	})

	const n = 8
	results := make([]any, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			time.Sleep(time.Duration(i) * 5 * time.Millisecond)
			results[i], errs[i] = c.Instantiate("Ctrl", nil)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i], "call %d", i)
		assert.Same(t, results[0], results[i], "call %d", i)
	}
	assert.Equal(t, int32(1), runs.Load())
}

func TestDefer_FailedLoaderReportedToWaiters(t *testing.T) {
	c := container.New()
	boom := errors.New("boom")
	c.Defer([]string{"view"}, func(*container.Container) error {
		time.Sleep(20 * time.Millisecond)
		return boom
	})

	errs := make([]error, 4)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Make("view")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.ErrorIs(t, err, boom)
	}
}
