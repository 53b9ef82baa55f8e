package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/km-arc/go-peak/framework/app"
	"github.com/km-arc/go-peak/framework/container"
	"github.com/km-arc/go-peak/framework/controller"
	"github.com/km-arc/go-peak/framework/events"
	"github.com/km-arc/go-peak/framework/routing"
	"github.com/km-arc/go-peak/framework/view"
)

// ── Domain ───────────────────────────────────────────────────────────────────

type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type UserRepository interface {
	Find(id string) (User, bool)
	All() []User
}

type memoryUsers struct {
	users map[string]User
}

func (m *memoryUsers) Find(id string) (User, bool) {
	u, ok := m.users[id]
	return u, ok
}

func (m *memoryUsers) All() []User {
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out
}

// ── Controllers ──────────────────────────────────────────────────────────────

type UserController struct {
	controller.Action
	users UserRepository
}

func NewUserController(v *view.Engine, users UserRepository, greeting string) *UserController {
	c := &UserController{Action: controller.NewAction("UserController", v), users: users}

	c.Handle("index", nil, func([]any) error {
		return c.Response.Success(c.users.All())
	})
	c.Handle("view", []container.Param{container.Value("id")}, func(args []any) error {
		u, ok := c.users.Find(args[0].(string))
		if !ok {
			return c.Response.NotFound("user not found")
		}
		return c.Response.Success(map[string]any{"user": u, "greeting": greeting + ", " + u.Name})
	})
	return c
}

// ── Bootstrap ────────────────────────────────────────────────────────────────

func main() {
	application := app.New() // loads .env automatically

	users := &memoryUsers{users: map[string]User{
		"1": {ID: "1", Name: "Alice"},
		"2": {ID: "2", Name: "Bob"},
	}}
	application.Abstract("UserRepository")
	application.Register("UserRepository", users)

	application.Define("UserController", []container.Param{
		container.Dep("view", "view"),
		container.Dep("users", "UserRepository"),
		container.Optional("greeting", "Hello"),
	}, func(args []any) (any, error) {
		v, err := container.Arg[*view.Engine](args, 0)
		if err != nil {
			return nil, err
		}
		repo, err := container.Arg[UserRepository](args, 1)
		if err != nil {
			return nil, err
		}
		greeting, err := container.Arg[string](args, 2)
		if err != nil {
			return nil, err
		}
		return NewUserController(v, repo, greeting), nil
	})

	if err := application.Boot(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	application.Events().Attach(app.EventShutdown, events.ListenerFunc(func(any) {
		application.Log().Info("Bye")
	}))

	r := application.Router()
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		_ = view.NewResponse(w).Success(map[string]any{"message": "Welcome to Peak"})
	})
	r.Prefix("/api/v1", func(api *routing.Router) {
		api.Get("/users/{id}", controller.Handler(application.Container, "UserController", "view").ServeHTTP)
	})

	// /user/view/id/1 and custom routes from the config file.
	application.Front()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		application.Log().WithError(err).Fatal("Server error")
	}
}
