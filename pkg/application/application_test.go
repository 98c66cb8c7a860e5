package application

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

type stubService struct{ name string }

type stubController struct{ key string }

func (c *stubController) Key() string { return c.key }

func (c *stubController) Register(r *mux.Router) {
	r.HandleFunc(c.key, func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
}

type stubModule struct {
	name string
	err  error
}

func (m stubModule) Name() string { return m.name }

func (m stubModule) Register(app Application) error {
	if m.err != nil {
		return m.err
	}
	app.RegisterServices(&stubService{name: m.name})
	return nil
}

func TestServiceRegistry(t *testing.T) {
	app := New(&ApplicationOptions{})
	app.RegisterServices(&stubService{name: "a"})

	svc := app.Service(stubService{}).(*stubService)
	require.Equal(t, "a", svc.name)
	require.Len(t, app.Services(), 1)
	require.NotNil(t, app.Logger())
	require.Nil(t, app.DB())
	require.NotNil(t, app.EventPublisher())

	type missing struct{}
	require.Panics(t, func() { app.Service(missing{}) })
}

func TestControllersKeepRegistrationOrder(t *testing.T) {
	app := New(&ApplicationOptions{})
	app.RegisterControllers(&stubController{key: "/b"}, &stubController{key: "/a"})
	app.RegisterControllers(&stubController{key: "/b"})

	controllers := app.Controllers()
	require.Len(t, controllers, 2)
	require.Equal(t, "/b", controllers[0].Key())
	require.Equal(t, "/a", controllers[1].Key())
}

func TestLoad(t *testing.T) {
	app := New(&ApplicationOptions{})
	require.NoError(t, Load(app, stubModule{name: "ok"}))
	require.Equal(t, "ok", app.Service(stubService{}).(*stubService).name)

	err := Load(app, stubModule{name: "broken", err: errors.New("boom")})
	require.ErrorContains(t, err, "register module broken: boom")
}
