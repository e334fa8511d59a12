package router_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sibya/sibya/internal/apperror"
	"github.com/sibya/sibya/internal/auth"
	"github.com/sibya/sibya/internal/context"
	"github.com/sibya/sibya/internal/resources"
	"github.com/sibya/sibya/internal/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoResource struct {
	*resources.BaseResource
	err error
}

func (e *echoResource) Handle(ctx *context.Context) error {
	if e.err != nil {
		return e.err
	}
	return ctx.WriteJSON(http.StatusOK, map[string]interface{}{
		"id":            ctx.Param("id"),
		"user":          ctx.UserID,
		"authenticated": ctx.IsAuthenticated,
	})
}

func newMux(res ...resources.Resource) *mux.Router {
	m := mux.NewRouter()
	router.New(false, res...).Mount(m)
	return m
}

func TestRouter(t *testing.T) {
	t.Run("create new router", func(t *testing.T) {
		r := router.New(true)
		require.NotNil(t, r)
		assert.Empty(t, r.GetResources())

		r.AddResource(&echoResource{BaseResource: resources.NewBaseResource("echo", "/echo/{id}")})
		assert.Len(t, r.GetResources(), 1)
	})
}

func TestRouterDispatch(t *testing.T) {
	m := newMux(&echoResource{BaseResource: resources.NewBaseResource("echo", "/echo/{id}", http.MethodPost)})

	t.Run("passes route vars and identity", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/echo/42", nil)
		req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UserID: "user_1"}))
		w := httptest.NewRecorder()
		m.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"id":"42","user":"user_1","authenticated":true}`, w.Body.String())
	})

	t.Run("anonymous caller", func(t *testing.T) {
		w := httptest.NewRecorder()
		m.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo/1", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"id":"1","user":"","authenticated":false}`, w.Body.String())
	})

	t.Run("wrong method", func(t *testing.T) {
		w := httptest.NewRecorder()
		m.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/echo/1", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})

	t.Run("preflight", func(t *testing.T) {
		w := httptest.NewRecorder()
		m.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/echo/1", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRouterMapsErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"unauthorized", apperror.NewUnauthorized(), http.StatusUnauthorized, "Unauthorized\n"},
		{"not found is 400", apperror.NewNotFound("Page not found"), http.StatusBadRequest, "Page not found\n"},
		{"internal", errors.New("db down"), http.StatusInternalServerError, "Internal Server Error\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMux(&echoResource{BaseResource: resources.NewBaseResource("echo", "/echo/{id}", http.MethodPost), err: tt.err})
			w := httptest.NewRecorder()
			m.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo/1", nil))

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.body, w.Body.String())
		})
	}
}
