package context

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sibya/sibya/internal/apperror"
	"github.com/sibya/sibya/internal/logging"
	"github.com/sibya/sibya/internal/metrics"
)

// Context is what a resource handler sees of one request
type Context struct {
	Request         *http.Request
	Response        http.ResponseWriter
	Resource        Resource
	Method          string
	Vars            map[string]string
	Development     bool
	UserID          string
	SessionID       string
	IsAuthenticated bool
	ctx             context.Context
}

type Resource interface {
	GetName() string
	GetPath() string
}

type AuthData struct {
	UserID          string
	SessionID       string
	IsAuthenticated bool
}

func New(req *http.Request, res http.ResponseWriter, resource Resource, auth *AuthData, development bool) *Context {
	ctx := &Context{
		Request:     req,
		Response:    res,
		Resource:    resource,
		Method:      req.Method,
		Vars:        mux.Vars(req),
		Development: development,
		ctx:         req.Context(),
	}
	if ctx.Vars == nil {
		ctx.Vars = map[string]string{}
	}

	if auth != nil {
		ctx.UserID = auth.UserID
		ctx.SessionID = auth.SessionID
		ctx.IsAuthenticated = auth.IsAuthenticated && auth.UserID != ""
	}

	return ctx
}

// Param returns the named route variable
func (c *Context) Param(name string) string {
	return c.Vars[name]
}

func (c *Context) ParseJSON(v interface{}) error {
	return json.NewDecoder(c.Request.Body).Decode(v)
}

func (c *Context) WriteJSON(statusCode int, data interface{}) error {
	c.Response.Header().Set("Content-Type", "application/json")
	c.Response.WriteHeader(statusCode)
	return json.NewEncoder(c.Response).Encode(data)
}

// WriteText replies with a plain-text body
func (c *Context) WriteText(statusCode int, message string) error {
	http.Error(c.Response, message, statusCode)
	return nil
}

// WriteError translates err into a status and plain-text reason. Internal
// failures are logged with their cause and shown as a generic message; in
// development the cause is appended.
func (c *Context) WriteError(err error) error {
	status := apperror.HTTPStatus(err)
	message := apperror.PublicMessage(err)

	if status >= http.StatusInternalServerError {
		data := map[string]interface{}{
			"error":  err.Error(),
			"method": c.Method,
			"path":   c.Request.URL.Path,
		}
		if c.Resource != nil {
			data["resource"] = c.Resource.GetName()
		}
		logging.ErrorCtx(c.ctx, "Request failed", "http", data)
		metrics.RecordError("http", err.Error())
		if c.Development {
			message += ": " + err.Error()
		}
	}

	return c.WriteText(status, message)
}

func (c *Context) Context() context.Context {
	return c.ctx
}
