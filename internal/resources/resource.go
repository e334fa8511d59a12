package resources

import (
	"net/http"

	"github.com/sibya/sibya/internal/context"
)

// Resource is a route handled by the router
type Resource interface {
	GetName() string
	GetPath() string
	GetMethods() []string
	Handle(ctx *context.Context) error
}

// BaseResource provides common functionality for all resources
type BaseResource struct {
	name    string
	path    string
	methods []string
}

func NewBaseResource(name, path string, methods ...string) *BaseResource {
	if len(methods) == 0 {
		methods = []string{http.MethodGet}
	}
	return &BaseResource{
		name:    name,
		path:    path,
		methods: methods,
	}
}

func (r *BaseResource) GetName() string {
	return r.name
}

func (r *BaseResource) GetPath() string {
	return r.path
}

func (r *BaseResource) GetMethods() []string {
	return r.methods
}

func (r *BaseResource) Handle(ctx *context.Context) error {
	return ctx.WriteText(http.StatusNotImplemented, "Not implemented")
}
