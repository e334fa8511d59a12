package router

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sibya/sibya/internal/auth"
	"github.com/sibya/sibya/internal/context"
	"github.com/sibya/sibya/internal/logging"
	"github.com/sibya/sibya/internal/resources"
)

// Router mounts resources on a mux router and adapts each request into a
// resource context. Errors returned by a resource are turned into HTTP
// responses here and nowhere else.
type Router struct {
	resources   []resources.Resource
	development bool
}

func New(development bool, res ...resources.Resource) *Router {
	return &Router{
		resources:   res,
		development: development,
	}
}

func (r *Router) AddResource(resource resources.Resource) {
	r.resources = append(r.resources, resource)
}

func (r *Router) GetResources() []resources.Resource {
	return r.resources
}

// Mount registers every resource on m
func (r *Router) Mount(m *mux.Router) {
	for _, resource := range r.resources {
		methods := append([]string{http.MethodOptions}, resource.GetMethods()...)
		m.Handle(resource.GetPath(), r.handler(resource)).Methods(methods...)

		logging.Debug("Mounted resource", "router", map[string]interface{}{
			"name":    resource.GetName(),
			"path":    resource.GetPath(),
			"methods": strings.Join(resource.GetMethods(), ","),
		})
	}
}

func (r *Router) handler(resource resources.Resource) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", strings.Join(resource.GetMethods(), ", ")+", OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, svix-id, svix-timestamp, svix-signature")

		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		authData := &context.AuthData{}
		if identity := auth.IdentityFromContext(req.Context()); identity != nil {
			authData.UserID = identity.UserID
			authData.SessionID = identity.SessionID
			authData.IsAuthenticated = true
		}

		ctx := context.New(req, w, resource, authData, r.development)
		if err := resource.Handle(ctx); err != nil {
			ctx.WriteError(err)
		}
	})
}
