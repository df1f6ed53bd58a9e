package server

import (
	"net/http"
	"strings"

	"blog-api/auth"
	"blog-api/database"
	"blog-api/handlers"
	"blog-api/httpx"
	"blog-api/models"
	"blog-api/uploads"
	"blog-api/validation"

	ghandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/umakantv/go-utils/cache"
	logger "github.com/umakantv/go-utils/logger"
	"go.uber.org/zap"
)

// Route describes one endpoint. AuthType "bearer" puts it behind the token
// check; Validate, when set, decodes and checks the JSON body after auth.
type Route struct {
	Name     string
	Method   string
	Path     string
	AuthType string
	Validate func(http.Handler) http.Handler
	Handler  handlers.HandlerFunc
}

// Dependencies are the process-wide resources the routes are built from
type Dependencies struct {
	Store      database.Store
	Tokens     *auth.TokenService
	Cache      cache.Cache // optional
	Uploads    uploads.Storage
	UploadDir  string // served read-only under /upload/ when set
	CORSOrigin string
	Metrics    *Metrics // optional
}

// Routes returns the API route table
func Routes(deps Dependencies) []Route {
	users := handlers.NewUserHandler(deps.Store, deps.Tokens)
	posts := handlers.NewPostHandler(deps.Store, deps.Cache)
	upload := handlers.NewUploadHandler(deps.Uploads)

	return []Route{
		{Name: "Register", Method: http.MethodPost, Path: "/auth/register", AuthType: "none",
			Validate: validation.Body[models.RegisterRequest], Handler: users.Register},
		{Name: "Login", Method: http.MethodPost, Path: "/auth/login", AuthType: "none",
			Validate: validation.Body[models.LoginRequest], Handler: users.Login},
		{Name: "GetMe", Method: http.MethodGet, Path: "/auth/me", AuthType: "bearer", Handler: users.GetMe},

		{Name: "Upload", Method: http.MethodPost, Path: "/upload", AuthType: "bearer", Handler: upload.Upload},

		{Name: "GetTags", Method: http.MethodGet, Path: "/tags", AuthType: "none", Handler: posts.GetLastTags},
		{Name: "ListPosts", Method: http.MethodGet, Path: "/posts", AuthType: "none", Handler: posts.GetAll},
		{Name: "GetPostTags", Method: http.MethodGet, Path: "/posts/tags", AuthType: "none", Handler: posts.GetLastTags},
		{Name: "GetPost", Method: http.MethodGet, Path: "/posts/{id}", AuthType: "none", Handler: posts.GetOne},
		{Name: "CreatePost", Method: http.MethodPost, Path: "/posts", AuthType: "bearer",
			Validate: validation.Body[models.PostRequest], Handler: posts.Create},
		{Name: "UpdatePost", Method: http.MethodPatch, Path: "/posts/{id}", AuthType: "bearer",
			Validate: validation.Body[models.PostRequest], Handler: posts.Update},
		{Name: "DeletePost", Method: http.MethodDelete, Path: "/posts/{id}", AuthType: "bearer", Handler: posts.Remove},
	}
}

// NewRouter wires the route table, static uploads, health and metrics
// endpoints behind CORS and panic recovery.
func NewRouter(deps Dependencies) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		httpx.NotFound(w, "route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	r.Use(routeContext)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
		r.Handle("/metrics", deps.Metrics.Handler()).Methods(http.MethodGet).Name("Metrics")
	}

	r.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		httpx.WriteJSON(w, map[string]string{"status": "healthy", "service": "blog-api"}, http.StatusOK)
	}).Methods(http.MethodGet).Name("HealthCheck")

	requireAuth := auth.Middleware(deps.Tokens)
	for _, route := range Routes(deps) {
		var h http.Handler = route.Handler
		if route.Validate != nil {
			h = route.Validate(h)
		}
		if route.AuthType == "bearer" {
			h = requireAuth(h)
		}
		r.Handle(route.Path, h).Methods(route.Method).Name(route.Name)
	}

	if deps.UploadDir != "" {
		files := http.StripPrefix(uploads.PublicPrefix, noDirListing(http.FileServer(http.Dir(deps.UploadDir))))
		r.PathPrefix(uploads.PublicPrefix).Handler(files).Methods(http.MethodGet, http.MethodHead).Name("UploadedFile")
	}

	origin := deps.CORSOrigin
	if origin == "" {
		origin = "*"
	}
	cors := ghandlers.CORS(
		ghandlers.AllowedOrigins([]string{origin}),
		ghandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
		ghandlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)

	return recoverPanics(cors(r))
}

// routeContext records the matched route name for request logging
func routeContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := ""
		if current := mux.CurrentRoute(r); current != nil {
			name = current.GetName()
		}
		ctx := handlers.WithRoute(r.Context(), name, r.Method, r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// noDirListing hides directory indexes of the upload folder
func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			httpx.NotFound(w, "file not found")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// recoverPanics turns a handler panic into a logged 500
func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("Recovered from handler panic",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
				)
				httpx.Internal(w, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
