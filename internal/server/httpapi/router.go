package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/usersvc/internal/logging"
	"github.com/dmitrijs2005/usersvc/internal/server/auth"
	"github.com/dmitrijs2005/usersvc/internal/server/metrics"
	"github.com/dmitrijs2005/usersvc/internal/server/models"
	"github.com/dmitrijs2005/usersvc/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// UserAPI is the directory API the handlers call.
type UserAPI interface {
	Create(ctx context.Context, in services.NewUser) (*models.User, error)
	FindOne(ctx context.Context, id int64) (*models.User, error)
	FindOneByEmail(ctx context.Context, email string) (*models.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Paginate(ctx context.Context, opts models.PageOptions) (*models.Pagination[*models.User], error)
	UpdateOne(ctx context.Context, id int64, name string) (*models.User, error)
	UpdatePassword(ctx context.Context, id int64, password string) (*models.User, error)
	UpdateRole(ctx context.Context, id int64, role string) (*models.User, error)
	DeleteOne(ctx context.Context, id int64) error
	UploadProfileImage(ctx context.Context, userID int64, filename, contentType string, size int64, body io.Reader) (string, error)
	ProfileImageURL(ctx context.Context, name string) (string, error)
}

// Authenticator is the login use case.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
}

// Options carries everything NewRouter wires together.
type Options struct {
	Users      UserAPI
	Auth       Authenticator
	Tokens     auth.TokenValidator
	Metrics    *metrics.Metrics
	Health     func(ctx context.Context) error
	Logger     logging.Logger
	CORSOrigin string
	// APIURL is the public base of the API, used in pagination links.
	APIURL string
}

type handler struct {
	users     UserAPI
	auth      Authenticator
	health    func(ctx context.Context) error
	pageRoute string
	onError   auth.ErrorHandler
	logger    logging.Logger
}

// NewRouter builds the HTTP handler tree. Guards run in the order they are
// listed for each route; authentication always comes first.
func NewRouter(o Options) http.Handler {
	logger := o.Logger.With("module", "httpapi")

	h := &handler{
		users:     o.Users,
		auth:      o.Auth,
		health:    o.Health,
		pageRoute: strings.TrimRight(o.APIURL, "/") + "/user",
		onError:   errorWriter(logger),
		logger:    logger,
	}

	authn := auth.Authenticate(o.Tokens, logger)
	owner := auth.RequireOwner(idParam)
	admin := auth.RequireRoles(models.RoleAdmin)

	signedIn := auth.Middleware(h.onError, authn)
	ownerOnly := auth.Middleware(h.onError, authn, owner)
	adminOnly := auth.Middleware(h.onError, authn, admin)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	if o.Metrics != nil {
		r.Use(o.Metrics.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{o.CORSOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.healthCheck)
	if o.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", o.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", h.login)

		r.Route("/user", func(r chi.Router) {
			r.Post("/", h.create)
			r.Post("/exist", h.emailExist)
			r.Get("/profileImage/{imageName}", h.profileImage)
			r.Get("/{id}", h.findOne)

			r.With(ownerOnly).Put("/{id}", h.updateOne)
			r.With(ownerOnly).Put("/{id}/password", h.updatePassword)
			r.With(signedIn).Post("/upload", h.upload)

			r.With(adminOnly).Get("/", h.index)
			r.With(adminOnly).Delete("/{id}", h.deleteOne)
			r.With(adminOnly).Post("/email", h.findByEmail)
			r.With(adminOnly).Put("/{id}/role", h.updateRole)
		})
	})

	return r
}

// idParam reads the {id} path parameter.
func idParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("bad user id %q", raw)
	}
	return id, nil
}
