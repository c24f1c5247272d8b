package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/station-labs/station/authz"
	"github.com/station-labs/station/factory"
	"github.com/station-labs/station/policy"
	"github.com/station-labs/station/repository"
	"github.com/station-labs/station/store"
)

// Config aggregates every collaborator a Server needs: the indexed
// repositories (package repository), the Policy Evaluation Engine's
// resolver, the Permission/Access-Control Engine, the factory dispatch
// table and the request-mutation accessor the scheduler shares. Built by
// cmd/stationd's wiring step and passed to New.
type Config struct {
	Requests      *repository.RequestRepository
	Users         *repository.UserRepository
	Groups        *repository.UserGroupRepository
	Accounts      *repository.AccountRepository
	Assets        *repository.AssetRepository
	AddressBook   *repository.AddressBookRepository
	Policies      *repository.PolicyRepository
	NamedRules    *repository.NamedRuleRepository
	Permissions   *repository.PermissionRepository
	Notifications *repository.NotificationRepository

	Authz          *authz.Engine
	Factories      *factory.Registry
	Resolver       factory.Resolver
	PolicyResolver policy.Resolver
	Accessor       *store.Accessor

	Principal PrincipalConfig
	CORS      CORSConfig
	Logger    *slog.Logger
}

// Server implements api/httpapi's one-handler-per-endpoint surface: every
// handler decodes its DTO, makes a core-package call and encodes the result;
// only handleCreateRequest calls authz.Authorize first.
type Server struct {
	cfg       Config
	principal *principalResolver
	logger    *slog.Logger
}

// New constructs a Server from cfg.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:       cfg,
		principal: newPrincipalResolver(cfg.Principal, cfg.Users),
		logger:    logger,
	}
}

// Router builds the chi.Router serving every endpoint, composing
// middleware the way the teacher's gateway/routes/router.go does: CORS,
// then observability, then (per mounted group) principal resolution.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(corsMiddleware(s.cfg.CORS))
	r.Use(observabilityMiddleware("root"))

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", metricsHandler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(s.principal.Middleware)

		v1.Route("/requests", func(rq chi.Router) {
			rq.Post("/", s.handleCreateRequest)
			rq.Get("/", s.handleListRequests)
			rq.Get("/{id}", s.handleGetRequest)
			rq.Post("/{id}/approvals", s.handleSubmitApproval)
		})

		v1.Get("/users", s.handleListUsers)
		v1.Get("/users/{id}", s.handleGetUser)
		v1.Get("/accounts", s.handleListAccounts)
		v1.Get("/accounts/{id}", s.handleGetAccount)
		v1.Get("/assets", s.handleListAssets)
		v1.Get("/assets/{id}", s.handleGetAsset)
		v1.Get("/address-book", s.handleListAddressBook)
		v1.Get("/policies", s.handleListPolicies)
		v1.Get("/permissions", s.handleListPermissions)
		v1.Get("/notifications", s.handleListNotifications)
	})

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// metricsHandler exposes every observability.* collector via the standard
// Prometheus text exposition format, the same promhttp.Handler the teacher
// mounts in gateway/routes/router.go.
func metricsHandler() http.Handler {
	return promhttp.Handler()
}
