package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-redis/redis_rate/v9"
	"github.com/yoma-opportunity/internal/application/opportunity"
	"github.com/yoma-opportunity/internal/application/opportunityinfo"
	"github.com/yoma-opportunity/internal/config"
	"github.com/yoma-opportunity/internal/domain"
	"github.com/yoma-opportunity/internal/pkg/logger"
	"github.com/yoma-opportunity/internal/transport/http/handler"
	appmiddleware "github.com/yoma-opportunity/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, `{"error":"authentication unavailable"}`, http.StatusServiceUnavailable)
			})
		}
	}

	var searchLimit func(http.Handler) http.Handler
	if deps.Redis != nil {
		searchLimit = appmiddleware.NewRedisRateLimiter(redis_rate.NewLimiter(deps.Redis), "rl:search", cfg.SearchRateRPS,
			logger.Component(deps.Log, "ratelimit")).Limit
	} else {
		searchLimit = appmiddleware.NewRateLimiter(rate.Limit(cfg.SearchRateRPS), cfg.SearchRateRPS*2).Limit
	}

	oppDeps := opportunity.ServiceDeps{
		OpportunityRepo:  deps.OpportunityRepo,
		AssociationRepo:  deps.AssociationRepo,
		OrganizationRepo: deps.OrganizationRepo,
		UserRepo:         deps.UserRepo,
		Lookups:          deps.Lookups,
		Email:            deps.Email,
		Events:           deps.Events,
		Transactor:       deps.DB,
		AppBaseURL:       cfg.AppBaseURL,
		Log:              logger.Component(deps.Log, "opportunity"),
	}
	infoDeps := opportunityinfo.ServiceDeps{
		MyOpportunityRepo: deps.MyOpportunityRepo,
		Lookups:           deps.Lookups,
		ExportPath:        cfg.S3ExportPath,
		AppBaseURL:        cfg.AppBaseURL,
		Log:               logger.Component(deps.Log, "opportunityinfo"),
	}
	if deps.S3Store != nil {
		oppDeps.Blobs = deps.S3Store
		infoDeps.Exports = deps.S3Store
	}
	oppSvc := opportunity.NewService(oppDeps)
	infoDeps.Opportunities = oppSvc
	infoSvc := opportunityinfo.NewService(infoDeps)

	checks := map[string]handler.Check{}
	if deps.DB != nil {
		checks["postgres"] = deps.DB.Ping
	}
	if deps.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return deps.Redis.Ping(ctx).Err() }
	}
	healthH := handler.NewHealthHandler(checks)
	oppH := handler.NewOpportunityHandler(oppSvc, infoSvc)

	r.Route("/v1", func(r chi.Router) {
		// Public routes
		r.Get("/health-check/{action}", healthH.Ping)
		r.With(searchLimit).Post("/opportunities/search", oppH.Search)
		r.Get("/opportunities/search/criteria/{kind}", oppH.SearchCriteria)
		r.Get("/opportunities/{id}/info", oppH.GetPublicInfo)

		// Admins and organization admins
		r.Group(func(r chi.Router) {
			r.Use(authMw)
			r.Use(appmiddleware.RequireRole(domain.RoleAdmin, domain.RoleOrganizationAdmin))

			r.Post("/opportunities/search/admin", oppH.SearchAdmin)
			r.Post("/opportunities/search/admin/csv", oppH.ExportCSV)
			r.Post("/opportunities", oppH.Create)
			r.Patch("/opportunities", oppH.Update)
			r.Get("/opportunities/{id}", oppH.Get)
			r.Get("/opportunities/{id}/admin/info", oppH.GetInfo)
			r.Patch("/opportunities/{id}/allocate-rewards", oppH.AllocateRewards)
			r.Patch("/opportunities/{id}/{segment}", oppH.PatchSegment)
			r.Delete("/opportunities/{id}/{segment}", oppH.RemoveAssociations)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Patch("/opportunities/{id}/featured", oppH.UpdateFeatured)
				r.Patch("/opportunities/{id}/hidden", oppH.UpdateHidden)
			})
		})
	})

	return r
}
