package gateway

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Gonmore/fprax-gateway/internal/backend"
	"github.com/Gonmore/fprax-gateway/internal/config"
	"github.com/Gonmore/fprax-gateway/internal/domain/enums"
	authsvc "github.com/Gonmore/fprax-gateway/internal/services/auth"
	cvssvc "github.com/Gonmore/fprax-gateway/internal/services/cvs"
	offerssvc "github.com/Gonmore/fprax-gateway/internal/services/offers"
	onboardingsvc "github.com/Gonmore/fprax-gateway/internal/services/onboarding"
	ratesvc "github.com/Gonmore/fprax-gateway/internal/services/rate"
	"github.com/Gonmore/fprax-gateway/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService       *authsvc.Service
	OffersService     *offerssvc.Service
	OnboardingService *onboardingsvc.Service
	CVService         *cvssvc.Service
	RateLimiter       *ratesvc.Limiter
	Backend           *backend.Client
	Gatherer          prometheus.Gatherer
	Logger            *zap.Logger
	Config            config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	guard := NewGuard(deps.AuthService, deps.Logger)
	authHandler := handlers.NewAuthHandler(deps.AuthService, deps.Backend, deps.RateLimiter, deps.Logger)
	pagesHandler := handlers.NewPagesHandler()
	offersHandler := handlers.NewOffersHandler(deps.OffersService)
	onboardingHandler := handlers.NewOnboardingHandler(deps.OnboardingService)
	studentsHandler := handlers.NewStudentsHandler(deps.CVService)

	r.Get("/healthz", pagesHandler.Health)
	if deps.Gatherer != nil {
		r.Handle("/metrics", MetricsHandler(deps.Gatherer))
	}

	r.With(guard.RedirectIfAuthenticated()).Get("/login", pagesHandler.Login)
	r.Post("/login", authHandler.Login)
	r.Get("/logout", authHandler.Logout)
	r.Post("/logout", authHandler.Logout)
	r.Get("/auth/callback", authHandler.Callback)
	r.Get("/auth/{provider}", authHandler.SocialRedirect)

	r.With(guard.RequireAuth()).Get("/dashboard", pagesHandler.Dashboard)
	r.Get("/unauthorized", pagesHandler.Unauthorized)

	r.Route("/api", func(r chi.Router) {
		r.With(guard.RequireAuthAPI()).Get("/session", authHandler.Session)
		r.With(guard.RequireAuthAPI()).Post("/session/role", authHandler.SwitchRole)

		r.Route("/offers", func(r chi.Router) {
			r.Use(guard.RequireRolesAPI(enums.RoleCompany))
			r.Get("/", offersHandler.List)
			r.Delete("/{id}", offersHandler.Delete)
		})

		r.Route("/onboarding", func(r chi.Router) {
			r.Use(guard.RequireRolesAPI(enums.RoleStudent))
			r.Get("/", onboardingHandler.Status)
			r.Post("/steps", onboardingHandler.CompleteStep)
		})

		r.Route("/students", func(r chi.Router) {
			r.Use(guard.RequireRolesAPI(enums.RoleCompany))
			r.Get("/revealed-cvs", studentsHandler.RevealedCVs)
			r.Post("/revealed-cvs", studentsHandler.MarkRevealed)
			r.Get("/tokens/balance", studentsHandler.TokenBalance)
		})
	})
}
