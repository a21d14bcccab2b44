package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hydrobill/hydrobill/internal/announcements"
	"github.com/hydrobill/hydrobill/internal/auth"
	"github.com/hydrobill/hydrobill/internal/billingcycle"
	"github.com/hydrobill/hydrobill/internal/bills"
	"github.com/hydrobill/hydrobill/internal/customers"
	"github.com/hydrobill/hydrobill/internal/dashboard"
	"github.com/hydrobill/hydrobill/internal/observability"
	"github.com/hydrobill/hydrobill/internal/payments"
	"github.com/hydrobill/hydrobill/internal/rates"
	"github.com/hydrobill/hydrobill/internal/rbac"
	"github.com/hydrobill/hydrobill/internal/readings"
	"github.com/hydrobill/hydrobill/internal/shared"
	"github.com/hydrobill/hydrobill/internal/staff"
	"github.com/hydrobill/hydrobill/internal/tickets"
	"github.com/hydrobill/hydrobill/internal/view"
	"github.com/hydrobill/hydrobill/jobs"
	"github.com/hydrobill/hydrobill/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Templates      *view.Engine
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	RBACMiddleware rbac.Middleware
	Metrics        *observability.Metrics

	AuthHandler         *auth.Handler
	StaffHandler        *staff.Handler
	CustomerHandler     *customers.Handler
	RateHandler         *rates.Handler
	ReadingHandler      *readings.Handler
	BillHandler         *bills.Handler
	CycleHandler        *billingcycle.Handler
	PaymentHandler      *payments.Handler
	TicketHandler       *tickets.Handler
	AnnouncementHandler *announcements.Handler
	DashboardHandler    *dashboard.Handler
	JobHandler          *jobs.Handler
}

// NewRouter constructs the chi.Router with hydrobill defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/welcome", func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		csrfToken, _ := params.CSRFManager.EnsureToken(sess)
		var flash *shared.FlashMessage
		if sess != nil {
			flash = sess.PopFlash()
		}
		data := view.TemplateData{
			Title:     "Welcome",
			CSRFToken: csrfToken,
			Flash:     flash,
		}
		if err := params.Templates.Render(w, "pages/landing.html", data); err != nil {
			params.Logger.Error("render landing", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(params.RBACMiddleware.LoadPrincipal)

		if params.DashboardHandler != nil {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				if _, ok := shared.PrincipalFromContext(r.Context()); !ok {
					http.Redirect(w, r, "/welcome", http.StatusSeeOther)
					return
				}
				params.DashboardHandler.Home(w, r)
			})
		}
		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountRoutes)
		}

		r.Route("/api", func(r chi.Router) {
			mountAPI(r, params)
		})
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

func mountAPI(r chi.Router, params RouterParams) {
	if params.StaffHandler != nil {
		r.Route("/staff", params.StaffHandler.MountRoutes)
	}
	if params.CustomerHandler != nil {
		r.Route("/customers", params.CustomerHandler.MountRoutes)
	}
	if params.RateHandler != nil {
		r.Route("/rates", params.RateHandler.MountRoutes)
	}
	if params.ReadingHandler != nil {
		r.Route("/readings", params.ReadingHandler.MountRoutes)
	}
	if params.BillHandler != nil {
		r.Route("/bills", params.BillHandler.MountRoutes)
	}
	if params.CycleHandler != nil {
		r.Route("/billing-cycles", params.CycleHandler.MountRoutes)
	}
	if params.PaymentHandler != nil {
		r.Route("/payments", params.PaymentHandler.MountRoutes)
		r.Route("/bill-payment-validation", params.PaymentHandler.MountValidationRoutes)
	}
	if params.TicketHandler != nil {
		r.Route("/tickets", params.TicketHandler.MountRoutes)
	}
	if params.AnnouncementHandler != nil {
		r.Route("/announcements", params.AnnouncementHandler.MountRoutes)
	}
	if params.DashboardHandler != nil {
		r.With(params.RBACMiddleware.RequireAuth).Get("/dashboard", params.DashboardHandler.Summary)
	}

	r.Route("/mobile", func(r chi.Router) {
		r.Use(MobileRateLimit())
		if params.BillHandler != nil {
			r.Route("/bills", params.BillHandler.MountMobileRoutes)
		}
		if params.PaymentHandler != nil {
			r.Route("/payments", params.PaymentHandler.MountMobileRoutes)
		}
		if params.AnnouncementHandler != nil {
			r.Route("/announcements", params.AnnouncementHandler.MountMobileRoutes)
		}
	})
}

// staticCacheHandler wraps a file server with Cache-Control headers.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
