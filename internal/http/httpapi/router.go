package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"billserver/internal/http/handlers"
	"billserver/internal/middleware"
)

// Options carries the cross-cutting settings the router wires into its
// middleware chain.
type Options struct {
	Logger          zerolog.Logger
	JWTSecret       string
	AllowedOrigins  []string
	RateLimitPerMin int
	DefaultLocale   string
	CountryLookup   middleware.CountryLookup
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
	)
	if opts.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
	}
	r.Use(middleware.I18N(opts.DefaultLocale, opts.CountryLookup))

	// Public
	r.Get("/healthz", app.Health)
	r.Post("/v1/auth/token", app.TokenExchange)
	r.Post("/v1/webhooks/payment", app.PaymentWebhook)

	// Authenticated
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthJWT(opts.JWTSecret), middleware.Device)

		r.Get("/v1/quota", app.QuotaStatus)

		r.Route("/v1/invoices", func(r chi.Router) {
			r.Post("/", app.InvoiceCreate)
			r.Get("/", app.InvoiceList)
			r.Get("/export", app.InvoiceExport)
			r.Get("/{invoice_id}", app.InvoiceDetail)
			r.Post("/{invoice_id}/irn", app.InvoiceSubmitIRN)
		})
	})

	return r
}
