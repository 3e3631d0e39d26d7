// Package handler serves the product review HTTP API.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/xenking/product-desk/internal/domain/auth"
	"github.com/xenking/product-desk/internal/domain/product"
	"github.com/xenking/product-desk/pkg/httpmiddleware"
)

// ProductService is the product use-case layer, satisfied by
// *product.Service.
type ProductService interface {
	List(ctx context.Context) ([]product.Product, error)
	Create(ctx context.Context, in product.Input) (*product.Product, error)
	SetStatus(ctx context.Context, id string, status product.Status) (*product.Product, error)
	Delete(ctx context.Context, id string) error
}

var _ ProductService = (*product.Service)(nil)

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// SecureCookies marks the session cookie Secure. Enable behind TLS.
	SecureCookies bool
	// Meter records mutation outcomes. Defaults to a no-op meter.
	Meter metric.Meter
}

// Handler serves the /api routes.
type Handler struct {
	products      ProductService
	authn         *auth.Authenticator
	secureCookies bool
	lg            *zap.Logger

	mutations metric.Int64Counter
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	products ProductService,
	authn *auth.Authenticator,
	lg *zap.Logger,
) (*Handler, error) {
	if lg == nil {
		lg = zap.NewNop()
	}
	meter := cfg.Meter
	if meter == nil {
		meter = noop.NewMeterProvider().Meter("")
	}
	mutations, err := meter.Int64Counter("product_desk.mutations",
		metric.WithDescription("Product mutations by operation and result"),
	)
	if err != nil {
		return nil, err
	}
	return &Handler{
		products:      products,
		authn:         authn,
		secureCookies: cfg.SecureCookies,
		lg:            lg,
		mutations:     mutations,
	}, nil
}

// Router returns the API routes. Health endpoints are mounted by the caller.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(httpmiddleware.RouteLabels())
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", h.login)
		r.Post("/logout", h.logout)

		r.Group(func(r chi.Router) {
			r.Use(h.requireSession)
			r.Get("/session", h.session)
			r.Get("/products", h.listProducts)
			r.Patch("/products/{id}/status", h.setStatus)

			r.With(requireRole(auth.RoleAdmin)).Post("/products", h.createProduct)
			r.With(requireRole(auth.RoleAdmin)).Delete("/products/{id}", h.deleteProduct)
		})
	})
	return r
}

func (h *Handler) record(ctx context.Context, op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	h.mutations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("result", result),
	))
}
