package httpmiddleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// TelemetryProvider supplies tracer and meter providers, e.g. *app.Telemetry.
type TelemetryProvider interface {
	TracerProvider() trace.TracerProvider
	MeterProvider() metric.MeterProvider
}

// Instrument wraps handlers with otelhttp server spans and metrics.
func Instrument(service string, m TelemetryProvider) Middleware {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, service,
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method
			}),
		)
	}
}

// RouteLabels renames the server span after the matched chi route, adds the
// route to otelhttp metrics and exposes it to LogRequests. It must run inside
// the chi router.
func RouteLabels() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			labeler, _ := otelhttp.LabelerFromContext(r.Context())
			ctx := otelhttp.ContextWithLabeler(r.Context(), labeler)

			next.ServeHTTP(w, r.WithContext(ctx))

			rctx := chi.RouteContext(ctx)
			if rctx == nil {
				return
			}
			pattern := rctx.RoutePattern()
			if pattern == "" {
				return
			}
			setRoute(ctx, pattern)
			labeler.Add(attribute.String("http.route", pattern))
			trace.SpanFromContext(ctx).SetName(r.Method + " " + pattern)
		})
	}
}
