// Package httpmiddleware contains net/http middleware shared by the API
// server: panic recovery, CORS, rate limiting, request ids, request-scoped
// logging and OpenTelemetry instrumentation.
package httpmiddleware

import (
	"net/http"

	"github.com/go-faster/jx"
)

// Middleware wraps an http.Handler.
type Middleware func(next http.Handler) http.Handler

// Wrap applies middlewares to h. The first middleware is the outermost.
func Wrap(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// writeError writes a {"error": msg} JSON body.
func writeError(w http.ResponseWriter, code int, msg string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("error")
	e.Str(msg)
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}
