package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	// AllowOrigins lists allowed origins. Empty or "*" allows any origin.
	AllowOrigins []string
	// AllowMethods defaults to the methods the API serves.
	AllowMethods []string
	// AllowHeaders is echoed from the preflight request when empty.
	AllowHeaders  []string
	ExposeHeaders []string
	// AllowCredentials lets browsers send the session cookie. A wildcard
	// origin is then replaced by the request origin.
	AllowCredentials bool
	// MaxAge is the preflight cache lifetime in seconds. Zero omits the
	// header; negative sends "0".
	MaxAge int
}

var defaultCORSMethods = []string{
	http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions,
}

type corsPolicy struct {
	anyOrigin     bool
	echoOrigin    bool
	origins       map[string]string // lowercase -> configured spelling
	credentials   bool
	methods       string
	headers       string
	exposeHeaders string
	maxAge        string
}

func newCORSPolicy(cfg CORSConfig) *corsPolicy {
	p := &corsPolicy{
		origins:       make(map[string]string, len(cfg.AllowOrigins)),
		credentials:   cfg.AllowCredentials,
		headers:       strings.Join(cfg.AllowHeaders, ", "),
		exposeHeaders: strings.Join(cfg.ExposeHeaders, ", "),
	}
	p.anyOrigin = len(cfg.AllowOrigins) == 0
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			p.anyOrigin = true
			continue
		}
		p.origins[strings.ToLower(o)] = o
	}
	// Browsers reject "*" together with credentials.
	if p.anyOrigin && p.credentials {
		p.anyOrigin = false
		p.echoOrigin = true
	}

	methods := cfg.AllowMethods
	if len(methods) == 0 {
		methods = defaultCORSMethods
	}
	p.methods = strings.Join(methods, ", ")

	switch {
	case cfg.MaxAge > 0:
		p.maxAge = strconv.Itoa(cfg.MaxAge)
	case cfg.MaxAge < 0:
		p.maxAge = "0"
	}
	return p
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin, or ""
// when the origin is not allowed.
func (p *corsPolicy) allowOrigin(origin string) string {
	switch {
	case p.anyOrigin:
		return "*"
	case p.echoOrigin:
		return origin
	}
	if o, ok := p.origins[strings.ToLower(origin)]; ok {
		return o
	}
	return ""
}

// CORS returns a middleware that handles Cross-Origin Resource Sharing,
// answering preflight requests with 204.
func CORS(cfg CORSConfig) Middleware {
	p := newCORSPolicy(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			origin := r.Header.Get("Origin")
			if !p.anyOrigin {
				h.Add("Vary", "Origin")
			}
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			allow := p.allowOrigin(origin)

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Add("Vary", "Access-Control-Request-Method")
				h.Add("Vary", "Access-Control-Request-Headers")
				if allow != "" {
					h.Set("Access-Control-Allow-Origin", allow)
					h.Set("Access-Control-Allow-Methods", p.methods)
					if p.headers != "" {
						h.Set("Access-Control-Allow-Headers", p.headers)
					} else if req := r.Header.Get("Access-Control-Request-Headers"); req != "" {
						h.Set("Access-Control-Allow-Headers", req)
					}
					if p.credentials {
						h.Set("Access-Control-Allow-Credentials", "true")
					}
					if p.maxAge != "" {
						h.Set("Access-Control-Max-Age", p.maxAge)
					}
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if allow != "" {
				h.Set("Access-Control-Allow-Origin", allow)
				if p.credentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
				if p.exposeHeaders != "" {
					h.Set("Access-Control-Expose-Headers", p.exposeHeaders)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
