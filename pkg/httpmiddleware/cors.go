package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
)

// Storefront defaults: carts travel in X-Session-ID, merchant calls in
// api_key, and browsers may read the request id and quota headers.
var (
	DefaultCORSMethods       = []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions}
	DefaultCORSHeaders       = []string{"Content-Type", "X-Session-ID", "api_key", HeaderRequestID}
	DefaultCORSExposeHeaders = []string{HeaderRequestID, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"}
)

// CORSConfig configures CORS.
type CORSConfig struct {
	// Origins allowed to call the API. Empty or "*" allows any origin.
	Origins []string
	// Methods defaults to DefaultCORSMethods.
	Methods []string
	// Headers defaults to DefaultCORSHeaders.
	Headers []string
	// ExposeHeaders defaults to DefaultCORSExposeHeaders.
	ExposeHeaders []string
	// AllowCredentials echoes the caller's origin instead of "*".
	AllowCredentials bool
	// MaxAge is the preflight cache lifetime in seconds; zero omits it.
	MaxAge int
}

type cors struct {
	any         bool
	origins     map[string]string
	credentials bool
	methods     string
	headers     string
	expose      string
	maxAge      string
}

func newCORS(cfg CORSConfig) *cors {
	c := &cors{
		any:         len(cfg.Origins) == 0,
		origins:     make(map[string]string, len(cfg.Origins)),
		credentials: cfg.AllowCredentials,
		methods:     joinOr(cfg.Methods, DefaultCORSMethods),
		headers:     joinOr(cfg.Headers, DefaultCORSHeaders),
		expose:      joinOr(cfg.ExposeHeaders, DefaultCORSExposeHeaders),
	}
	for _, o := range cfg.Origins {
		if o == "*" {
			c.any = true
			continue
		}
		c.origins[strings.ToLower(o)] = o
	}
	// Browsers reject "*" with credentials.
	if c.credentials {
		c.any = false
	}
	if cfg.MaxAge > 0 {
		c.maxAge = strconv.Itoa(cfg.MaxAge)
	}
	return c
}

func joinOr(v, def []string) string {
	if len(v) == 0 {
		v = def
	}
	return strings.Join(v, ", ")
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin, or
// "" when it is not allowed.
func (c *cors) allowOrigin(origin string) string {
	if c.any {
		return "*"
	}
	return c.origins[strings.ToLower(origin)]
}

func (c *cors) preflight(w http.ResponseWriter, origin string) {
	h := w.Header()
	h.Add("Vary", "Origin")
	h.Add("Vary", "Access-Control-Request-Method")
	h.Add("Vary", "Access-Control-Request-Headers")

	if allow := c.allowOrigin(origin); allow != "" {
		h.Set("Access-Control-Allow-Origin", allow)
		h.Set("Access-Control-Allow-Methods", c.methods)
		h.Set("Access-Control-Allow-Headers", c.headers)
		if c.credentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		if c.maxAge != "" {
			h.Set("Access-Control-Max-Age", c.maxAge)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *cors) actual(w http.ResponseWriter, origin string) {
	h := w.Header()
	if !c.any {
		h.Add("Vary", "Origin")
	}
	allow := c.allowOrigin(origin)
	if origin == "" || allow == "" {
		return
	}
	h.Set("Access-Control-Allow-Origin", allow)
	h.Set("Access-Control-Expose-Headers", c.expose)
	if c.credentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
}

// CORS answers preflight requests itself and decorates the rest.
func CORS(cfg CORSConfig) Middleware {
	c := newCORS(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				c.preflight(w, origin)
				return
			}
			c.actual(w, origin)
			next.ServeHTTP(w, r)
		})
	}
}
