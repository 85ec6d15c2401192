package web

import (
	"net/http"
	"strings"

	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
)

type route struct {
	method  string
	pattern string
	public  bool
	handler http.HandlerFunc
}

func routes(h *Handlers) []route {
	return []route{
		{method: http.MethodPost, pattern: "/api/auth/register", public: true, handler: h.Register},
		{method: http.MethodPost, pattern: "/api/auth/login", public: true, handler: h.Login},
		{method: http.MethodGet, pattern: "/api/auth/refresh", public: true, handler: h.Refresh},
		{method: http.MethodPost, pattern: "/api/auth/logout", public: false, handler: h.Logout},
		{method: http.MethodGet, pattern: "/api/users/profile", public: false, handler: h.Profile},
		{method: http.MethodGet, pattern: "/healthz", public: true, handler: h.Health},
	}
}

// NewRouter builds the HTTP handler. Routes not marked public are wrapped
// with RequireAuth.
func NewRouter(h *Handlers, l logging.Logger) http.Handler {
	mux := http.NewServeMux()
	allowed := make(map[string][]string)

	for _, rt := range routes(h) {
		allowed[rt.pattern] = append(allowed[rt.pattern], rt.method)
		var handler http.Handler = rt.handler
		if !rt.public {
			handler = RequireAuth(h.sessions, l, handler)
		}
		mux.Handle(rt.method+" "+rt.pattern, handler)
	}

	// A known path with the wrong method answers 405 in the same envelope.
	for pattern, methods := range allowed {
		allow := strings.Join(methods, ", ")
		mux.HandleFunc(pattern, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Allow", allow)
			writeErrorMessage(w, http.StatusMethodNotAllowed, "method not allowed")
		})
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		writeErrorMessage(w, http.StatusNotFound, "not found")
	})

	return WithRequestID(Logging(l)(mux))
}
