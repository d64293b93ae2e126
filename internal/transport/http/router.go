package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Sessions *SessionHandler
	Submit   *SubmitHandler
	Help     *HelpHandler
	WS       *WSHandler
}

// RouterOptions tunes cross-cutting middleware.
type RouterOptions struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// NewRouter wires the public HTTP surface.
func NewRouter(h Handlers, opts RouterOptions) http.Handler {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Disposition", "X-Certificate-Serial"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	// the socket outlives any request timeout
	if h.WS != nil {
		r.Get("/ws", h.WS.ServeWS)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(opts.RequestTimeout))
		if h.Submit != nil {
			r.Method(http.MethodPost, "/submit-test", h.Submit)
		}
		if h.Help != nil {
			r.Method(http.MethodPost, "/ai-help", h.Help)
		}
		if h.Sessions != nil {
			r.Route("/sessions", h.Sessions.Routes)
		}
	})
	return r
}
