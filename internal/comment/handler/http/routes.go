package http

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/hlog"

	"github.com/MyNameIsWhaaat/replytree/internal/metrics"
)

func (h *Handler) Routes() stdhttp.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(h.log))
	r.Use(accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		writeJSON(w, r, stdhttp.StatusOK, map[string]any{"result": "ok"})
	})
	r.Method(stdhttp.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/posts/{postID}/comments", func(r chi.Router) {
		r.Get("/", h.GetThread)
		r.Post("/", h.CreateRoot)
	})

	r.Route("/comments/{id}", func(r chi.Router) {
		r.Get("/", h.GetSubtree)
		r.Delete("/", h.DeleteComment)
		r.Get("/path", h.GetPath)
		r.Post("/replies", h.CreateReply)
		r.Post("/likes", h.Like)
		r.Delete("/likes", h.Unlike)
		r.Post("/reports", h.Report)
	})

	r.Get("/reports", h.ListReports)
	r.Put("/users/{userID}/name", h.RenameUser)

	return r
}

func accessLog(next stdhttp.Handler) stdhttp.Handler {
	return hlog.AccessHandler(func(r *stdhttp.Request, status, size int, elapsed time.Duration) {
		route := ""
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			route = rctx.RoutePattern()
		}
		metrics.Request(r.Method, route, status, elapsed)

		hlog.FromRequest(r).Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("route", route).
			Str("url", r.URL.String()).
			Int("status", status).
			Int("size", size).
			Dur("elapsed", elapsed).
			Msg("request")
	})(next)
}
