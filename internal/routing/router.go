package routing

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	handler     *RecommendationHandler
	flagHandler *FlagHandler
	logger      *RequestLogger
	gatherer    prometheus.Gatherer

	maxWorkers     int
	maxBacklog     int
	backlogTimeout time.Duration
}

type RouterOption func(*Router)

// WithFlagAdmin mounts PUT/DELETE /admin/flags/{name}.
func WithFlagAdmin(flagHandler *FlagHandler) RouterOption {
	return func(r *Router) {
		r.flagHandler = flagHandler
	}
}

// WithWorkers bounds in-flight recommendation requests to maxWorkers. Up to
// maxBacklog more wait for a slot for at most backlogTimeout before being
// rejected with 429.
func WithWorkers(maxWorkers, maxBacklog int, backlogTimeout time.Duration) RouterOption {
	return func(r *Router) {
		r.maxWorkers = maxWorkers
		r.maxBacklog = maxBacklog
		r.backlogTimeout = backlogTimeout
	}
}

// WithMetrics mounts GET /metrics for the given gatherer.
func WithMetrics(gatherer prometheus.Gatherer) RouterOption {
	return func(r *Router) {
		r.gatherer = gatherer
	}
}

func NewRouter(handler *RecommendationHandler, logger *RequestLogger, opts ...RouterOption) *Router {
	router := &Router{
		handler:        handler,
		logger:         logger,
		maxWorkers:     10,
		maxBacklog:     100,
		backlogTimeout: time.Minute,
	}
	for _, opt := range opts {
		opt(router)
	}
	return router
}

func (router *Router) SetupRoutes() http.Handler {
	r := chi.NewRouter()

	r.Use(router.logger.LoggerMiddleware)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", router.handler.Health)
	if router.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(router.gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.ThrottleBacklog(router.maxWorkers, router.maxBacklog, router.backlogTimeout))
		r.Post("/recommendations", router.handler.ListRecommendations)
		r.Get("/recommendations", router.handler.ListRecommendationsByQuery)
	})

	if router.flagHandler != nil {
		r.Route("/admin/flags", func(r chi.Router) {
			r.Put("/{name}", router.flagHandler.SetFlag)
			r.Delete("/{name}", router.flagHandler.DeleteFlag)
		})
	}

	return r
}
