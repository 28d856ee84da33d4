package routing

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pelyams/simpler_recommendation_service/internal/domain"
	"github.com/pelyams/simpler_recommendation_service/internal/logging"
)

type ctxKey string

const errorContainerKey ctxKey = "errorContainer"

// RequestLogger logs one line per request with every error the handlers
// collected in the request's ErrorContainer.
type RequestLogger struct {
	requestCount atomic.Uint64
}

func NewRequestLogger(startingRequestId uint64) *RequestLogger {
	l := &RequestLogger{}
	l.requestCount.Store(startingRequestId)
	return l
}

func (l *RequestLogger) LoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqNum := l.requestCount.Add(1) - 1
		requestId := r.Header.Get("X-Request-ID")
		if requestId == "" {
			requestId = logging.GenerateRequestID()
		}
		w.Header().Set("X-Request-ID", requestId)

		errContainer := domain.NewErrorContainer()
		ctx := logging.ContextWithRequestID(r.Context(), requestId)
		ctx = context.WithValue(ctx, errorContainerKey, &errContainer)

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))
		duration := time.Since(started)

		event := logging.Ctx(ctx).Info()
		errs := errContainer.Unwrap()
		if len(errs) > 0 {
			event = logging.Ctx(ctx).Error().Errs("errors", errs)
		}
		event.
			Uint64("request", reqNum).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", duration).
			Msg("request handled")
	})
}

// errorContainerFrom returns nil outside of LoggerMiddleware.
func errorContainerFrom(ctx context.Context) *domain.ErrorContainer {
	c, _ := ctx.Value(errorContainerKey).(*domain.ErrorContainer)
	return c
}

func storeErrToCtx(ctx context.Context, errs ...error) {
	if c := errorContainerFrom(ctx); c != nil {
		c.Add(errs...)
	}
}

func storeServiceErrToCtx(ctx context.Context, e *domain.ServiceError) {
	if e.CriticalError != nil {
		storeErrToCtx(ctx, e.CriticalError)
	}
	if e.NonCriticalErrors != nil {
		storeErrToCtx(ctx, e.NonCriticalErrors...)
	}
}
