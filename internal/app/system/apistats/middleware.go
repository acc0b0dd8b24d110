// Package apistats records timing and error counts of API requests.
package apistats

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/pagecms/internal/app/store/apistats"
	"go.uber.org/zap"
)

// Recorder writes request statistics into time buckets.
type Recorder struct {
	store          *apistats.Store
	logger         *zap.Logger
	bucketDuration time.Duration
	wait           func(func()) // runs the write; tests run it inline
}

// NewRecorder creates a Recorder.
func NewRecorder(store *apistats.Store, logger *zap.Logger, bucketDuration time.Duration) *Recorder {
	if bucketDuration <= 0 {
		bucketDuration = time.Hour
	}
	return &Recorder{
		store:          store,
		logger:         logger,
		bucketDuration: bucketDuration,
		wait:           func(fn func()) { go fn() },
	}
}

// Record stores one request's statistics without blocking the response.
func (r *Recorder) Record(statType apistats.StatType, durationMs int64, isError bool) {
	r.wait(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := r.store.Record(ctx, statType, r.bucketDuration, durationMs, isError); err != nil {
			r.logger.Error("failed to record API stats",
				zap.String("stat_type", string(statType)),
				zap.Error(err),
			)
		}
	})
}

// Middleware records every request passing through it under statType.
// A nil recorder passes requests through untouched.
func Middleware(recorder *Recorder, statType apistats.StatType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if recorder == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			recorder.Record(statType, time.Since(start).Milliseconds(), wrapped.statusCode >= 400)
		})
	}
}

// responseWrapper captures the status code.
type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush implements http.Flusher.
func (rw *responseWrapper) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
