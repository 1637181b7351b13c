package middleware

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	goGuard "github.com/MrEthical07/goGuard"
)

// ErrHandlerStatus is recorded as the failure of a handler that answered with a 4xx
// or 5xx status.
var ErrHandlerStatus = errors.New("handler returned error status")

// Secure wraps next as a secure action. The audit metadata carries the method, path
// and response status.
func Secure(engine *goGuard.Engine, opts goGuard.SecureActionOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}

			rec := &statusRecorder{ResponseWriter: w}
			md := goGuard.Metadata{"method": r.Method, "path": r.URL.Path}

			err := engine.Run(r.Context(), opts, func(ctx context.Context) error {
				next.ServeHTTP(rec, r.WithContext(ctx))
				md["status"] = rec.Status()
				if rec.Status() >= http.StatusBadRequest {
					return fmt.Errorf("%w: %d", ErrHandlerStatus, rec.Status())
				}
				return nil
			}, md)

			if err != nil && !rec.wrote {
				WriteError(w, err)
			}
		})
	}
}

// WriteError writes the HTTP answer for an engine error: 429 with Retry-After for
// quota rejections, 401 without principal, 500 otherwise.
func WriteError(w http.ResponseWriter, err error) {
	var rl *goGuard.RateLimitError
	switch {
	case errors.As(err, &rl):
		if rl.RetryAfter > 0 {
			secs := int(math.Ceil(rl.RetryAfter.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(secs))
		}
		http.Error(w, goGuard.UserMessage(err), http.StatusTooManyRequests)
	case errors.Is(err, goGuard.ErrNoPrincipal):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	default:
		http.Error(w, goGuard.UserMessage(err), http.StatusInternalServerError)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wrote {
		r.status = status
		r.wrote = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wrote {
		r.status = http.StatusOK
		r.wrote = true
	}
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
