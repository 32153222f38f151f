package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"diettracker/internal/logger"
)

type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets websocket upgrades pass through the wrapper.
func (rw *responseWrapper) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

// Unwrap exposes the inner writer to http.ResponseController.
func (rw *responseWrapper) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Logging logs method, path, status and duration of every request. Bodies
// are not logged; uploads are photos.
func Logging(logger *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapper, r)

			duration := time.Since(start)
			if wrapper.statusCode >= http.StatusInternalServerError {
				logger.Error("%d - %s %s - %v", wrapper.statusCode, r.Method, r.URL.Path, duration)
				return
			}
			logger.Info("%d - %s %s - %v", wrapper.statusCode, r.Method, r.URL.Path, duration)
		})
	}
}
