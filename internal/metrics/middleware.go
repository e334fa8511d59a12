package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
)

var globalCollector *Collector

func init() {
	globalCollector = NewCollector()
}

func GetGlobalCollector() *Collector {
	return globalCollector
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Flush implements the http.Flusher interface
func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     200,
		}

		next.ServeHTTP(rw, r)

		duration := time.Since(start)

		// Aggregate on the route template so /pages/{pageId} is one key
		path := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}

		metric := Metric{
			Type:     RequestMetric,
			Duration: duration,
			Method:   r.Method,
			Path:     path,
			Status:   rw.statusCode,
			Metadata: map[string]interface{}{
				"bytes_written": rw.written,
				"user_agent":    r.UserAgent(),
				"remote_addr":   r.RemoteAddr,
			},
		}

		if rw.statusCode >= 500 {
			metric.Error = "HTTP " + strconv.Itoa(rw.statusCode)
		}

		globalCollector.RecordMetric(metric)
	})
}

func RecordDatabaseOperation(operation string, duration time.Duration, err error) {
	metric := Metric{
		Type:     DatabaseMetric,
		Duration: duration,
		Metadata: map[string]interface{}{
			"operation": operation,
		},
	}

	if err != nil {
		metric.Error = err.Error()
	}

	globalCollector.RecordMetric(metric)
}

func RecordError(errorType string, message string) {
	metric := Metric{
		Type:  ErrorMetric,
		Error: message,
		Metadata: map[string]interface{}{
			"error_type": errorType,
		},
	}

	globalCollector.RecordMetric(metric)
}
