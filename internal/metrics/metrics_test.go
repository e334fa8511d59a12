package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Aggregates(t *testing.T) {
	c := NewCollector()

	c.RecordMetric(Metric{Type: RequestMetric, Method: "POST", Path: "/pages/{pageId}/create-event", Status: 201, Duration: 10 * time.Millisecond})
	c.RecordMetric(Metric{Type: RequestMetric, Method: "POST", Path: "/pages/{pageId}/create-event", Status: 500, Duration: 30 * time.Millisecond, Error: "HTTP 500"})
	c.RecordMetric(Metric{Type: DatabaseMetric, Duration: time.Millisecond, Metadata: map[string]interface{}{"operation": "events.insert"}})
	c.RecordMetric(Metric{Type: ErrorMetric, Metadata: map[string]interface{}{"error_type": "storage"}})

	s := c.Snapshot()
	require.Len(t, s.Requests, 1)
	req := s.Requests[0]
	assert.Equal(t, "POST /pages/{pageId}/create-event", req.Key)
	assert.Equal(t, int64(2), req.Count)
	assert.Equal(t, int64(1), req.ErrorCount)
	assert.InDelta(t, 20.0, req.AvgDuration, 0.001)
	assert.InDelta(t, 30.0, req.MaxDuration, 0.001)

	require.Len(t, s.Database, 1)
	assert.Equal(t, "events.insert", s.Database[0].Key)
	assert.Equal(t, int64(1), s.Errors["storage"])
	assert.Equal(t, int64(1), s.StatusCode[201])
	assert.Equal(t, int64(1), s.StatusCode[500])

	c.Reset()
	assert.Empty(t, c.Snapshot().Requests)
}

func TestHTTPMiddleware_UsesRouteTemplate(t *testing.T) {
	GetGlobalCollector().Reset()

	r := mux.NewRouter()
	r.Use(HTTPMiddleware)
	r.HandleFunc("/pages/{pageId}/create-event", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}).Methods(http.MethodPost)

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/pages/"+id+"/create-event", nil))
		assert.Equal(t, http.StatusCreated, rec.Code)
	}

	s := GetGlobalCollector().Snapshot()
	require.Len(t, s.Requests, 1)
	assert.Equal(t, "POST /pages/{pageId}/create-event", s.Requests[0].Key)
	assert.Equal(t, int64(2), s.Requests[0].Count)
}

func TestRecordDatabaseOperation(t *testing.T) {
	GetGlobalCollector().Reset()

	RecordDatabaseOperation("users.upsert", 2*time.Millisecond, nil)
	RecordDatabaseOperation("users.upsert", 4*time.Millisecond, errors.New("duplicate key"))

	s := GetGlobalCollector().Snapshot()
	require.Len(t, s.Database, 1)
	assert.Equal(t, int64(2), s.Database[0].Count)
	assert.Equal(t, int64(1), s.Database[0].ErrorCount)
}
