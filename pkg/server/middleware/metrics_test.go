package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/doodlesbykumbi/directory-sync/pkg/metrics"
)

func TestMetrics(t *testing.T) {
	m := metrics.New()
	router := mux.NewRouter()
	router.Use(Metrics(m))
	router.HandleFunc("/sync/{model}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}).Methods(http.MethodPost)

	for _, model := range []string{"user", "group"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sync/"+model, nil))
		assert.Equal(t, http.StatusAccepted, w.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("POST", "/sync/{model}", "202")))
}
