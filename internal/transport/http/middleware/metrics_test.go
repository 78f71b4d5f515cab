package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observation struct {
	method, route, status string
}

type recordingHTTPObserver struct {
	mu  sync.Mutex
	obs []observation
}

func (o *recordingHTTPObserver) ObserveHTTP(method, route, status string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.obs = append(o.obs, observation{method, route, status})
}

func TestInstrument_UsesRoutePattern(t *testing.T) {
	obs := &recordingHTTPObserver{}
	r := chi.NewRouter()
	r.Use(Instrument(obs))
	r.Get("/api/admin/verifications/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Post("/api/verify/email", okHandler)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/admin/verifications/01HZX"},
		{http.MethodPost, "/api/verify/email"},
		{http.MethodGet, "/nope"},
	} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(tc.method, tc.path, nil))
	}

	require.Len(t, obs.obs, 3)
	assert.Equal(t, observation{"GET", "/api/admin/verifications/{id}", "404"}, obs.obs[0])
	assert.Equal(t, observation{"POST", "/api/verify/email", "200"}, obs.obs[1])
	assert.Equal(t, observation{"GET", "unmatched", "404"}, obs.obs[2])
}

func TestInstrument_ImplicitOK(t *testing.T) {
	obs := &recordingHTTPObserver{}
	h := Instrument(obs)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("pong"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Len(t, obs.obs, 1)
	assert.Equal(t, "200", obs.obs[0].status)
}
