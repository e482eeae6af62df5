package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryLifecycle(t *testing.T) {
	resetForTesting()
	t.Cleanup(resetForTesting)

	assert.False(t, IsEnabled())
	assert.Nil(t, GetRegistry())

	InitRegistry()
	assert.True(t, IsEnabled())
	require.NotNil(t, GetRegistry())

	// Second init keeps the first registry.
	first := GetRegistry()
	InitRegistry()
	assert.Same(t, first, GetRegistry())
}

func TestHandlerDisabled(t *testing.T) {
	resetForTesting()
	t.Cleanup(resetForTesting)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerExposesRuntimeMetrics(t *testing.T) {
	resetForTesting()
	t.Cleanup(resetForTesting)

	InitRegistry()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestNewEngineMetricsDisabled(t *testing.T) {
	resetForTesting()
	t.Cleanup(resetForTesting)

	assert.Nil(t, NewEngineMetrics())
}
