package sumologic

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/sumologic-mcp/internal/errors"
	"github.com/sumologic-mcp/internal/types"
)

func TestListCollectors(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handle(http.MethodGet, "/api/v1/collectors", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"collectors": []map[string]interface{}{
				{"id": 101, "name": "prod-hosted", "collectorType": "Hosted", "alive": true},
			},
		})
	})

	collectors, err := fb.client().ListCollectors(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []types.Collector{{ID: 101, Name: "prod-hosted", CollectorType: "Hosted", Alive: true}}, collectors)
}

func TestListSources(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handle(http.MethodGet, "/api/v1/collectors/{id}/sources", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"sources": []map[string]interface{}{
				{"id": 1, "name": "api-logs", "category": "prod/api", "sourceType": "HTTP"},
			},
		})
	})

	sources, err := fb.client().ListSources(context.Background(), 101)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "prod/api", sources[0].Category)
	assert.Zero(t, sources[0].CollectorID, "direct listing does not stamp collector fields")
	assert.Equal(t, []string{"GET /api/v1/collectors/101/sources"}, fb.callLog())
}

func TestListAllSources_SkipsFailingCollector(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handle(http.MethodGet, "/api/v1/collectors", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"collectors": []map[string]interface{}{
				{"id": 1, "name": "broken"},
				{"id": 2, "name": "healthy"},
			},
		})
	})
	fb.handle(http.MethodGet, "/api/v1/collectors/1/sources", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "internal error"})
	})
	fb.handle(http.MethodGet, "/api/v1/collectors/2/sources", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"sources": []map[string]interface{}{
				{"id": 20, "name": "a", "category": "otel/vmware"},
				{"id": 21, "name": "b", "category": "prod/api"},
			},
		})
	})

	sources, err := fb.client().ListAllSources(context.Background())
	require.NoError(t, err)
	require.Len(t, sources, 2)
	for _, s := range sources {
		assert.Equal(t, int64(2), s.CollectorID)
		assert.Equal(t, "healthy", s.CollectorName)
	}
	assert.Equal(t, "otel/vmware", sources[0].Category)
	assert.Equal(t, "prod/api", sources[1].Category)
}

func TestListAllSources_CollectorListingFails(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handle(http.MethodGet, "/api/v1/collectors", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "forbidden"})
	})

	_, err := fb.client().ListAllSources(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindTransport))
	assert.Equal(t, http.StatusForbidden, apperrors.StatusCode(err))
}

func TestListAllSources_NoCollectors(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handle(http.MethodGet, "/api/v1/collectors", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{})
	})

	sources, err := fb.client().ListAllSources(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, sources)
	assert.Empty(t, sources)
}
