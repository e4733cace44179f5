package sumologic

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumologic-mcp/internal/config"
	apperrors "github.com/sumologic-mcp/internal/errors"
	"github.com/sumologic-mcp/internal/types"
)

func doneJob(id string) *types.SearchJob {
	return &types.SearchJob{ID: id, State: types.StateDoneGatheringResults}
}

func int64Ptr(v int64) *int64 { return &v }

func TestGetSearchJobRecords(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handle(http.MethodGet, "/api/v1/search/jobs/{id}/records", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0", r.URL.Query().Get("offset"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"fields": []map[string]interface{}{
				{"name": "_sourcecategory", "fieldType": "string", "keyField": true},
				{"name": "_count", "fieldType": "int", "keyField": false},
			},
			"records": []map[string]interface{}{
				{"map": map[string]interface{}{"_sourcecategory": "prod/api", "_count": "12"}},
				{"map": map[string]interface{}{"_sourcecategory": "prod/web", "_count": "3"}},
			},
		})
	})

	job := doneJob("JOB1")
	job.RecordCount = int64Ptr(7)

	result, err := fb.client().GetSearchJobRecords(context.Background(), job, 0, 2)
	require.NoError(t, err)

	assert.Equal(t, types.ResultRecords, result.Kind)
	assert.Equal(t, "JOB1", result.JobID)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "prod/api", result.Rows[0]["_sourcecategory"])
	assert.Equal(t, "12", result.Rows[0]["_count"])
	require.Len(t, result.Fields, 2)
	assert.Equal(t, types.Field{Name: "_sourcecategory", FieldType: "string", KeyField: true}, result.Fields[0])
	assert.Equal(t, int64(7), result.TotalCount)
}

func TestGetSearchJobRecords_TotalNeverBelowRows(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handle(http.MethodGet, "/api/v1/search/jobs/{id}/records", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"totalCount": 1,
			"records": []map[string]interface{}{
				{"map": map[string]interface{}{"a": "1"}},
				{"map": map[string]interface{}{"a": "2"}},
				{"map": map[string]interface{}{"a": "3"}},
			},
		})
	})

	result, err := fb.client().GetSearchJobRecords(context.Background(), doneJob("JOB1"), 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.TotalCount)
	assert.NotNil(t, result.Fields)
}

func TestGetSearchJobMessages(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handle(http.MethodGet, "/api/v1/search/jobs/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("offset"))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"fields": []map[string]interface{}{{"name": "_raw", "fieldType": "string"}},
			"messages": []map[string]interface{}{
				{"map": map[string]interface{}{"_raw": "GET /health 200", "_messagetime": "1700000000000"}},
			},
		})
	})

	job := doneJob("JOB1")
	job.MessageCount = int64Ptr(40)

	result, err := fb.client().GetSearchJobMessages(context.Background(), job, 5, 1)
	require.NoError(t, err)
	assert.Equal(t, types.ResultMessages, result.Kind)
	assert.Empty(t, result.Fields, "messages carry no field descriptors")
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "GET /health 200", result.Rows[0]["_raw"])
	assert.Equal(t, int64(40), result.TotalCount)
}

func TestFetchBeforeReady(t *testing.T) {
	states := []types.JobState{
		types.StateNotStarted,
		types.StateGatheringResults,
		types.StateCancelled,
		types.StateForcePaused,
		types.StateFailed,
	}

	for _, state := range states {
		t.Run(state.String(), func(t *testing.T) {
			fb := newFakeBackend(t)
			c := fb.client()
			job := &types.SearchJob{ID: "JOB1", State: state}

			_, err := c.GetSearchJobRecords(context.Background(), job, 0, 10)
			assert.True(t, apperrors.IsKind(err, apperrors.KindCallerMisuse))

			_, err = c.GetSearchJobMessages(context.Background(), job, 0, 10)
			assert.True(t, apperrors.IsKind(err, apperrors.KindCallerMisuse))

			assert.Zero(t, fb.requestCount(), "no request may be sent for a job that is not done")
		})
	}
}

func TestFetchBadPage(t *testing.T) {
	tests := []struct {
		name   string
		offset int
		limit  int
	}{
		{name: "negative offset", offset: -1, limit: 10},
		{name: "zero limit", offset: 0, limit: 0},
		{name: "limit above max", offset: 0, limit: MaxPageSize + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fb := newFakeBackend(t)
			_, err := fb.client().GetSearchJobRecords(context.Background(), doneJob("JOB1"), tt.offset, tt.limit)
			assert.True(t, apperrors.IsKind(err, apperrors.KindCallerMisuse))
			assert.Zero(t, fb.requestCount())
		})
	}

	_, err := (&Client{}).GetSearchJobRecords(context.Background(), nil, 0, 1)
	assert.True(t, apperrors.IsKind(err, apperrors.KindCallerMisuse))
}

func TestUnwrapRows(t *testing.T) {
	rows := unwrapRows([]map[string]any{
		{"map": map[string]any{"a": "1"}},
		{"b": "2"},
		{"map": map[string]any{"c": "3"}, "extra": true},
	})

	require.Len(t, rows, 3)
	assert.Equal(t, map[string]any{"a": "1"}, rows[0])
	assert.Equal(t, map[string]any{"b": "2"}, rows[1])
	assert.Contains(t, rows[2], "extra", "rows with more than the envelope are kept whole")
}

// pagedBackend serves `available` records, honouring offset and limit
func pagedBackend(available int, reportedTotal int64) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		records := make([]map[string]interface{}, 0)
		for i := offset; i < available && len(records) < limit; i++ {
			records = append(records, map[string]interface{}{"map": map[string]interface{}{"n": fmt.Sprint(i)}})
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"records":    records,
			"totalCount": reportedTotal,
		})
	}))
}

func TestRecordsPageProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("page never exceeds limit and total covers the page", prop.ForAll(
		func(available, limit, offset int, reported int64) bool {
			server := pagedBackend(available, reported)
			defer server.Close()

			c, err := New(config.SumoConfig{AccessID: "id", AccessKey: "key", Endpoint: server.URL})
			if err != nil {
				return false
			}
			result, err := c.GetSearchJobRecords(context.Background(), doneJob("JOB1"), offset, limit)
			if err != nil {
				return false
			}
			return len(result.Rows) <= limit && result.TotalCount >= int64(len(result.Rows))
		},
		gen.IntRange(0, 40),
		gen.IntRange(1, 25),
		gen.IntRange(0, 10),
		gen.Int64Range(0, 5),
	))

	properties.TestingRun(t)
}

func TestExecuteQuery(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handle(http.MethodPost, "/api/v1/search/jobs", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusAccepted, map[string]string{"id": "JOB1"})
	})
	status, _ := stateSequence("GATHERING RESULTS", "DONE GATHERING RESULTS")
	fb.handle(http.MethodGet, "/api/v1/search/jobs/{id}", status)
	fb.handle(http.MethodGet, "/api/v1/search/jobs/{id}/records", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"fields":  []map[string]interface{}{{"name": "_count", "fieldType": "int"}},
			"records": []map[string]interface{}{{"map": map[string]interface{}{"_count": "42"}}},
		})
	})

	result, err := fb.client().ExecuteQuery(context.Background(), SearchRequest{Query: "* | count"}, 100)
	require.NoError(t, err)
	assert.Equal(t, "JOB1", result.JobID)
	assert.Equal(t, "42", result.Rows[0]["_count"])
	assert.Equal(t, int64(3), result.TotalCount, "status recordCount is used when the page has no total")

	assert.Equal(t, []string{
		"POST /api/v1/search/jobs",
		"GET /api/v1/search/jobs/JOB1",
		"GET /api/v1/search/jobs/JOB1",
		"GET /api/v1/search/jobs/JOB1/records",
	}, fb.callLog())
}

func TestExecuteMessageQuery(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handle(http.MethodPost, "/api/v1/search/jobs", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusAccepted, map[string]string{"id": "JOB1"})
	})
	status, _ := stateSequence("DONE GATHERING RESULTS")
	fb.handle(http.MethodGet, "/api/v1/search/jobs/{id}", status)
	fb.handle(http.MethodGet, "/api/v1/search/jobs/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"messages": []map[string]interface{}{{"map": map[string]interface{}{"_raw": "hello"}}},
		})
	})

	result, err := fb.client().ExecuteMessageQuery(context.Background(), SearchRequest{Query: "hello"}, 10)
	require.NoError(t, err)
	assert.Equal(t, types.ResultMessages, result.Kind)
	assert.Equal(t, "hello", result.Rows[0]["_raw"])
	assert.Equal(t, int64(12), result.TotalCount)
}

func TestExecuteQuery_NotFetchableTerminalState(t *testing.T) {
	fb := newFakeBackend(t)
	fb.handle(http.MethodPost, "/api/v1/search/jobs", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusAccepted, map[string]string{"id": "JOB1"})
	})
	status, _ := stateSequence("FORCE PAUSED")
	fb.handle(http.MethodGet, "/api/v1/search/jobs/{id}", status)

	_, err := fb.client().ExecuteQuery(context.Background(), SearchRequest{Query: "error"}, 10)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindCallerMisuse))
	assert.Contains(t, err.Error(), "FORCE PAUSED")
}

func TestExecuteQuery_BadLimitCreatesNoJob(t *testing.T) {
	fb := newFakeBackend(t)

	_, err := fb.client().ExecuteQuery(context.Background(), SearchRequest{Query: "error"}, 0)
	assert.True(t, apperrors.IsKind(err, apperrors.KindCallerMisuse))
	assert.Zero(t, fb.requestCount())
}
