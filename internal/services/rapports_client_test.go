package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rapports-sync/internal/common"
	"rapports-sync/internal/interfaces"
)

func newTestRapportsClient(serverURL string) interfaces.RapportsClient {
	return NewRapportsClient(&common.RapportsConfig{
		BaseURL: serverURL,
		Timeout: 5,
	}, "eyJtest-token")
}

func TestRapportsUserProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/authorizationv2/user-profile", r.URL.Path)
		assert.Equal(t, "Bearer eyJtest-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":555,"name":"Dev"}`))
	}))
	defer server.Close()

	profile, err := newTestRapportsClient(server.URL).UserProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, json.Number("555"), profile.ID)
}

func TestRapportsProjects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/authorizationv2/paginated-projects", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		body, _ := io.ReadAll(r.Body)
		var req paginatedRequest
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "2", req.FilterMap["moduleId"])
		assert.Equal(t, 100000, req.Pagination.PageSize)
		require.Len(t, req.MultiSortedColumns, 1)
		assert.Equal(t, "label", req.MultiSortedColumns[0].Active)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[
			{"label":"14-SEIDOR-AM","value":77},
			{"label":"14-ZPR-TA","value":"88"}
		]}`))
	}))
	defer server.Close()

	projects, err := newTestRapportsClient(server.URL).Projects(context.Background())
	require.NoError(t, err)

	// Values arrive as numbers or strings; both normalize to strings.
	assert.Equal(t, []interfaces.Candidate{
		{Label: "14-SEIDOR-AM", Value: "77"},
		{Label: "14-ZPR-TA", Value: "88"},
	}, projects)
}

func TestRapportsSubProjects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/paginated-subprojects", r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		var req paginatedRequest
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "77", req.FilterMap["projectId"])
		assert.Equal(t, "true", req.FilterMap["isActive"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"label":"LEC Support","value":101}]}`))
	}))
	defer server.Close()

	subProjects, err := newTestRapportsClient(server.URL).SubProjects(context.Background(), "77")
	require.NoError(t, err)
	require.Len(t, subProjects, 1)
	assert.Equal(t, "101", subProjects[0].Value)
}

func TestRapportsSubmitImputation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rapports/imputations", r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.Equal(t, "05/09/2025", payload["fromDate"])
		assert.Equal(t, "01:01", payload["hours"])
		assert.Equal(t, "PR", payload["category"])
		assert.Equal(t, "6", payload["situationId"])

		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	err := newTestRapportsClient(server.URL).SubmitImputation(context.Background(), &interfaces.Imputation{
		FromDate:    "05/09/2025",
		ToDate:      "05/09/2025",
		UserID:      json.Number("555"),
		ProjectID:   "77",
		Hours:       "01:01",
		Category:    "PR",
		SituationID: "6",
	})
	require.NoError(t, err)
}

func TestRapportsSubmitImputationFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte("period closed"))
	}))
	defer server.Close()

	err := newTestRapportsClient(server.URL).SubmitImputation(context.Background(), &interfaces.Imputation{})
	require.Error(t, err)
	assert.True(t, common.IsType(err, common.ErrorTypeUpstream))
	assert.Equal(t, "Rapports API returned status 422: period closed", common.ErrorMessage(err))
}
