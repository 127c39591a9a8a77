package services

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"rapports-sync/internal/common"
	"rapports-sync/internal/interfaces"
)

type rapportsClient struct {
	client *resty.Client
}

// NewRapportsClient creates a Rapports intranet API client bound to one
// bearer token. The token is per-run; callers construct a fresh client for
// each sync.
func NewRapportsClient(config *common.RapportsConfig, token string) interfaces.RapportsClient {
	client := resty.New().
		SetBaseURL(config.BaseURL).
		SetAuthToken(token).
		SetTimeout(time.Duration(config.Timeout) * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &rapportsClient{client: client}
}

func (rc *rapportsClient) UserProfile(ctx context.Context) (*interfaces.UserProfile, error) {
	var profile interfaces.UserProfile

	resp, err := rc.client.R().
		SetContext(ctx).
		SetResult(&profile).
		Get("/authorizationv2/user-profile")

	if err != nil {
		return nil, common.NewUpstreamError("Rapports", 0, "failed to fetch user profile").WithCause(err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, common.NewUpstreamError("Rapports", resp.StatusCode(), common.FlattenHTML(resp.String()))
	}

	return &profile, nil
}

// paginatedRequest mirrors the Rapports list endpoints' POST body. The
// page size is effectively "everything"; the UI the API was built for
// paginates, the sync does not.
type paginatedRequest struct {
	MultiSortedColumns []sortedColumn    `json:"multiSortedColumns,omitempty"`
	FilterMap          map[string]string `json:"filterMap"`
	Pagination         pagination        `json:"pagination"`
}

type sortedColumn struct {
	Active    string `json:"active"`
	Direction string `json:"direction"`
}

type pagination struct {
	PageNumber int `json:"pageNumber"`
	PageSize   int `json:"pageSize"`
}

type optionData struct {
	Label string      `json:"label"`
	Value json.Number `json:"value"`
}

type paginatedResponse struct {
	Data []optionData `json:"data"`
}

func (rc *rapportsClient) Projects(ctx context.Context) ([]interfaces.Candidate, error) {
	body := paginatedRequest{
		MultiSortedColumns: []sortedColumn{{Active: "label", Direction: "asc"}},
		FilterMap:          map[string]string{"moduleId": "2"},
		Pagination:         pagination{PageNumber: 1, PageSize: 100000},
	}

	var response paginatedResponse

	resp, err := rc.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&response).
		Post("/authorizationv2/paginated-projects")

	if err != nil {
		return nil, common.NewUpstreamError("Rapports", 0, "failed to fetch projects").WithCause(err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, common.NewUpstreamError("Rapports", resp.StatusCode(), common.FlattenHTML(resp.String()))
	}

	return toCandidates(response.Data), nil
}

func (rc *rapportsClient) SubProjects(ctx context.Context, projectID string) ([]interfaces.Candidate, error) {
	body := paginatedRequest{
		FilterMap:  map[string]string{"projectId": projectID, "isActive": "true"},
		Pagination: pagination{PageNumber: 1, PageSize: 100000},
	}

	var response paginatedResponse

	resp, err := rc.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&response).
		Post("/collections/paginated-subprojects")

	if err != nil {
		return nil, common.NewUpstreamError("Rapports", 0, "failed to fetch sub-projects").WithCause(err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, common.NewUpstreamError("Rapports", resp.StatusCode(), common.FlattenHTML(resp.String()))
	}

	return toCandidates(response.Data), nil
}

func (rc *rapportsClient) SubmitImputation(ctx context.Context, imputation *interfaces.Imputation) error {
	resp, err := rc.client.R().
		SetContext(ctx).
		SetBody(imputation).
		Post("/rapports/imputations")

	if err != nil {
		return common.NewUpstreamError("Rapports", 0, "failed to submit imputation").WithCause(err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return common.NewUpstreamError("Rapports", resp.StatusCode(), common.FlattenHTML(resp.String()))
	}

	return nil
}

func toCandidates(data []optionData) []interfaces.Candidate {
	candidates := make([]interfaces.Candidate, 0, len(data))
	for _, d := range data {
		candidates = append(candidates, interfaces.Candidate{
			Label: d.Label,
			Value: d.Value.String(),
		})
	}
	return candidates
}
