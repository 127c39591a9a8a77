package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"rapports-sync/internal/common"
	"rapports-sync/internal/interfaces"
)

// jiraStartedFormat is the timestamp layout Jira uses on worklog entries.
const jiraStartedFormat = "2006-01-02T15:04:05.000-0700"

type jiraClient struct {
	client   *resty.Client
	pepField string
}

// NewJiraClient creates a Jira REST v3 client. Basic auth is applied when
// credentials are configured; otherwise requests go out unauthenticated
// (anonymous access or an authenticating proxy).
func NewJiraClient(config *common.JiraConfig) interfaces.JiraClient {
	client := resty.New().
		SetBaseURL(config.BaseURL).
		SetTimeout(time.Duration(config.Timeout) * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if config.Username != "" && config.APIToken != "" {
		client.SetBasicAuth(config.Username, config.APIToken)
	}

	return &jiraClient{
		client:   client,
		pepField: config.PEPField,
	}
}

type myselfResponse struct {
	AccountID string `json:"accountId"`
}

func (jc *jiraClient) Myself(ctx context.Context) (string, error) {
	var response myselfResponse

	resp, err := jc.client.R().
		SetContext(ctx).
		SetResult(&response).
		Get("/rest/api/3/myself")

	if err != nil {
		return "", common.NewUpstreamError("Jira", 0, "failed to fetch current user").WithCause(err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", common.NewUpstreamError("Jira", resp.StatusCode(), common.FlattenHTML(resp.String()))
	}

	return response.AccountID, nil
}

type searchResponse struct {
	Issues []searchIssue `json:"issues"`
}

type searchIssue struct {
	ID     string                 `json:"id"`
	Key    string                 `json:"key"`
	Fields map[string]interface{} `json:"fields"`
}

func (jc *jiraClient) SearchWorklogIssues(ctx context.Context, start, end time.Time) ([]interfaces.Issue, error) {
	jql := fmt.Sprintf(`worklogDate >= "%s" AND worklogDate <= "%s" AND worklogAuthor = currentUser()`,
		start.Format("2006-01-02"), end.Format("2006-01-02"))

	var response searchResponse

	resp, err := jc.client.R().
		SetContext(ctx).
		SetQueryParam("jql", jql).
		SetQueryParam("fields", jc.pepField).
		SetResult(&response).
		Get("/rest/api/3/search")

	if err != nil {
		return nil, common.NewUpstreamError("Jira", 0, "failed to search issues").WithCause(err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, common.NewUpstreamError("Jira", resp.StatusCode(), common.FlattenHTML(resp.String()))
	}

	issues := make([]interfaces.Issue, 0, len(response.Issues))
	for _, issue := range response.Issues {
		issues = append(issues, interfaces.Issue{
			ID:       issue.ID,
			Key:      issue.Key,
			PEPField: extractFieldValue(issue.Fields[jc.pepField]),
		})
	}

	return issues, nil
}

// extractFieldValue pulls the string value out of a custom field. Select
// fields arrive as {"value": "..."} objects, plain text fields as strings,
// and unset fields as null.
func extractFieldValue(field interface{}) string {
	switch v := field.(type) {
	case map[string]interface{}:
		if value, ok := v["value"].(string); ok {
			return value
		}
		return ""
	case string:
		return v
	default:
		return ""
	}
}

type worklogResponse struct {
	Worklogs []worklogEntry `json:"worklogs"`
}

type worklogEntry struct {
	Author struct {
		AccountID string `json:"accountId"`
	} `json:"author"`
	Started          string   `json:"started"`
	TimeSpentSeconds int      `json:"timeSpentSeconds"`
	Comment          *adfNode `json:"comment"`
}

// adfNode is the recursive shape of Atlassian Document Format bodies.
type adfNode struct {
	Type    string    `json:"type"`
	Text    string    `json:"text"`
	Content []adfNode `json:"content"`
}

// firstText returns the first paragraph's first text run, the only part
// of a worklog comment the sync carries over.
func (n *adfNode) firstText() string {
	if n == nil || len(n.Content) == 0 || len(n.Content[0].Content) == 0 {
		return ""
	}
	return n.Content[0].Content[0].Text
}

func (jc *jiraClient) IssueWorklogs(ctx context.Context, issueID string) ([]interfaces.Worklog, error) {
	var response worklogResponse

	resp, err := jc.client.R().
		SetContext(ctx).
		SetResult(&response).
		Get(fmt.Sprintf("/rest/api/3/issue/%s/worklog", issueID))

	if err != nil {
		return nil, common.NewUpstreamError("Jira", 0, fmt.Sprintf("failed to fetch worklogs for issue %s", issueID)).WithCause(err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, common.NewUpstreamError("Jira", resp.StatusCode(), common.FlattenHTML(resp.String()))
	}

	worklogs := make([]interfaces.Worklog, 0, len(response.Worklogs))
	for _, wl := range response.Worklogs {
		started, err := time.Parse(jiraStartedFormat, wl.Started)
		if err != nil {
			continue
		}
		worklogs = append(worklogs, interfaces.Worklog{
			AuthorID: wl.Author.AccountID,
			Started:  started,
			Seconds:  wl.TimeSpentSeconds,
			Comment:  wl.Comment.firstText(),
		})
	}

	return worklogs, nil
}
