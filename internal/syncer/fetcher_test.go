package syncer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"rapports-sync/internal/common"
	"rapports-sync/internal/interfaces"
)

func testWindow() (time.Time, time.Time) {
	start := time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.September, 5, 0, 0, 0, 0, time.UTC)
	return start, end
}

func TestFetchEntriesFiltersAuthorAndWindow(t *testing.T) {
	start, end := testWindow()
	jira := &fakeJira{
		accountID: "me",
		issues: []interfaces.Issue{
			{ID: "10001", Key: "LEC-100", PEPField: "14-SEIDOR-AM&LEC"},
		},
		worklogs: map[string][]interfaces.Worklog{
			"10001": {
				{AuthorID: "me", Started: time.Date(2025, 9, 3, 9, 0, 0, 0, time.UTC), Seconds: 3600, Comment: "in window"},
				{AuthorID: "someone-else", Started: time.Date(2025, 9, 3, 9, 0, 0, 0, time.UTC), Seconds: 3600, Comment: "other author"},
				{AuthorID: "me", Started: time.Date(2025, 8, 28, 9, 0, 0, 0, time.UTC), Seconds: 3600, Comment: "before"},
				{AuthorID: "me", Started: time.Date(2025, 9, 6, 9, 0, 0, 0, time.UTC), Seconds: 3600, Comment: "after"},
				// Boundary day counts: calendar date comparison, not instant.
				{AuthorID: "me", Started: time.Date(2025, 9, 5, 23, 30, 0, 0, time.UTC), Seconds: 1800, Comment: ""},
			},
		},
	}

	fetcher := NewFetcher(jira, time.UTC, arbor.NewLogger())
	entries, err := fetcher.FetchEntries(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	comments := []string{entries[0].Comment, entries[1].Comment}
	assert.Contains(t, comments, "in window")
	assert.Contains(t, comments, NoComment, "empty comments get the sentinel")

	for _, entry := range entries {
		assert.Equal(t, "LEC-100", entry.IssueKey)
		assert.Equal(t, "14-SEIDOR-AM&LEC", entry.PEPField)
	}
}

func TestFetchEntriesSkipsFailingIssue(t *testing.T) {
	start, end := testWindow()
	jira := &fakeJira{
		accountID: "me",
		issues: []interfaces.Issue{
			{ID: "10001", Key: "LEC-100"},
			{ID: "10002", Key: "SA-17"},
		},
		worklogs: map[string][]interfaces.Worklog{
			"10002": {
				{AuthorID: "me", Started: time.Date(2025, 9, 2, 10, 0, 0, 0, time.UTC), Seconds: 1800, Comment: "vacation"},
			},
		},
		worklogErr: map[string]error{
			"10001": common.NewUpstreamError("Jira", 500, "boom"),
		},
	}

	fetcher := NewFetcher(jira, time.UTC, arbor.NewLogger())
	entries, err := fetcher.FetchEntries(context.Background(), start, end)
	require.NoError(t, err, "one bad issue must not fail the fetch")
	require.Len(t, entries, 1)
	assert.Equal(t, "SA-17", entries[0].IssueKey)
}

func TestFetchEntriesNoIssues(t *testing.T) {
	start, end := testWindow()
	jira := &fakeJira{accountID: "me"}

	fetcher := NewFetcher(jira, time.UTC, arbor.NewLogger())
	entries, err := fetcher.FetchEntries(context.Background(), start, end)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetchEntriesMyselfError(t *testing.T) {
	start, end := testWindow()
	jira := &fakeJira{myselfErr: common.NewUpstreamError("Jira", 401, "unauthorized")}

	fetcher := NewFetcher(jira, time.UTC, arbor.NewLogger())
	_, err := fetcher.FetchEntries(context.Background(), start, end)
	require.Error(t, err)
	assert.True(t, common.IsType(err, common.ErrorTypeUpstream))
}
