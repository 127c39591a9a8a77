package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"rapports-sync/internal/interfaces"
)

// Fetcher retrieves the current user's worklogs from Jira for a date
// window and flattens them into one unordered slice of time entries.
type Fetcher struct {
	jira interfaces.JiraClient
	loc  *time.Location
	log  arbor.ILogger
}

func NewFetcher(jira interfaces.JiraClient, loc *time.Location, log arbor.ILogger) *Fetcher {
	return &Fetcher{jira: jira, loc: loc, log: log}
}

// FetchEntries returns all worklogs authored by the current user whose
// started date falls inside [start, end], compared by calendar date in the
// display timezone. An empty window yields an empty slice, not an error.
// Per-issue worklog fetches fan out concurrently; a single issue failing
// is logged and skipped, matching how the upstream endpoint degrades.
func (f *Fetcher) FetchEntries(ctx context.Context, start, end time.Time) ([]interfaces.TimeEntry, error) {
	accountID, err := f.jira.Myself(ctx)
	if err != nil {
		return nil, err
	}

	issues, err := f.jira.SearchWorklogIssues(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if len(issues) == 0 {
		return nil, nil
	}

	startDay := truncateToDay(start.In(f.loc))
	endDay := truncateToDay(end.In(f.loc))

	var mu sync.Mutex
	var entries []interfaces.TimeEntry

	g, gctx := errgroup.WithContext(ctx)
	for _, issue := range issues {
		g.Go(func() error {
			worklogs, err := f.jira.IssueWorklogs(gctx, issue.ID)
			if err != nil {
				f.log.Warn().Err(err).Str("issue", issue.Key).Msg("Skipping issue: worklog fetch failed")
				return nil
			}

			var matched []interfaces.TimeEntry
			for _, wl := range worklogs {
				if wl.AuthorID != accountID {
					continue
				}
				day := truncateToDay(wl.Started.In(f.loc))
				if day.Before(startDay) || day.After(endDay) {
					continue
				}

				comment := wl.Comment
				if comment == "" {
					comment = NoComment
				}

				matched = append(matched, interfaces.TimeEntry{
					IssueKey: issue.Key,
					IssueID:  issue.ID,
					PEPField: issue.PEPField,
					Comment:  comment,
					Started:  wl.Started,
					Seconds:  wl.Seconds,
					AuthorID: wl.AuthorID,
				})
			}

			if len(matched) > 0 {
				mu.Lock()
				entries = append(entries, matched...)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	f.log.Info().Int("issues", len(issues)).Int("entries", len(entries)).Msg("Fetched worklogs")
	return entries, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
