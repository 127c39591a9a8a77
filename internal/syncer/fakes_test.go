package syncer

import (
	"context"
	"sync"
	"time"

	"rapports-sync/internal/interfaces"
)

// fakeJira serves canned issues and worklogs and counts calls.
type fakeJira struct {
	mu        sync.Mutex
	accountID string
	issues    []interfaces.Issue
	worklogs  map[string][]interfaces.Worklog

	myselfErr  error
	searchErr  error
	worklogErr map[string]error

	myselfCalls int
	searchCalls int
}

func (f *fakeJira) Myself(ctx context.Context) (string, error) {
	f.mu.Lock()
	f.myselfCalls++
	f.mu.Unlock()
	if f.myselfErr != nil {
		return "", f.myselfErr
	}
	return f.accountID, nil
}

func (f *fakeJira) SearchWorklogIssues(ctx context.Context, start, end time.Time) ([]interfaces.Issue, error) {
	f.mu.Lock()
	f.searchCalls++
	f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.issues, nil
}

func (f *fakeJira) IssueWorklogs(ctx context.Context, issueID string) ([]interfaces.Worklog, error) {
	if err, ok := f.worklogErr[issueID]; ok {
		return nil, err
	}
	return f.worklogs[issueID], nil
}

// fakeRapports serves canned reference data and records submissions.
type fakeRapports struct {
	mu          sync.Mutex
	profile     interfaces.UserProfile
	projects    []interfaces.Candidate
	subProjects map[string][]interfaces.Candidate
	submitted   []*interfaces.Imputation

	profileErr error
	projectErr error
	subErr     error
	submitErr  error

	profileCalls int
	projectCalls int
	subCalls     int
}

func (f *fakeRapports) UserProfile(ctx context.Context) (*interfaces.UserProfile, error) {
	f.mu.Lock()
	f.profileCalls++
	f.mu.Unlock()
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	profile := f.profile
	return &profile, nil
}

func (f *fakeRapports) Projects(ctx context.Context) ([]interfaces.Candidate, error) {
	f.mu.Lock()
	f.projectCalls++
	f.mu.Unlock()
	if f.projectErr != nil {
		return nil, f.projectErr
	}
	return f.projects, nil
}

func (f *fakeRapports) SubProjects(ctx context.Context, projectID string) ([]interfaces.Candidate, error) {
	f.mu.Lock()
	f.subCalls++
	f.mu.Unlock()
	if f.subErr != nil {
		return nil, f.subErr
	}
	return f.subProjects[projectID], nil
}

func (f *fakeRapports) SubmitImputation(ctx context.Context, imputation *interfaces.Imputation) error {
	if f.submitErr != nil {
		return f.submitErr
	}
	f.mu.Lock()
	f.submitted = append(f.submitted, imputation)
	f.mu.Unlock()
	return nil
}

// respondToGate answers every selection request with the given scripted
// action until the context ends.
func respondToGate(ctx context.Context, gate *Gate, respond func(req *SelectionRequest)) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case req := <-gate.Requests():
				respond(req)
			}
		}
	}()
}
