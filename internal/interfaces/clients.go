package interfaces

import (
	"context"
	"encoding/json"
	"time"
)

// Issue is a Jira issue carrying only what the sync needs: its identifiers
// and the raw PEP classification field.
type Issue struct {
	ID       string `json:"id"`
	Key      string `json:"key"`
	PEPField string `json:"pep_field"`
}

// Worklog is one raw Jira worklog entry. Comment is the extracted plain
// text of the rich-text body, empty when the body carries none.
type Worklog struct {
	AuthorID string    `json:"author_id"`
	Started  time.Time `json:"started"`
	Seconds  int       `json:"seconds"`
	Comment  string    `json:"comment"`
}

type JiraClient interface {
	// Myself returns the current user's account id.
	Myself(ctx context.Context) (string, error)
	// SearchWorklogIssues returns issues with worklogs by the current user
	// in the date range, with their PEP field.
	SearchWorklogIssues(ctx context.Context, start, end time.Time) ([]Issue, error)
	// IssueWorklogs returns all worklog entries of one issue.
	IssueWorklogs(ctx context.Context, issueID string) ([]Worklog, error)
}

// UserProfile is the Rapports identity of the current user.
type UserProfile struct {
	ID json.Number `json:"id"`
}

// Imputation is one booking request against the Rapports API. Field names
// follow the upstream wire format.
type Imputation struct {
	ID           string      `json:"id"`
	FromDate     string      `json:"fromDate"`
	ToDate       string      `json:"toDate"`
	UserID       json.Number `json:"userId"`
	ProjectID    string      `json:"projectId"`
	SubProjectID string      `json:"subProjectId"`
	Description  string      `json:"description"`
	Hours        string      `json:"hours"`
	Category     string      `json:"category"`
	SituationID  string      `json:"situationId"`
	TaskID       string      `json:"taskId"`
	InternalRef  string      `json:"internalRef"`
}

type RapportsClient interface {
	UserProfile(ctx context.Context) (*UserProfile, error)
	// Projects returns the full primary project list (label/value).
	Projects(ctx context.Context) ([]Candidate, error)
	// SubProjects returns the active sub-projects of one project.
	SubProjects(ctx context.Context, projectID string) ([]Candidate, error)
	SubmitImputation(ctx context.Context, imputation *Imputation) error
}

// TokenProvider supplies the Rapports bearer credential. Absence or a
// malformed credential is fatal to the whole run.
type TokenProvider interface {
	BearerToken(ctx context.Context) (string, error)
}

// SyncRunner executes one full sync over a date window.
type SyncRunner interface {
	Run(ctx context.Context, start, end time.Time) (*SyncReport, error)
	IsRunning() bool
}

// UpdateChecker looks up whether a newer release is published.
type UpdateChecker interface {
	Check(ctx context.Context) (*UpdateInfo, error)
	Dismiss(version string) error
}

// StateStore persists the few values that survive across runs: the
// dismissed update version and the last synced window. Reports never go
// through it.
type StateStore interface {
	DismissedVersion() (string, error)
	SetDismissedVersion(version string) error
	LastWindow() (start, end string, err error)
	SetLastWindow(start, end string) error
	Close() error
}

type WebService interface {
	Start(ctx context.Context) error
	Stop() error
	IsRunning() bool
}
