package interfaces

import "time"

// TimeEntry is one Jira worklog as fetched, before rule mapping. PEPField
// holds the issue's raw classification field value; rules always evaluate
// against this original value, never a previously mapped one.
type TimeEntry struct {
	IssueKey string    `json:"issue_key"`
	IssueID  string    `json:"issue_id"`
	PEPField string    `json:"pep_field"`
	Comment  string    `json:"comment"`
	Started  time.Time `json:"started"`
	Seconds  int       `json:"seconds"`
	AuthorID string    `json:"author_id"`
}

// Candidate is a label/value pair from Rapports reference data (projects
// and sub-projects).
type Candidate struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// TargetRef is a resolved Rapports booking target. An empty SubProjectID
// means the PEP carries no sub-project keyword.
type TargetRef struct {
	ProjectID    string `json:"project_id"`
	SubProjectID string `json:"sub_project_id"`
}

type OutcomeKind string

const (
	OutcomeSkipped OutcomeKind = "skipped"
	OutcomeFailed  OutcomeKind = "failed"
)

// Outcome records one non-success disposition. Reason strings are rendered
// verbatim to the operator.
type Outcome struct {
	Date   string      `json:"date"`
	PEP    string      `json:"pep"`
	Kind   OutcomeKind `json:"kind"`
	Reason string      `json:"reason"`
}

// SyncReport is the final tally of a run. It is built append-only during
// the run and never persisted. Processed == SuccessCount + len(Outcomes).
type SyncReport struct {
	Processed    int       `json:"processed"`
	SuccessCount int       `json:"success_count"`
	Outcomes     []Outcome `json:"outcomes"`
}

func (r *SyncReport) AddOutcome(date, pep string, kind OutcomeKind, reason string) {
	r.Outcomes = append(r.Outcomes, Outcome{Date: date, PEP: pep, Kind: kind, Reason: reason})
}

// UpdateInfo describes an available newer release.
type UpdateInfo struct {
	Version string `json:"version"`
}
