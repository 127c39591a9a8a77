package syncer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"rapports-sync/internal/common"
	"rapports-sync/internal/interfaces"
)

// Syncer drives one sync run: prerequisite fan-out, then strictly
// sequential per-entry mapping, resolution and submission. A single
// entry's failure never aborts the batch; prerequisite failures abort the
// run before any entry is processed.
type Syncer struct {
	cfg      *common.Config
	jira     interfaces.JiraClient
	rapports interfaces.RapportsClient
	engine   *Engine
	gate     *Gate
	loc      *time.Location
	log      arbor.ILogger

	// OnProgress receives operator-facing status lines in processing
	// order. Optional.
	OnProgress func(message string)

	// now is replaceable for tests of the past-period guard.
	now func() time.Time
}

func New(cfg *common.Config, jira interfaces.JiraClient, rapports interfaces.RapportsClient, gate *Gate, log arbor.ILogger) (*Syncer, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, common.NewConfigurationError(fmt.Sprintf("invalid timezone: %v", err)).WithCause(err)
	}

	return &Syncer{
		cfg:      cfg,
		jira:     jira,
		rapports: rapports,
		engine:   NewEngine(cfg.Sync.Rules),
		gate:     gate,
		loc:      loc,
		log:      log,
		now:      time.Now,
	}, nil
}

// Run syncs all worklogs in [start, end] and returns the report. The
// returned error is non-nil only for run-fatal conditions (past period,
// credential, prerequisite fetch failure, context cancellation);
// per-record failures land in the report instead.
func (s *Syncer) Run(ctx context.Context, start, end time.Time) (*interfaces.SyncReport, error) {
	if err := s.checkPeriod(start); err != nil {
		return nil, err
	}

	s.progress("Fetching all required data...")

	var (
		profile  *interfaces.UserProfile
		projects []interfaces.Candidate
		entries  []interfaces.TimeEntry
	)

	fetcher := NewFetcher(s.jira, s.loc, s.log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = s.rapports.UserProfile(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		projects, err = s.rapports.Projects(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		entries, err = fetcher.FetchEntries(gctx, start, end)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &interfaces.SyncReport{}
	if len(entries) == 0 {
		s.progress("No worklogs found in Jira for the selected period.")
		return report, nil
	}

	// Fan-out returns entries in no particular order; present them to the
	// operator chronologically.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Started.Before(entries[j].Started)
	})

	s.progress(fmt.Sprintf("Data fetched. Starting imputation for %d logs...", len(entries)))

	resolver := NewResolver(s.rapports, projects, s.gate)

	for i, entry := range entries {
		report.Processed++
		date := entry.Started.In(s.loc).Format("2006-01-02")

		pep, comment := s.engine.Resolve(entry.IssueKey, entry.PEPField, entry.Comment)
		if pep == "" {
			report.AddOutcome(date, "N/A", interfaces.OutcomeSkipped, common.NewMissingPEPError().Message)
			continue
		}

		s.progress(fmt.Sprintf("Syncing %d/%d... (PEP: %s)", i+1, len(entries), pep))

		ref, err := resolver.Resolve(ctx, pep)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			kind, reason := resolveOutcome(err)
			report.AddOutcome(date, pep, kind, reason)
			s.log.Warn().Str("issue", entry.IssueKey).Str("pep", pep).Str("reason", reason).Msg("Entry not synced")
			continue
		}

		startedLocal := entry.Started.In(s.loc)
		imputation := &interfaces.Imputation{
			ID:           "",
			FromDate:     FormatDate(startedLocal),
			ToDate:       FormatDate(startedLocal),
			UserID:       profile.ID,
			ProjectID:    ref.ProjectID,
			SubProjectID: ref.SubProjectID,
			Description:  comment,
			Hours:        FormatHours(entry.Seconds),
			Category:     s.cfg.Rapports.Category,
			SituationID:  s.cfg.Rapports.SituationID,
			TaskID:       s.cfg.Rapports.TaskID,
			InternalRef:  s.cfg.Rapports.InternalRef,
		}

		if err := s.rapports.SubmitImputation(ctx, imputation); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			reason := fmt.Sprintf("Imputation API call failed: %s", common.ErrorMessage(err))
			report.AddOutcome(date, pep, interfaces.OutcomeFailed, reason)
			s.log.Warn().Str("issue", entry.IssueKey).Str("pep", pep).Str("reason", reason).Msg("Imputation failed")
			continue
		}

		report.SuccessCount++
	}

	s.progress(fmt.Sprintf("Sync complete. Success: %d, Failed: %d.",
		report.SuccessCount, len(report.Outcomes)))
	return report, nil
}

// checkPeriod refuses runs whose start date lies in a month before the
// current one; closed periods cannot take imputations.
func (s *Syncer) checkPeriod(start time.Time) error {
	now := s.now().In(s.loc)
	startLocal := start.In(s.loc)

	if startLocal.Year() < now.Year() ||
		(startLocal.Year() == now.Year() && startLocal.Month() < now.Month()) {
		return common.NewPastPeriodError(startLocal.Year(), int(startLocal.Month()))
	}
	return nil
}

func (s *Syncer) progress(message string) {
	s.log.Info().Msg(message)
	if s.OnProgress != nil {
		s.OnProgress(message)
	}
}

// resolveOutcome maps a resolution error onto a report disposition.
// Mapping gaps and operator cancellation are skips; upstream trouble while
// listing sub-projects is a failure.
func resolveOutcome(err error) (interfaces.OutcomeKind, string) {
	switch {
	case common.IsType(err, common.ErrorTypeUnmappedProject),
		common.IsType(err, common.ErrorTypeUnmappedSubProject),
		common.IsType(err, common.ErrorTypeSelectionCancelled):
		return interfaces.OutcomeSkipped, common.ErrorMessage(err)
	case common.IsType(err, common.ErrorTypeUpstream):
		return interfaces.OutcomeFailed, "API error fetching sub-projects."
	default:
		return interfaces.OutcomeFailed, common.ErrorMessage(err)
	}
}
