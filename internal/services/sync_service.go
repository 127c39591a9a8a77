package services

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"

	"rapports-sync/internal/common"
	"rapports-sync/internal/interfaces"
	"rapports-sync/internal/syncer"
)

// SyncService wires a full run together: it acquires the bearer token,
// builds per-run API clients and hands off to the orchestrator. One run at
// a time; submission is stateful per user and day downstream.
type SyncService struct {
	cfg    *common.Config
	tokens interfaces.TokenProvider
	state  interfaces.StateStore
	gate   *syncer.Gate
	log    arbor.ILogger

	// OnProgress is forwarded to the orchestrator. Optional.
	OnProgress func(message string)

	running atomic.Bool
}

func NewSyncService(cfg *common.Config, tokens interfaces.TokenProvider, state interfaces.StateStore, gate *syncer.Gate, log arbor.ILogger) *SyncService {
	return &SyncService{
		cfg:    cfg,
		tokens: tokens,
		state:  state,
		gate:   gate,
		log:    log,
	}
}

// Gate exposes the disambiguation gate so a UI can consume its requests.
func (s *SyncService) Gate() *syncer.Gate {
	return s.gate
}

func (s *SyncService) IsRunning() bool {
	return s.running.Load()
}

func (s *SyncService) Run(ctx context.Context, start, end time.Time) (*interfaces.SyncReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, common.NewConfigurationError("a sync is already in progress")
	}
	defer s.running.Store(false)

	token, err := s.tokens.BearerToken(ctx)
	if err != nil {
		return nil, err
	}

	jira := NewJiraClient(&s.cfg.Jira)
	rapports := NewRapportsClient(&s.cfg.Rapports, token)

	run, err := syncer.New(s.cfg, jira, rapports, s.gate, s.log)
	if err != nil {
		return nil, err
	}
	run.OnProgress = s.OnProgress

	report, err := run.Run(ctx, start, end)
	if err != nil {
		return nil, err
	}

	if err := s.state.SetLastWindow(start.Format("2006-01-02"), end.Format("2006-01-02")); err != nil {
		s.log.Warn().Err(err).Msg("Could not record last sync window")
	}

	return report, nil
}
