package syncer

import (
	"context"
	"sync"

	"rapports-sync/internal/common"
	"rapports-sync/internal/interfaces"
)

// SelectionRequest is one pending sub-project disambiguation. Whoever
// consumes the gate's request channel must eventually call Resolve or
// Cancel; the sync pipeline stays suspended until then.
type SelectionRequest struct {
	Keyword    string
	Candidates []interfaces.Candidate
	response   chan selectionResponse
}

type selectionResponse struct {
	value     string
	cancelled bool
}

// Default returns the deterministic default choice: the first candidate.
// Non-interactive responders confirm this.
func (r *SelectionRequest) Default() interfaces.Candidate {
	return r.Candidates[0]
}

func (r *SelectionRequest) Resolve(value string) {
	r.response <- selectionResponse{value: value}
}

func (r *SelectionRequest) Cancel() {
	r.response <- selectionResponse{cancelled: true}
}

// Gate suspends the sync pipeline while a human picks between ambiguous
// sub-project matches. At most one selection is ever open: Select holds a
// lock for the full request/response round-trip, so a second caller blocks
// until the first prompt is answered.
type Gate struct {
	mu       sync.Mutex
	requests chan *SelectionRequest
}

func NewGate() *Gate {
	return &Gate{requests: make(chan *SelectionRequest)}
}

// Requests exposes pending selections to the UI side (websocket modal,
// terminal prompt, or a scripted responder in tests).
func (g *Gate) Requests() <-chan *SelectionRequest {
	return g.requests
}

// Select publishes a request and waits for its resolution. The wait is
// unbounded by design; only an explicit Cancel or context cancellation
// ends it. Cancellation by the operator surfaces as a
// selection-cancelled error, distinct from every other failure.
func (g *Gate) Select(ctx context.Context, keyword string, candidates []interfaces.Candidate) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	req := &SelectionRequest{
		Keyword:    keyword,
		Candidates: candidates,
		response:   make(chan selectionResponse, 1),
	}

	select {
	case g.requests <- req:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	select {
	case resp := <-req.response:
		if resp.cancelled {
			return "", common.NewSelectionCancelledError()
		}
		return resp.value, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
