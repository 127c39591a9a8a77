package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/ternarybob/arbor"

	"rapports-sync/internal/syncer"
)

// RunConsolePrompter serves disambiguation requests with an interactive
// terminal select until the context ends. The gate guarantees at most one
// request is pending, so requests are handled one by one.
func RunConsolePrompter(ctx context.Context, gate *syncer.Gate, log arbor.ILogger) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-gate.Requests():
			promptSelection(req, log)
		}
	}
}

func promptSelection(req *syncer.SelectionRequest, log arbor.ILogger) {
	options := make([]huh.Option[string], 0, len(req.Candidates))
	for _, c := range req.Candidates {
		options = append(options, huh.NewOption(c.Label, c.Value))
	}

	value := req.Default().Value
	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title(fmt.Sprintf("Select sub-project for %q", req.Keyword)).
			Options(options...).
			Value(&value),
	))

	if err := form.Run(); err != nil {
		if !errors.Is(err, huh.ErrUserAborted) {
			log.Warn().Err(err).Msg("Sub-project prompt failed, treating as cancelled")
		}
		req.Cancel()
		return
	}

	req.Resolve(value)
}
