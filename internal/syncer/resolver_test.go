package syncer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rapports-sync/internal/common"
	"rapports-sync/internal/interfaces"
)

func testProjects() []interfaces.Candidate {
	return []interfaces.Candidate{
		{Label: "14-SEIDOR-AM", Value: "77"},
		{Label: "14-ZPR-TA", Value: "88"},
	}
}

func TestResolverNoKeyword(t *testing.T) {
	rapports := &fakeRapports{projects: testProjects()}
	resolver := NewResolver(rapports, testProjects(), NewGate())

	ref, err := resolver.Resolve(context.Background(), "14-SEIDOR-AM")
	require.NoError(t, err)

	assert.Equal(t, interfaces.TargetRef{ProjectID: "77"}, ref)
	assert.Zero(t, rapports.subCalls, "no keyword means no sub-project fetch")
}

func TestResolverUnknownProject(t *testing.T) {
	resolver := NewResolver(&fakeRapports{}, testProjects(), NewGate())

	_, err := resolver.Resolve(context.Background(), "99-NOPE&LEC")
	require.Error(t, err)
	assert.True(t, common.IsType(err, common.ErrorTypeUnmappedProject))
	assert.Equal(t, `Project "99-NOPE" not found in Rapports.`, common.ErrorMessage(err))
}

func TestResolverKeywordNoMatch(t *testing.T) {
	rapports := &fakeRapports{
		subProjects: map[string][]interfaces.Candidate{
			"77": {{Label: "General Support", Value: "1"}},
		},
	}
	resolver := NewResolver(rapports, testProjects(), NewGate())

	_, err := resolver.Resolve(context.Background(), "14-SEIDOR-AM&LEC")
	require.Error(t, err)
	assert.True(t, common.IsType(err, common.ErrorTypeUnmappedSubProject))
	assert.Equal(t, `Sub-project with keyword "LEC" not found.`, common.ErrorMessage(err))
}

func TestResolverSingleMatch(t *testing.T) {
	rapports := &fakeRapports{
		subProjects: map[string][]interfaces.Candidate{
			"77": {
				{Label: "LEC Support", Value: "101"},
				{Label: "General", Value: "102"},
			},
		},
	}
	resolver := NewResolver(rapports, testProjects(), NewGate())

	ref, err := resolver.Resolve(context.Background(), "14-SEIDOR-AM&lec")
	require.NoError(t, err)
	assert.Equal(t, interfaces.TargetRef{ProjectID: "77", SubProjectID: "101"}, ref)
}

func TestResolverMultipleMatchesPromptsGate(t *testing.T) {
	rapports := &fakeRapports{
		subProjects: map[string][]interfaces.Candidate{
			"88": {
				{Label: "TEAMBUILDING 2024", Value: "201"},
				{Label: "TEAMBUILDING 2025", Value: "202"},
				{Label: "Training", Value: "203"},
			},
		},
	}
	gate := NewGate()
	ctx := context.Background()

	respondToGate(ctx, gate, func(req *SelectionRequest) {
		// Only the matching candidates reach the prompt.
		assert.Equal(t, []interfaces.Candidate{
			{Label: "TEAMBUILDING 2024", Value: "201"},
			{Label: "TEAMBUILDING 2025", Value: "202"},
		}, req.Candidates)
		req.Resolve("202")
	})

	resolver := NewResolver(rapports, testProjects(), gate)
	ref, err := resolver.Resolve(ctx, "14-ZPR-TA&TEAMBUILDING")
	require.NoError(t, err)
	assert.Equal(t, interfaces.TargetRef{ProjectID: "88", SubProjectID: "202"}, ref)
}

func TestResolverSelectionCancelled(t *testing.T) {
	rapports := &fakeRapports{
		subProjects: map[string][]interfaces.Candidate{
			"88": {
				{Label: "TEAMBUILDING 2024", Value: "201"},
				{Label: "TEAMBUILDING 2025", Value: "202"},
			},
		},
	}
	gate := NewGate()
	ctx := context.Background()
	respondToGate(ctx, gate, func(req *SelectionRequest) { req.Cancel() })

	resolver := NewResolver(rapports, testProjects(), gate)
	_, err := resolver.Resolve(ctx, "14-ZPR-TA&TEAMBUILDING")
	require.Error(t, err)
	assert.True(t, common.IsType(err, common.ErrorTypeSelectionCancelled))
}

func TestResolverCachesSubProjects(t *testing.T) {
	rapports := &fakeRapports{
		subProjects: map[string][]interfaces.Candidate{
			"77": {{Label: "LEC Support", Value: "101"}},
		},
	}
	resolver := NewResolver(rapports, testProjects(), NewGate())

	for range 3 {
		_, err := resolver.Resolve(context.Background(), "14-SEIDOR-AM&LEC")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, rapports.subCalls)
}

func TestResolverSubProjectFetchError(t *testing.T) {
	rapports := &fakeRapports{subErr: common.NewUpstreamError("Rapports", 500, "boom")}
	resolver := NewResolver(rapports, testProjects(), NewGate())

	_, err := resolver.Resolve(context.Background(), "14-SEIDOR-AM&LEC")
	require.Error(t, err)
	assert.True(t, common.IsType(err, common.ErrorTypeUpstream))
}
