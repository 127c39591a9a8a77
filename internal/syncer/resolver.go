package syncer

import (
	"context"
	"strings"

	"rapports-sync/internal/common"
	"rapports-sync/internal/interfaces"
)

// Resolver turns a mapped PEP value into a Rapports project/sub-project
// reference. The project lookup is exact on the label before "&"; the
// optional keyword after it is matched against sub-project labels by
// case-insensitive substring, with the gate breaking ties.
type Resolver struct {
	rapports interfaces.RapportsClient
	projects map[string]string
	gate     *Gate
	subCache map[string][]interfaces.Candidate
}

func NewResolver(rapports interfaces.RapportsClient, projects []interfaces.Candidate, gate *Gate) *Resolver {
	lookup := make(map[string]string, len(projects))
	for _, p := range projects {
		lookup[p.Label] = p.Value
	}
	return &Resolver{
		rapports: rapports,
		projects: lookup,
		gate:     gate,
		subCache: make(map[string][]interfaces.Candidate),
	}
}

// Resolve maps a PEP value to a target reference. When the PEP carries no
// "&" keyword, no sub-project lookup happens at all and SubProjectID stays
// empty.
func (r *Resolver) Resolve(ctx context.Context, pep string) (interfaces.TargetRef, error) {
	label := pep
	keyword := ""
	if i := strings.Index(pep, "&"); i >= 0 {
		label = pep[:i]
		keyword = pep[i+1:]
	}

	projectID, ok := r.projects[label]
	if !ok {
		return interfaces.TargetRef{}, common.NewUnmappedProjectError(label)
	}

	if keyword == "" {
		return interfaces.TargetRef{ProjectID: projectID}, nil
	}

	subProjects, err := r.subProjects(ctx, projectID)
	if err != nil {
		return interfaces.TargetRef{}, err
	}

	var matches []interfaces.Candidate
	upperKeyword := strings.ToUpper(keyword)
	for _, sp := range subProjects {
		if strings.Contains(strings.ToUpper(sp.Label), upperKeyword) {
			matches = append(matches, sp)
		}
	}

	switch len(matches) {
	case 0:
		return interfaces.TargetRef{}, common.NewUnmappedSubProjectError(keyword)
	case 1:
		return interfaces.TargetRef{ProjectID: projectID, SubProjectID: matches[0].Value}, nil
	default:
		value, err := r.gate.Select(ctx, keyword, matches)
		if err != nil {
			return interfaces.TargetRef{}, err
		}
		return interfaces.TargetRef{ProjectID: projectID, SubProjectID: value}, nil
	}
}

// subProjects fetches a project's active sub-projects once per run.
func (r *Resolver) subProjects(ctx context.Context, projectID string) ([]interfaces.Candidate, error) {
	if cached, ok := r.subCache[projectID]; ok {
		return cached, nil
	}
	subProjects, err := r.rapports.SubProjects(ctx, projectID)
	if err != nil {
		return nil, err
	}
	r.subCache[projectID] = subProjects
	return subProjects, nil
}
