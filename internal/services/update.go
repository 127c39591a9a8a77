package services

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/ternarybob/arbor"

	"rapports-sync/internal/common"
	"rapports-sync/internal/interfaces"
)

// updateChecker compares the published manifest version against the
// running build. A hint already dismissed for that exact version stays
// silent until the next release.
type updateChecker struct {
	client      *resty.Client
	manifestURL string
	state       interfaces.StateStore
	log         arbor.ILogger
}

func NewUpdateChecker(config *common.UpdateConfig, state interfaces.StateStore, log arbor.ILogger) interfaces.UpdateChecker {
	return &updateChecker{
		client:      resty.New().SetTimeout(10 * time.Second),
		manifestURL: config.ManifestURL,
		state:       state,
		log:         log,
	}
}

type remoteManifest struct {
	Version string `json:"version"`
}

// Check returns the available update, or nil when up to date or the hint
// was dismissed. Failures are not fatal to anything; callers just log.
func (u *updateChecker) Check(ctx context.Context) (*interfaces.UpdateInfo, error) {
	var manifest remoteManifest

	resp, err := u.client.R().
		SetContext(ctx).
		SetResult(&manifest).
		Get(u.manifestURL)

	if err != nil {
		return nil, common.NewUpstreamError("manifest", 0, "failed to fetch remote manifest").WithCause(err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, common.NewUpstreamError("manifest", resp.StatusCode(), resp.String())
	}

	if !common.IsNewerVersion(manifest.Version, common.GetVersion()) {
		return nil, nil
	}

	dismissed, err := u.state.DismissedVersion()
	if err != nil {
		u.log.Warn().Err(err).Msg("Could not read dismissed version")
	}
	if dismissed == manifest.Version {
		return nil, nil
	}

	return &interfaces.UpdateInfo{Version: manifest.Version}, nil
}

func (u *updateChecker) Dismiss(version string) error {
	return u.state.SetDismissedVersion(version)
}
