package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"rapports-sync/internal/common"
	"rapports-sync/internal/interfaces"
)

// NewTokenProvider builds the configured bearer-token source: "static"
// takes the token from config/environment, "browser" lifts it from a
// logged-in Rapports tab over the DevTools protocol.
func NewTokenProvider(config *common.AuthConfig, log arbor.ILogger) interfaces.TokenProvider {
	if config.Mode == "static" {
		return &staticTokenProvider{token: config.Token}
	}
	return &browserTokenProvider{
		devtoolsURL: config.DevToolsURL,
		appURL:      config.AppURL,
		log:         log,
	}
}

type staticTokenProvider struct {
	token string
}

func (p *staticTokenProvider) BearerToken(ctx context.Context) (string, error) {
	return validateToken(p.token)
}

// browserTokenProvider reads the Rapports SPA's session state from a
// browser started with --remote-debugging-port. The SPA keeps its OAuth
// token under sessionStorage["appState"], so the user's existing login is
// reused instead of implementing the auth flow.
type browserTokenProvider struct {
	devtoolsURL string
	appURL      string
	log         arbor.ILogger
}

// appState mirrors the slice of the SPA session blob the sync cares about.
type appState struct {
	TokenData struct {
		AccessToken string `json:"accessToken"`
	} `json:"tokenData"`
}

func (p *browserTokenProvider) BearerToken(ctx context.Context) (string, error) {
	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(ctx, p.devtoolsURL)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	targets, err := chromedp.Targets(browserCtx)
	if err != nil {
		return "", common.NewCredentialError(
			fmt.Sprintf("cannot reach browser DevTools at %s - start the browser with --remote-debugging-port", p.devtoolsURL)).WithCause(err)
	}

	origin := originOf(p.appURL)
	for _, target := range targets {
		if target.Type != "page" || !strings.HasPrefix(target.URL, origin) {
			continue
		}

		tabCtx, cancelTab := chromedp.NewContext(browserCtx, chromedp.WithTargetID(target.TargetID))

		var raw *string
		err := chromedp.Run(tabCtx, chromedp.Evaluate(`sessionStorage.getItem("appState")`, &raw))
		cancelTab()
		if err != nil || raw == nil {
			p.log.Debug().Str("url", target.URL).Msg("Tab has no appState, trying next")
			continue
		}

		var state appState
		if err := json.Unmarshal([]byte(*raw), &state); err != nil {
			return "", common.NewCredentialError("could not parse appState from session storage").WithCause(err)
		}

		return validateToken(state.TokenData.AccessToken)
	}

	return "", common.NewCredentialError("no logged-in Rapports tab found - open and log in to Rapports first")
}

func validateToken(token string) (string, error) {
	if token == "" {
		return "", common.NewCredentialError("no Rapports bearer token available")
	}
	// Rapports tokens are JWTs; anything else is a stale or foreign value.
	if !strings.HasPrefix(token, "ey") {
		return "", common.NewCredentialError("could not find a valid token within appState")
	}
	return token, nil
}

func originOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return rawURL
	}
	return u.Scheme + "://" + u.Host
}
