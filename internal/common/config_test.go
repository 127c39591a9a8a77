package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRules(t *testing.T) {
	rules := DefaultRules()
	require.Len(t, rules, 4)

	assert.Equal(t, "LEC-", rules[0].Prefix)
	assert.Equal(t, "14-SEIDOR-AM&LEC", rules[0].Result.PEP)
	require.NotNil(t, rules[0].Condition)
	assert.True(t, rules[0].Condition.OrFieldEmpty)

	assert.Equal(t, "SA-17", rules[1].Prefix)
	assert.Equal(t, "SA-18", rules[2].Prefix)
	assert.Equal(t, "Daily Standup", rules[2].Result.Comment)

	assert.Equal(t, "SA-19", rules[3].Prefix)
	require.NotNil(t, rules[3].Fallback)
	assert.Equal(t, "14-ZPR-TA&OTHERS", rules[3].Fallback.PEP)
}

func TestLoadConfigFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[collector]
port = 9090

[jira]
base_url = "https://example.atlassian.net"
pep_field = "customfield_99999"

[sync]
timezone = "UTC"

[[sync.rules]]
prefix = "AB-"
[sync.rules.result]
pep = "14-CUSTOM"
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Collector.Port)
	assert.Equal(t, "https://example.atlassian.net", cfg.Jira.BaseURL)
	assert.Equal(t, "customfield_99999", cfg.Jira.PEPField)
	assert.Equal(t, "UTC", cfg.Sync.Timezone)

	// A configured rule table replaces the built-in one wholesale.
	require.Len(t, cfg.Sync.Rules, 1)
	assert.Equal(t, "AB-", cfg.Sync.Rules[0].Prefix)
	assert.Equal(t, "14-CUSTOM", cfg.Sync.Rules[0].Result.PEP)
}

func TestLoadConfigDefaultsRulesWhenFileOmitsThem(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("[collector]\nport = 9091\n"), 0644))

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Len(t, cfg.Sync.Rules, 4)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("RAPPORTS_TOKEN", "eyJtest")
	t.Setenv("JIRA_USERNAME", "dev@example.com")
	t.Setenv("SERVER_PORT", "7070")

	configPath := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(""), 0644))

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "static", cfg.Auth.Mode, "a token in the environment switches to static auth")
	assert.Equal(t, "eyJtest", cfg.Auth.Token)
	assert.Equal(t, "dev@example.com", cfg.Jira.Username)
	assert.Equal(t, 7070, cfg.Collector.Port)
}

func TestValidateRejectsFallbackWithoutCondition(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sync.Rules = []Rule{
		{
			Prefix:   "AB-",
			Result:   RuleResult{PEP: "X"},
			Fallback: &RuleResult{PEP: "Y"},
		},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fallback requires a condition")
}

func TestValidateRejectsEmptyPrefix(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sync.Rules = []Rule{{Result: RuleResult{PEP: "X"}}}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prefix is required")
}

func TestValidateRejectsBadAuthMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Auth.Mode = "magic"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid auth mode")
}

func TestValidateRejectsBadTimezone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sync.Timezone = "Moon/Crater"

	assert.Error(t, cfg.Validate())
}

func TestLocation(t *testing.T) {
	cfg := DefaultConfig()

	cfg.Sync.Timezone = "UTC"
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	cfg.Sync.Timezone = "Local"
	loc, err = cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Local", loc.String())
}
