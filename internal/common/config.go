package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	Collector CollectorConfig `toml:"collector"`
	Jira      JiraConfig      `toml:"jira"`
	Rapports  RapportsConfig  `toml:"rapports"`
	Auth      AuthConfig      `toml:"auth"`
	Sync      SyncConfig      `toml:"sync"`
	Storage   StorageConfig   `toml:"storage"`
	Logging   LoggingConfig   `toml:"logging"`
	Update    UpdateConfig    `toml:"update"`
}

type CollectorConfig struct {
	Name        string `toml:"name"`
	Environment string `toml:"environment"`
	Port        int    `toml:"port"`
}

type JiraConfig struct {
	BaseURL  string `toml:"base_url"`
	Username string `toml:"username"`
	APIToken string `toml:"api_token"`
	PEPField string `toml:"pep_field"`
	Timeout  int    `toml:"timeout"`
}

type RapportsConfig struct {
	BaseURL     string `toml:"base_url"`
	Timeout     int    `toml:"timeout"`
	Category    string `toml:"category"`
	SituationID string `toml:"situation_id"`
	TaskID      string `toml:"task_id"`
	InternalRef string `toml:"internal_ref"`
}

// AuthConfig controls where the Rapports bearer token comes from. In
// "browser" mode the token is lifted from a logged-in Rapports tab via the
// DevTools protocol; in "static" mode it is taken from config/environment.
type AuthConfig struct {
	Mode        string `toml:"mode"`
	Token       string `toml:"token"`
	DevToolsURL string `toml:"devtools_url"`
	AppURL      string `toml:"app_url"`
}

type SyncConfig struct {
	Timezone string `toml:"timezone"`
	Rules    []Rule `toml:"rules"`
}

// Rule maps worklogs of issues matching Prefix onto a Rapports PEP value.
// Rules are evaluated in order against the issue key; the first matching
// prefix wins and later rules are never considered.
type Rule struct {
	Prefix    string         `toml:"prefix"`
	Condition *RuleCondition `toml:"condition"`
	Result    RuleResult     `toml:"result"`
	Fallback  *RuleResult    `toml:"fallback"`
}

// RuleCondition is satisfied when any of its configured checks matches.
// A nil condition on a Rule always passes.
type RuleCondition struct {
	// FieldContains matches when the issue's PEP field contains any of
	// these substrings (case-insensitive).
	FieldContains []string `toml:"field_contains"`
	// OrFieldEmpty additionally matches when the PEP field is empty.
	OrFieldEmpty bool `toml:"or_field_empty"`
	// CommentContains matches when the worklog comment contains any of
	// these substrings (case-insensitive).
	CommentContains []string `toml:"comment_contains"`
}

// RuleResult overrides the PEP value and, when the worklog carries no
// comment, the comment text.
type RuleResult struct {
	PEP     string `toml:"pep"`
	Comment string `toml:"comment"`
}

type StorageConfig struct {
	DatabasePath string `toml:"database_path"`
}

type LoggingConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	Output     string `toml:"output"`
	MaxSize    int    `toml:"max_size"`
	MaxBackups int    `toml:"max_backups"`
}

type UpdateConfig struct {
	Enabled     bool   `toml:"enabled"`
	ManifestURL string `toml:"manifest_url"`
}

// DefaultRules is the built-in PEP mapping table. A non-empty
// [[sync.rules]] list in the config file replaces it wholesale.
func DefaultRules() []Rule {
	return []Rule{
		{
			Prefix: "LEC-",
			Condition: &RuleCondition{
				FieldContains: []string{"14-SEIDOR-AM"},
				OrFieldEmpty:  true,
			},
			Result: RuleResult{PEP: "14-SEIDOR-AM&LEC"},
		},
		{
			Prefix: "SA-17",
			Result: RuleResult{PEP: "14-ZPR-VAC25"},
		},
		{
			Prefix: "SA-18",
			Result: RuleResult{PEP: "14-SEIDOR-AM&GENERAL", Comment: "Daily Standup"},
		},
		{
			Prefix: "SA-19",
			Condition: &RuleCondition{
				CommentContains: []string{"team building", "teambuilding"},
			},
			Result:   RuleResult{PEP: "14-ZPR-TA&TEAMBUILDING"},
			Fallback: &RuleResult{PEP: "14-ZPR-TA&OTHERS"},
		},
	}
}

func DefaultConfig() *Config {
	execPath, _ := os.Executable()
	execDir := filepath.Dir(execPath)
	execName := filepath.Base(execPath)
	execName = execName[:len(execName)-len(filepath.Ext(execName))]

	return &Config{
		Collector: CollectorConfig{
			Name:        execName,
			Environment: "development",
			Port:        8087,
		},
		Jira: JiraConfig{
			BaseURL:  "https://seidorcc.atlassian.net",
			PEPField: "customfield_10120",
			Timeout:  30,
		},
		Rapports: RapportsConfig{
			BaseURL:     "https://apis-intranet.seidor.com",
			Timeout:     30,
			Category:    "PR",
			SituationID: "6",
			TaskID:      "",
			InternalRef: "",
		},
		Auth: AuthConfig{
			Mode:        "browser",
			DevToolsURL: "http://localhost:9222",
			AppURL:      "https://intranetnew.seidor.com/rapports/imputation-hours",
		},
		Sync: SyncConfig{
			Timezone: "Local",
			Rules:    DefaultRules(),
		},
		Storage: StorageConfig{
			DatabasePath: filepath.Join(execDir, "data", execName+".db"),
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "both",
			MaxSize:    100,
			MaxBackups: 3,
		},
		Update: UpdateConfig{
			Enabled:     true,
			ManifestURL: "https://raw.githubusercontent.com/jaysonliang-seidor/Rapports-knife/refs/heads/main/manifest.json",
		},
	}
}

func LoadConfig(configFile string) (*Config, error) {
	config := DefaultConfig()

	if configFile == "" {
		// Auto-detect config file next to the executable
		execPath, _ := os.Executable()
		execDir := filepath.Dir(execPath)
		execName := filepath.Base(execPath)
		execName = execName[:len(execName)-len(filepath.Ext(execName))]

		possiblePaths := []string{
			filepath.Join(execDir, execName+".toml"),
			filepath.Join(execDir, "config.toml"),
			"config.toml",
		}

		for _, path := range possiblePaths {
			if _, err := os.Stat(path); err == nil {
				configFile = path
				break
			}
		}

		if configFile == "" {
			return config, nil
		}
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if len(config.Sync.Rules) == 0 {
		config.Sync.Rules = DefaultRules()
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func applyEnvOverrides(config *Config) {
	if dbPath := os.Getenv("DATABASE_PATH"); dbPath != "" {
		config.Storage.DatabasePath = dbPath
	}

	if username := os.Getenv("JIRA_USERNAME"); username != "" {
		config.Jira.Username = username
	}
	if apiToken := os.Getenv("JIRA_API_TOKEN"); apiToken != "" {
		config.Jira.APIToken = apiToken
	}
	if token := os.Getenv("RAPPORTS_TOKEN"); token != "" {
		config.Auth.Mode = "static"
		config.Auth.Token = token
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		config.Logging.Level = logLevel
	}
	if logOutput := os.Getenv("LOG_OUTPUT"); logOutput != "" {
		config.Logging.Output = logOutput
	}

	if port := os.Getenv("SERVER_PORT"); port != "" {
		if portNum, err := strconv.Atoi(port); err == nil {
			config.Collector.Port = portNum
		}
	}
}

func (c *Config) Validate() error {
	if c.Jira.BaseURL == "" {
		return fmt.Errorf("jira base_url is required")
	}
	if c.Jira.PEPField == "" {
		return fmt.Errorf("jira pep_field is required")
	}
	if c.Rapports.BaseURL == "" {
		return fmt.Errorf("rapports base_url is required")
	}
	if c.Storage.DatabasePath == "" {
		return fmt.Errorf("storage database_path is required")
	}

	switch c.Auth.Mode {
	case "browser", "static":
	default:
		return fmt.Errorf("invalid auth mode: %s", c.Auth.Mode)
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid sync timezone %s: %w", c.Sync.Timezone, err)
	}

	for i, rule := range c.Sync.Rules {
		if rule.Prefix == "" {
			return fmt.Errorf("sync rule %d: prefix is required", i)
		}
		if rule.Fallback != nil && rule.Condition == nil {
			return fmt.Errorf("sync rule %d (%s): fallback requires a condition", i, rule.Prefix)
		}
	}

	if c.Collector.Port <= 0 {
		c.Collector.Port = 8087
	}

	validLogLevels := []string{"debug", "info", "warn", "error", "fatal", "panic"}
	validLevel := false
	for _, level := range validLogLevels {
		if c.Logging.Level == level {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validOutputs := []string{"console", "file", "both"}
	validOutput := false
	for _, output := range validOutputs {
		if c.Logging.Output == output {
			validOutput = true
			break
		}
	}
	if !validOutput {
		return fmt.Errorf("invalid log output: %s", c.Logging.Output)
	}

	return nil
}

// Location resolves the configured display timezone. Worklog dates are
// compared and imputation dates formatted in this location.
func (c *Config) Location() (*time.Location, error) {
	if c.Sync.Timezone == "" || c.Sync.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Sync.Timezone)
}

func (c *Config) IsProduction() bool {
	return c.Collector.Environment == "production"
}
