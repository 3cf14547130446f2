// Package env loads the process-wide settings. Environment variables take
// precedence; an optional TOML file (~/.doctag/config.toml) supplies
// lower-precedence defaults so operators can avoid exporting the same
// variables in every shell.
package env

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/doctag-cli/internal/core/domain"
)

// Environment variable names.
const (
	EnvPaperlessURL   = "PAPERLESS_URL"
	EnvPaperlessToken = "PAPERLESS_API_TOKEN"
	EnvAgentProvider  = "DOCTAG_AGENT"

	EnvClaudeCommand  = "CLAUDE_COMMAND"
	EnvClaudeModel    = "CLAUDE_MODEL"
	EnvClaudeTimeout  = "CLAUDE_TIMEOUT"
	EnvClaudeMaxChars = "CLAUDE_MAX_CONTENT_CHARS"

	EnvCodexCommand   = "CODEX_COMMAND"
	EnvCodexModel     = "CODEX_MODEL"
	EnvCodexTimeout   = "CODEX_TIMEOUT"
	EnvCodexMaxChars  = "CODEX_MAX_CONTENT_CHARS"
	EnvCodexReasoning = "CODEX_REASONING_EFFORT"

	EnvProcessedTag   = "DOCTAG_PROCESSED_TAG"
	EnvMatchThreshold = "DOCTAG_MATCH_THRESHOLD"
	EnvAgentRetries   = "DOCTAG_AGENT_RETRIES"
	EnvAllowCreate    = "DOCTAG_ALLOW_CREATE_CORRESPONDENTS"
)

// configFileName is the optional settings file inside the config directory.
const configFileName = "config.toml"

// fileConfig mirrors the TOML file layout.
type fileConfig struct {
	Paperless struct {
		URL   string `toml:"url"`
		Token string `toml:"token"`
	} `toml:"paperless"`

	Agent struct {
		Provider string          `toml:"provider"`
		Claude   backendSettings `toml:"claude"`
		Codex    backendSettings `toml:"codex"`
	} `toml:"agent"`

	Analyze struct {
		ProcessedTag              string   `toml:"processed_tag"`
		MatchThreshold            *float64 `toml:"match_threshold"`
		AgentRetries              *int     `toml:"agent_retries"`
		AllowCreateCorrespondents *bool    `toml:"allow_create_correspondents"`
	} `toml:"analyze"`
}

type backendSettings struct {
	Command         string `toml:"command"`
	Model           string `toml:"model"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
	MaxContentChars int    `toml:"max_content_chars"`
	ReasoningEffort string `toml:"reasoning_effort"`
}

// Load builds validated settings from the optional config file and the
// environment. If configDir is empty, defaults to ~/.doctag.
func Load(configDir string) (domain.Settings, error) {
	var settings domain.Settings

	file, err := readFile(configDir)
	if err != nil {
		return settings, err
	}

	provider := domain.AgentClaude
	if file.Agent.Provider != "" {
		provider = domain.AgentProvider(strings.ToLower(file.Agent.Provider))
	}
	if v := os.Getenv(EnvAgentProvider); v != "" {
		provider = domain.AgentProvider(strings.ToLower(v))
	}

	settings = domain.NewSettings(provider)
	settings.Paperless.URL = strings.TrimSuffix(file.Paperless.URL, "/")
	settings.Paperless.Token = file.Paperless.Token

	applyBackendFile(&settings.Agent, file)
	applyAnalyzeFile(&settings, file)
	applyEnv(&settings)

	if err := settings.Validate(); err != nil {
		return settings, err
	}
	return settings, nil
}

func readFile(configDir string) (fileConfig, error) {
	var cfg fileConfig

	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			// No home directory means no config file; the
			// environment alone has to be enough.
			return cfg, nil
		}
		configDir = filepath.Join(home, ".doctag")
	}

	data, err := os.ReadFile(filepath.Join(configDir, configFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("%w: read config file: %v", domain.ErrInvalidConfig, err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: parse config file: %v", domain.ErrInvalidConfig, err)
	}
	return cfg, nil
}

func applyBackendFile(agent *domain.AgentSettings, file fileConfig) {
	backend := file.Agent.Claude
	if agent.Provider == domain.AgentCodex {
		backend = file.Agent.Codex
	}

	if backend.Command != "" {
		agent.Command = backend.Command
	}
	if backend.Model != "" {
		agent.Model = backend.Model
	}
	if backend.TimeoutSeconds > 0 {
		agent.Timeout = time.Duration(backend.TimeoutSeconds) * time.Second
	}
	if backend.MaxContentChars > 0 {
		agent.MaxContentChars = backend.MaxContentChars
	}
	if backend.ReasoningEffort != "" {
		agent.ReasoningEffort = backend.ReasoningEffort
	}
}

func applyAnalyzeFile(settings *domain.Settings, file fileConfig) {
	if file.Analyze.ProcessedTag != "" {
		settings.ProcessedTag = file.Analyze.ProcessedTag
	}
	if file.Analyze.MatchThreshold != nil {
		settings.MatchThreshold = *file.Analyze.MatchThreshold
	}
	if file.Analyze.AgentRetries != nil {
		settings.AgentRetries = *file.Analyze.AgentRetries
	}
	if file.Analyze.AllowCreateCorrespondents != nil {
		settings.AllowCreateCorrespondents = *file.Analyze.AllowCreateCorrespondents
	}
}

func applyEnv(settings *domain.Settings) {
	if v := os.Getenv(EnvPaperlessURL); v != "" {
		settings.Paperless.URL = strings.TrimSuffix(v, "/")
	}
	if v := os.Getenv(EnvPaperlessToken); v != "" {
		settings.Paperless.Token = v
	}
	if v := os.Getenv(EnvProcessedTag); v != "" {
		settings.ProcessedTag = v
	}
	if v, ok := floatEnv(EnvMatchThreshold); ok {
		settings.MatchThreshold = v
	}
	if v, ok := intEnv(EnvAgentRetries); ok {
		settings.AgentRetries = v
	}
	if v, ok := boolEnv(EnvAllowCreate); ok {
		settings.AllowCreateCorrespondents = v
	}

	agent := &settings.Agent
	switch agent.Provider {
	case domain.AgentCodex:
		if v := os.Getenv(EnvCodexCommand); v != "" {
			agent.Command = v
		}
		if v := os.Getenv(EnvCodexModel); v != "" {
			agent.Model = v
		}
		if v, ok := intEnv(EnvCodexTimeout); ok {
			agent.Timeout = time.Duration(v) * time.Second
		}
		if v, ok := intEnv(EnvCodexMaxChars); ok {
			agent.MaxContentChars = v
		}
		if v := os.Getenv(EnvCodexReasoning); v != "" {
			agent.ReasoningEffort = v
		}
	default:
		if v := os.Getenv(EnvClaudeCommand); v != "" {
			agent.Command = v
		}
		if v := os.Getenv(EnvClaudeModel); v != "" {
			agent.Model = v
		}
		if v, ok := intEnv(EnvClaudeTimeout); ok {
			agent.Timeout = time.Duration(v) * time.Second
		}
		if v, ok := intEnv(EnvClaudeMaxChars); ok {
			agent.MaxContentChars = v
		}
	}
}

func intEnv(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func floatEnv(name string) (float64, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func boolEnv(name string) (bool, bool) {
	v := os.Getenv(name)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}
