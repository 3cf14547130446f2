package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() Settings {
	s := NewSettings(AgentClaude)
	s.Paperless.URL = "http://paperless.local:8000"
	s.Paperless.Token = "secret"
	return s
}

func TestNewSettings_ClaudeDefaults(t *testing.T) {
	s := NewSettings(AgentClaude)

	assert.Equal(t, AgentClaude, s.Agent.Provider)
	assert.Equal(t, DefaultClaudeCommand, s.Agent.Command)
	assert.Equal(t, DefaultClaudeModel, s.Agent.Model)
	assert.Equal(t, DefaultAgentTimeout, s.Agent.Timeout)
	assert.Equal(t, DefaultMaxContentChars, s.Agent.MaxContentChars)
	assert.Equal(t, DefaultProcessedTag, s.ProcessedTag)
	assert.True(t, s.AllowCreateCorrespondents)
}

func TestNewSettings_CodexDefaults(t *testing.T) {
	s := NewSettings(AgentCodex)

	assert.Equal(t, DefaultCodexCommand, s.Agent.Command)
	assert.Equal(t, DefaultCodexModel, s.Agent.Model)
	assert.Equal(t, DefaultCodexReasoning, s.Agent.ReasoningEffort)
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Settings)
		wantErr string
	}{
		{
			name:   "valid",
			modify: func(_ *Settings) {},
		},
		{
			name:    "missing URL",
			modify:  func(s *Settings) { s.Paperless.URL = "" },
			wantErr: "URL is required",
		},
		{
			name:    "trailing slash",
			modify:  func(s *Settings) { s.Paperless.URL = "http://paperless.local/" },
			wantErr: "must not end with a slash",
		},
		{
			name:    "missing token",
			modify:  func(s *Settings) { s.Paperless.Token = "" },
			wantErr: "token is required",
		},
		{
			name:    "unknown provider",
			modify:  func(s *Settings) { s.Agent.Provider = "gemini" },
			wantErr: "unknown agent provider",
		},
		{
			name:    "missing command",
			modify:  func(s *Settings) { s.Agent.Command = "" },
			wantErr: "command is required",
		},
		{
			name:    "zero timeout",
			modify:  func(s *Settings) { s.Agent.Timeout = 0 },
			wantErr: "timeout must be positive",
		},
		{
			name:    "zero content budget",
			modify:  func(s *Settings) { s.Agent.MaxContentChars = 0 },
			wantErr: "max content chars must be positive",
		},
		{
			name:    "empty marker tag",
			modify:  func(s *Settings) { s.ProcessedTag = "" },
			wantErr: "processed tag name is required",
		},
		{
			name:    "zero retries",
			modify:  func(s *Settings) { s.AgentRetries = 0 },
			wantErr: "retries must be at least 1",
		},
		{
			name:    "threshold out of range",
			modify:  func(s *Settings) { s.MatchThreshold = 1.5 },
			wantErr: "threshold must be in [0,1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.modify(&s)

			err := s.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSettings_ValidateDefaultsAreValid(t *testing.T) {
	s := validSettings()
	s.Agent.Timeout = 42 * time.Second

	require.NoError(t, s.Validate())
}
