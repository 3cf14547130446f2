package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAgentError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AgentError
		want string
	}{
		{
			name: "timeout",
			err:  &AgentError{Kind: AgentTimeout},
			want: "agent timed out",
		},
		{
			name: "exit with stderr",
			err:  &AgentError{Kind: AgentExitError, ExitCode: 2, Stderr: "boom"},
			want: "agent exited with code 2: boom",
		},
		{
			name: "launch failure",
			err:  &AgentError{Kind: AgentLaunchFailure, Err: errors.New("no such file")},
			want: "agent failed to launch: no such file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestAgentError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	err := &AgentError{Kind: AgentLaunchFailure, Err: inner}

	assert.ErrorIs(t, err, inner)
}

func TestStoreError_Retryable(t *testing.T) {
	assert.True(t, (&StoreError{Kind: StoreUnavailable}).Retryable())
	assert.False(t, (&StoreError{Kind: StoreAuthFailure}).Retryable())
	assert.False(t, (&StoreError{Kind: StoreBadRequest}).Retryable())
}

func TestStoreError_NotFoundUnwraps(t *testing.T) {
	err := &StoreError{Kind: StoreNotFound, StatusCode: 404, Err: ErrNotFound}

	assert.ErrorIs(t, err, ErrNotFound)
}
