package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "code only",
			err:  &Error{Code: CodeInternal},
			want: "INTERNAL",
		},
		{
			name: "code and message",
			err:  &Error{Code: CodeNotFound, Message: "no such tool"},
			want: "NOT_FOUND: no such tool",
		},
		{
			name: "op code message",
			err:  &Error{Code: CodeTimeout, Op: "registry.Dispatch", Message: "deadline elapsed"},
			want: "registry.Dispatch: TIMEOUT: deadline elapsed",
		},
		{
			name: "message falls back to cause",
			err:  &Error{Code: CodeInternal, Cause: errors.New("boom")},
			want: "INTERNAL: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestWrap(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, Wrap(CodeInternal, "op", nil))
	})

	t.Run("raw error gains code and op", func(t *testing.T) {
		wrapped := Wrap(CodeInternal, "gh.CreateIssue", errors.New("boom"))
		require.NotNil(t, wrapped)
		assert.Equal(t, CodeInternal, wrapped.Code)
		assert.Equal(t, "gh.CreateIssue", wrapped.Op)
		assert.ErrorContains(t, wrapped, "boom")
	})

	t.Run("structured error keeps its code", func(t *testing.T) {
		inner := E(CodeAuthFailure, "", "token rejected", nil)
		wrapped := Wrap(CodeInternal, "gh.CreateIssue", inner)
		require.NotNil(t, wrapped)
		assert.Equal(t, CodeAuthFailure, wrapped.Code)
		assert.Equal(t, "gh.CreateIssue", wrapped.Op)
	})

	t.Run("structured error with op is untouched", func(t *testing.T) {
		inner := E(CodeNotFound, "memstore.Delete", "memory missing", nil)
		wrapped := Wrap(CodeInternal, "other", inner)
		assert.Same(t, inner, wrapped)
	})

	t.Run("wrapped in fmt chain is still found", func(t *testing.T) {
		inner := E(CodeRateLimited, "", "slow down", nil)
		chained := fmt.Errorf("dispatch: %w", inner)
		wrapped := Wrap(CodeInternal, "op", chained)
		assert.Equal(t, CodeRateLimited, wrapped.Code)
	})
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{name: "structured", err: E(CodeInvalidParams, "", "bad", nil), want: CodeInvalidParams},
		{name: "wrapped structured", err: fmt.Errorf("x: %w", E(CodeTimeout, "", "", nil)), want: CodeTimeout},
		{name: "context deadline", err: context.DeadlineExceeded, want: CodeTimeout},
		{name: "raw", err: errors.New("boom"), want: CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CodeOf(tt.err))
		})
	}

	assert.Equal(t, ErrorCode(""), CodeOf(nil))
	assert.True(t, IsCode(E(CodeNotFound, "", "", nil), CodeNotFound))
	assert.False(t, IsCode(errors.New("boom"), CodeNotFound))
}

func TestFailure(t *testing.T) {
	t.Run("structured error passes through", func(t *testing.T) {
		err := E(CodeAuthFailure, "gh", "missing token", nil)
		result := Failure(err)
		assert.False(t, result.OK)
		require.NotNil(t, result.Err)
		assert.Equal(t, CodeAuthFailure, result.Err.Code)
	})

	t.Run("raw error is coerced", func(t *testing.T) {
		result := Failure(errors.New("boom"))
		require.NotNil(t, result.Err)
		assert.Equal(t, CodeUnknown, result.Err.Code)
		assert.Equal(t, "boom", result.Err.Message)
	})

	t.Run("nil error still yields a failure", func(t *testing.T) {
		result := Failure(nil)
		assert.False(t, result.OK)
		require.NotNil(t, result.Err)
	})
}
