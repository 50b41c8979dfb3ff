package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type remoteStub struct{ msg string }

func (r remoteStub) Error() string       { return "remote: " + r.msg }
func (r remoteStub) UserMessage() string { return r.msg }

func TestNew(t *testing.T) {
	err := New(ErrCodeValidation, "name is required")

	assert.Equal(t, ErrCodeValidation, err.Code)
	assert.Equal(t, "name is required", err.Message)
	assert.Nil(t, err.Cause)
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(ErrCodeNetwork, "request failed", cause)

	assert.Equal(t, ErrCodeNetwork, err.Code)
	assert.True(t, errors.Is(err, cause), "Wrap should support errors.Is")
}

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name    string
		err     *AdminError
		want    []string
		notWant []string
	}{
		{
			name: "simple error",
			err:  New(ErrCodeReorderBusy, "busy"),
			want: []string{"[REORDER-002] busy"},
			notWant: []string{
				"Suggestions:",
				"Documentation:",
			},
		},
		{
			name: "error with cause",
			err:  Wrap(ErrCodeFileReadFailed, "read failed", fmt.Errorf("permission denied")),
			want: []string{"[IO-002] read failed: permission denied"},
		},
		{
			name: "error with suggestions and docs",
			err: New(ErrCodeConfigInvalid, "bad config").
				WithSuggestions("first", "second").
				WithDocs("https://example.com/docs"),
			want: []string{"Suggestions:", "• first", "• second", "Documentation: https://example.com/docs"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, w := range tt.want {
				assert.Contains(t, msg, w)
			}
			for _, w := range tt.notWant {
				assert.NotContains(t, msg, w)
			}
		})
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewAuthExpiredError(nil))

	assert.True(t, errors.Is(err, New(ErrCodeAuthExpired, "")))
	assert.False(t, errors.Is(err, New(ErrCodeAuthInvalid, "")))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrorCode(""), CodeOf(fmt.Errorf("plain")))
	assert.Equal(t, ErrCodeReorderConflict, CodeOf(fmt.Errorf("wrapped: %w", NewReorderConflictError("brand", nil))))
}

func TestHasCodeWalksNestedAdminErrors(t *testing.T) {
	inner := NewNetworkError("https://shop.test", fmt.Errorf("dial tcp"))
	outer := NewReorderConflictError("brand", inner)

	assert.True(t, HasCode(outer, ErrCodeReorderConflict))
	assert.True(t, HasCode(outer, ErrCodeNetwork))
	assert.False(t, HasCode(outer, ErrCodeAuthExpired))
}

func TestUserMessage(t *testing.T) {
	t.Run("nil error uses fallback", func(t *testing.T) {
		assert.Equal(t, "Failed to save brand", UserMessage(nil, "Failed to save brand"))
	})

	t.Run("remote message wins", func(t *testing.T) {
		err := fmt.Errorf("save: %w", remoteStub{msg: "A term with the name provided already exists."})
		assert.Equal(t, "A term with the name provided already exists.", UserMessage(err, "Failed to save brand"))
	})

	t.Run("empty remote message falls back", func(t *testing.T) {
		assert.Equal(t, "Failed to delete brand", UserMessage(remoteStub{}, "Failed to delete brand"))
	})

	t.Run("plain errors fall back", func(t *testing.T) {
		assert.Equal(t, "fallback", UserMessage(fmt.Errorf("boom"), "fallback"))
	})
}

func TestNewRemoteError(t *testing.T) {
	err := NewRemoteError("Failed to load products", remoteStub{msg: "Sorry, you are not allowed to list resources."})

	require.Equal(t, ErrCodeRemote, err.Code)
	assert.Equal(t, "Sorry, you are not allowed to list resources.", err.Message)
}

func TestConstructorsCarrySuggestions(t *testing.T) {
	tests := []struct {
		name string
		err  *AdminError
		code ErrorCode
	}{
		{"auth expired", NewAuthExpiredError(nil), ErrCodeAuthExpired},
		{"auth invalid", NewAuthInvalidError("Incorrect password", nil), ErrCodeAuthInvalid},
		{"auth required", NewAuthRequiredError("brands reorder"), ErrCodeAuthRequired},
		{"forbidden", NewForbiddenError("users list", "administrator"), ErrCodeAuthForbidden},
		{"reorder conflict", NewReorderConflictError("brand", nil), ErrCodeReorderConflict},
		{"reorder busy", NewReorderBusyError("brand"), ErrCodeReorderBusy},
		{"network", NewNetworkError("https://shop.test", nil), ErrCodeNetwork},
		{"config missing", NewConfigMissingError("api.base_url"), ErrCodeConfigMissing},
		{"file not found", NewFileNotFoundError("logo.png"), ErrCodeFileNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.NotEmpty(t, tt.err.Suggestions)
			assert.True(t, strings.HasPrefix(tt.err.Error(), "["+string(tt.code)+"]"))
		})
	}
}
