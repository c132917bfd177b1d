package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func restError(status, code int) error {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: status},
		Message:  &discordgo.APIErrorMessage{Code: code, Message: "test"},
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		denied bool
		absent bool
	}{
		{name: "missing permissions", err: restError(http.StatusForbidden, discordgo.ErrCodeMissingPermissions), denied: true},
		{name: "missing access", err: restError(http.StatusForbidden, discordgo.ErrCodeMissingAccess), denied: true},
		{name: "bare forbidden", err: restError(http.StatusForbidden, 0), denied: true},
		{name: "unknown member", err: restError(http.StatusNotFound, discordgo.ErrCodeUnknownMember), absent: true},
		{name: "unknown ban", err: restError(http.StatusNotFound, discordgo.ErrCodeUnknownBan), absent: true},
		{name: "bare not found", err: restError(http.StatusNotFound, 0), absent: true},
		{name: "server error", err: restError(http.StatusInternalServerError, 0)},
		{name: "plain error", err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.denied, IsAuthorizationDenied(tt.err))
			assert.Equal(t, tt.absent, IsNotFound(tt.err))
		})
	}
}

func TestClassifyKeepsPlatformError(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("ban failed: %w", Classify(restError(http.StatusForbidden, discordgo.ErrCodeMissingPermissions)))

	var restErr *discordgo.RESTError
	assert.True(t, errors.As(wrapped, &restErr))
	assert.ErrorIs(t, wrapped, ErrAuthorizationDenied)
	assert.Nil(t, Classify(nil))
}
