package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDurationSeconds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  int64
	}{
		{name: "seconds", input: "10s", want: 10},
		{name: "minutes", input: "5m", want: 300},
		{name: "hours", input: "1h", want: 3600},
		{name: "days", input: "2d", want: 172800},
		{name: "upper case unit", input: "3H", want: 10800},
		{name: "zero", input: "0s", want: 0},
		{name: "longest day count", input: "106751d", want: 106751 * 86400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseDurationSeconds(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDurationSecondsRejectsMalformedInput(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"10x", "m5", "-5s", "", "5", "1.5h", " 5m", "5m "} {
		t.Run(input, func(t *testing.T) {
			t.Parallel()
			_, err := ParseDurationSeconds(input)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidFormat)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestParseDurationSecondsRejectsOverflow(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"106752d", "200000d", "999999999999999999d", "9223372037s", "99999999999999999999s"} {
		t.Run(input, func(t *testing.T) {
			t.Parallel()
			_, err := ParseDurationSeconds(input)
			assert.ErrorIs(t, err, ErrInvalidFormat)

			_, err = ParseDuration(input)
			assert.ErrorIs(t, err, ErrInvalidFormat)
		})
	}
}

func TestParseDuration(t *testing.T) {
	t.Parallel()

	d, err := ParseDuration("5m")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, d)

	d, err = ParseDuration("106751d")
	require.NoError(t, err)
	assert.Positive(t, d)

	_, err = ParseDuration("soon")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}
