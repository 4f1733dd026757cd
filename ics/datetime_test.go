package ics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDateTime(t *testing.T) {
	start := time.Date(2026, 2, 15, 9, 0, 0, 0, time.FixedZone("AEST", 10*60*60))
	assert.Equal(t, "20260214T230000Z", FormatDateTime(start))
}

func TestParseDateTime(t *testing.T) {
	tests := []struct {
		raw  string
		want time.Time
	}{
		{"20260214T230000Z", time.Date(2026, 2, 14, 23, 0, 0, 0, time.UTC)},
		{"20260214T230000", time.Date(2026, 2, 14, 23, 0, 0, 0, time.UTC)},
		{"20260214", time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)},
		{" 20260214T230000Z ", time.Date(2026, 2, 14, 23, 0, 0, 0, time.UTC)},
		{"2026-02-15T09:00:00+10:00", time.Date(2026, 2, 14, 23, 0, 0, 0, time.UTC)},
		{"2026-02-14 23:00:00", time.Date(2026, 2, 14, 23, 0, 0, 0, time.UTC)},
		{"2026-02-14", time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseDateTime(tt.raw).Get()
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %v, got %v", tt.want, got)
		})
	}
}

func TestParseDateTime_Invalid(t *testing.T) {
	for _, raw := range []string{"", "tomorrow", "2026021", "20261314T000000Z"} {
		t.Run(raw, func(t *testing.T) {
			assert.True(t, ParseDateTime(raw).IsError())
		})
	}
}
