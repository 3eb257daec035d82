package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToday(t *testing.T) {
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	la, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	tests := []struct {
		name string
		now  time.Time
		loc  *time.Location
		want time.Time
	}{
		{name: "UTC", now: time.Date(2024, 3, 4, 20, 0, 0, 0, time.UTC), loc: time.UTC, want: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)},
		{name: "nil location", now: time.Date(2024, 3, 4, 20, 0, 0, 0, time.UTC), want: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)},
		{name: "ahead of UTC, next day", now: time.Date(2024, 3, 4, 20, 0, 0, 0, time.UTC), loc: kolkata, want: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{name: "ahead of UTC, same day", now: time.Date(2024, 3, 4, 18, 29, 0, 0, time.UTC), loc: kolkata, want: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)},
		{name: "behind UTC, previous day", now: time.Date(2024, 3, 4, 2, 0, 0, 0, time.UTC), loc: la, want: time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)},
		{name: "now in another zone", now: time.Date(2024, 3, 5, 1, 0, 0, 0, kolkata), loc: time.UTC, want: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Today(tc.now, tc.loc)
			assert.True(t, tc.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}
