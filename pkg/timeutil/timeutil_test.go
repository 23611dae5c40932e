package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocal(t *testing.T) {
	clock, err := NewClock("+05:30")
	require.NoError(t, err)

	instant, err := clock.ParseLocal("2025-03-10", "10:00")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 3, 10, 4, 30, 0, 0, time.UTC), instant)
}

func TestRoundTrip(t *testing.T) {
	clock, err := NewClock("+05:30")
	require.NoError(t, err)

	instant, err := clock.ParseLocal("2025-03-10", "10:00")
	require.NoError(t, err)

	date, wall := clock.FormatLocal(instant)
	assert.Equal(t, "2025-03-10", date)
	assert.Equal(t, "10:00", wall)
}

func TestNegativeOffset(t *testing.T) {
	clock, err := NewClock("-03:00")
	require.NoError(t, err)

	instant, err := clock.ParseLocal("2025-03-10", "10:00")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC), instant)
}

func TestInvalidOffset(t *testing.T) {
	for _, offset := range []string{"", "0530", "*05:30", "abc"} {
		_, err := NewClock(offset)
		assert.Error(t, err, "offset %q", offset)
	}
}

func TestInvalidDate(t *testing.T) {
	clock, err := NewClock("+05:30")
	require.NoError(t, err)

	_, err = clock.ParseLocal("10-03-2025", "10:00")
	assert.Error(t, err)

	_, err = clock.ParseLocal("2025-03-10", "25:99")
	assert.Error(t, err)
}
