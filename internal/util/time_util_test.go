package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEasternDate(t *testing.T) {
	t.Run("late evening utc is still the previous day in new york", func(t *testing.T) {
		ts := time.Date(2024, 1, 3, 2, 30, 0, 0, time.UTC)
		require.Equal(t, "2024-01-02", EasternDate(ts))
	})
	t.Run("midday", func(t *testing.T) {
		ts := time.Date(2024, 7, 3, 16, 0, 0, 0, time.UTC)
		require.Equal(t, "2024-07-03", EasternDate(ts))
	})
}

func TestDateRange(t *testing.T) {
	t.Run("crosses month boundary", func(t *testing.T) {
		dates, err := DateRange("2024-01-30", "2024-02-02")
		require.NoError(t, err)
		require.Equal(t, []string{"2024-01-30", "2024-01-31", "2024-02-01", "2024-02-02"}, dates)
	})
	t.Run("end before start", func(t *testing.T) {
		dates, err := DateRange("2024-01-02", "2024-01-01")
		require.NoError(t, err)
		require.Empty(t, dates)
	})
	t.Run("invalid", func(t *testing.T) {
		_, err := DateRange("2024-13-01", "2024-01-01")
		require.Error(t, err)
	})
}

func TestAddMonths(t *testing.T) {
	out, err := AddMonths("2024-03-31", -1)
	require.NoError(t, err)
	require.Equal(t, "2024-02-29", out)

	out, err = AddMonths("2024-01-15", -12)
	require.NoError(t, err)
	require.Equal(t, "2023-01-15", out)
}

func TestAddDays(t *testing.T) {
	out, err := AddDays("2024-03-01", -1)
	require.NoError(t, err)
	require.Equal(t, "2024-02-29", out)
	require.Equal(t, "2024-03-02", MustAddDays("2024-03-01", 1))
}
