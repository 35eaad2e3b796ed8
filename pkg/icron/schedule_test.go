package icron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetTriggerInfo_Hourly(t *testing.T) {
	ref := time.Date(2026, 1, 1, 10, 30, 0, 0, time.UTC)

	info, err := GetTriggerInfo("0 * * * *", ref)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC), info.Last)
	assert.Equal(t, time.Date(2026, 1, 1, 11, 0, 0, 0, time.UTC), info.Next)
	assert.Equal(t, 30*time.Minute, info.TimeSinceLast)
	assert.Equal(t, 30*time.Minute, info.TimeUntilNext)
}

func TestGetTriggerInfo_DailyDescriptor(t *testing.T) {
	ref := time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)

	info, err := GetTriggerInfo("@daily", ref)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), info.Last)
	assert.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), info.Next)
}

func TestGetTriggerInfo_Invalid(t *testing.T) {
	_, err := GetTriggerInfo("not a cron", time.Now())
	assert.Error(t, err)
}
