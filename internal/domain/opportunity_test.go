package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

func TestTimeIntervalToDays(t *testing.T) {
	cases := []struct {
		interval TimeIntervalOption
		count    int
		want     int
	}{
		{TimeIntervalMinute, 30, 1},
		{TimeIntervalMinute, 1441, 2},
		{TimeIntervalHour, 24, 1},
		{TimeIntervalHour, 25, 2},
		{TimeIntervalDay, 3, 3},
		{TimeIntervalWeek, 2, 14},
		{TimeIntervalMonth, 1, 30},
	}
	for _, c := range cases {
		o := &Opportunity{CommitmentInterval: c.interval, CommitmentIntervalCount: c.count}
		got, err := o.TimeIntervalToDays()
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "%s x %d", c.interval, c.count)
	}
}

func TestTimeIntervalToDays_Unknown(t *testing.T) {
	o := &Opportunity{CommitmentInterval: "Year", CommitmentIntervalCount: 1}
	_, err := o.TimeIntervalToDays()
	assert.True(t, errors.Is(err, ErrBadRequest))
}

func TestEstimatedReward(t *testing.T) {
	assert.Nil(t, EstimatedReward(nil, f64(10), f64(10)))
	assert.Equal(t, 5.0, *EstimatedReward(f64(5), nil, nil))
	assert.Equal(t, 3.0, *EstimatedReward(f64(5), f64(3), nil))
	assert.Equal(t, 0.0, *EstimatedReward(f64(5), f64(-2), f64(100)))
	assert.Equal(t, 2.0, *EstimatedReward(f64(5), f64(3), f64(2)))
	assert.Equal(t, 0.0, *EstimatedReward(f64(5), nil, f64(0)))
}

func TestCompletable(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	o := &Opportunity{
		Title:               "Clean-up",
		Status:              StatusActive,
		OrganizationStatus:  OrganizationStatusActive,
		VerificationEnabled: true,
		DateStart:           now.Add(-time.Hour),
	}
	ok, reason := o.Completable(now)
	assert.True(t, ok)
	assert.Empty(t, reason)

	o.DateStart = now.Add(48 * time.Hour)
	o.VerificationEnabled = false
	ok, reason = o.Completable(now)
	assert.False(t, ok)
	assert.Contains(t, reason, "it has not yet started (start date: 2024-05-12)")
	assert.Contains(t, reason, "verification is not enabled")

	o.Status = StatusExpired
	o.VerificationEnabled = true
	ok, _ = o.Completable(now)
	assert.True(t, ok)
}

func TestPublishedOrExpired(t *testing.T) {
	o := &Opportunity{ID: "op1", Status: StatusInactive, OrganizationStatus: OrganizationStatusActive}
	ok, reason := o.PublishedOrExpired()
	assert.False(t, ok)
	assert.Contains(t, reason, "Active / Expired")

	o.OrganizationStatus = OrganizationStatusInactive
	o.Status = StatusActive
	ok, reason = o.PublishedOrExpired()
	assert.False(t, ok)
	assert.Contains(t, reason, "inactive organization")

	o.OrganizationStatus = OrganizationStatusActive
	ok, _ = o.PublishedOrExpired()
	assert.True(t, ok)
}

func TestToInfo(t *testing.T) {
	count, limit := 10, 10
	o := &Opportunity{
		ID:                            "op1",
		Status:                        StatusActive,
		OrganizationStatus:            OrganizationStatusActive,
		ZltoReward:                    f64(50),
		OrganizationZltoRewardBalance: f64(20),
		ParticipantCount:              &count,
		ParticipantLimit:              &limit,
	}
	o.SetPublished()

	info := o.ToInfo("https://app.yoma.world/", time.Now())
	assert.Equal(t, 20.0, *info.ZltoReward)
	assert.True(t, info.ParticipantLimitReached)
	assert.Equal(t, 10, info.ParticipantCountCompleted)
	assert.Equal(t, "https://app.yoma.world/opportunities/op1", info.InfoURL)
	assert.True(t, info.Published)
	require.NotNil(t, info.NonCompletableReason)
}

func TestCommitmentDescription(t *testing.T) {
	assert.Equal(t, "1 Day", CommitmentDescription(1, "Day"))
	assert.Equal(t, "3 Weeks", CommitmentDescription(3, "Week"))
}

func TestSetRewardBalances(t *testing.T) {
	o := &Opportunity{ZltoRewardPool: f64(100), ZltoRewardCumulative: f64(30)}
	o.SetRewardBalances()
	assert.Equal(t, 70.0, *o.ZltoRewardBalance)
	assert.Nil(t, o.YomaRewardBalance)
}

func TestDates(t *testing.T) {
	ts := time.Date(2024, 3, 4, 15, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), RemoveTime(ts))
	assert.Equal(t, time.Date(2024, 3, 4, 23, 59, 59, 999999999, time.UTC), ToEndOfDay(ts))

	assert.Equal(t, "https://yoma.world", EnsureHTTPSScheme("yoma.world"))
	assert.Equal(t, "https://yoma.world", EnsureHTTPSScheme("http://yoma.world"))
	assert.Equal(t, "HTTPS://yoma.world", EnsureHTTPSScheme("HTTPS://yoma.world"))
	assert.Equal(t, "", EnsureHTTPSScheme("  "))
}
