package engine

import (
	"context"
	"testing"
	"time"

	"github.com/hearthchat/moderation/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusUnknownUser(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	eng, _ := stubEngine(&stubLayer{})

	status, err := eng.CheckUserModerationStatus(ctx, "nobody")
	require.NoError(err)
	assert.False(status.IsBanned)
	assert.False(status.IsShadowBanned)
	assert.False(status.IsRestricted)
	assert.Equal(models.TrustLevelNew, status.TrustLevel)
	assert.Equal(NeutralTrustScore, status.TrustScore)
	assert.Equal(50, status.MaxDailyMessages)
	assert.Empty(status.ActiveRestrictions)

	// reads never create a record
	_, err = eng.Store.GetTrustScore(ctx, "nobody")
	assert.ErrorIs(err, ErrNotFound)

	_, err = eng.CheckUserModerationStatus(ctx, "")
	assert.ErrorIs(err, ErrInvalidInput)
}

func TestStatusTempBanExpires(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	eng, st := stubEngine(&stubLayer{})
	seedTrust(t, eng, "alice", 80)

	now := time.Now()
	expires := now.Add(TempBanDuration)
	require.NoError(st.CreateModerationAction(ctx, &models.ModerationAction{
		ID:              "ban-1",
		TargetID:        "msg-1",
		TargetType:      models.TargetMessage,
		TargetUserID:    "alice",
		ActorType:       models.ActorAutomated,
		Action:          models.ActionTempBan,
		Severity:        models.SeverityHigh,
		DurationSeconds: int64(TempBanDuration.Seconds()),
		ExpiresAt:       &expires,
		Reason:          "spam",
		CreatedAt:       now,
	}))

	status, err := eng.CheckUserModerationStatus(ctx, "alice")
	require.NoError(err)
	assert.True(status.IsBanned)
	assert.Equal(0, status.MaxDailyMessages)
	require.Len(status.ActiveRestrictions, 1)
	assert.Equal("ban-1", status.ActiveRestrictions[0].ActionID)
	assert.Equal(&expires, status.ActiveRestrictions[0].ExpiresAt)

	// past expiry the ban lapses even before maintenance runs
	eng.Now = func() time.Time { return now.Add(25 * time.Hour) }
	status, err = eng.CheckUserModerationStatus(ctx, "alice")
	require.NoError(err)
	assert.False(status.IsBanned)
	assert.Equal(500, status.MaxDailyMessages)

	require.NoError(eng.ExpireModerationActions(ctx))
	act, err := st.GetModerationAction(ctx, "ban-1")
	require.NoError(err)
	assert.True(act.Expired)
	assert.Equal(models.ActionTempBan, act.Action)

	eng.Now = nil
	status, err = eng.CheckUserModerationStatus(ctx, "alice")
	require.NoError(err)
	assert.False(status.IsBanned)
}

func TestStatusRestrictedAndShadowBanned(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	eng, _ := stubEngine(&stubLayer{})
	seedTrust(t, eng, "carol", 20)

	require.NoError(eng.SetShadowBan(ctx, "carol", true))
	status, err := eng.CheckUserModerationStatus(ctx, "carol")
	require.NoError(err)
	assert.True(status.IsRestricted)
	assert.True(status.IsShadowBanned)
	assert.False(status.IsBanned)
	assert.Equal(models.TrustLevelRestricted, status.TrustLevel)
	assert.Equal(10, status.MaxDailyMessages)

	require.NoError(eng.SetShadowBan(ctx, "carol", false))
	status, err = eng.CheckUserModerationStatus(ctx, "carol")
	require.NoError(err)
	assert.False(status.IsShadowBanned)

	assert.ErrorIs(eng.SetShadowBan(ctx, "", true), ErrInvalidInput)
}

func TestEngineTasks(t *testing.T) {
	assert := assert.New(t)
	eng, _ := stubEngine(&stubLayer{})

	tasks := eng.Tasks()
	assert.Len(tasks, 1)
	assert.Equal("expire-actions", tasks[0].Name)
	assert.Equal(ExpireActionsInterval, tasks[0].Interval)
}
