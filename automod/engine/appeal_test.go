package engine

import (
	"context"
	"testing"
	"time"

	"github.com/hearthchat/moderation/automod/flagstore"
	"github.com/hearthchat/moderation/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodAppeal = "I was quoting the rules back to someone, not breaking them"

func TestAppealAutoApproved(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng, st := stubEngine(&stubLayer{})
	seedTrust(t, eng, "alice", 75)
	orig := seedAction(t, eng, "warn-1", "alice", models.ActionWarn, models.SeverityLow, time.Hour)
	require.NoError(st.HideMessage(ctx, orig.TargetID))
	require.NoError(eng.Flags.Add(ctx, flagstore.ContentKey(orig.TargetID), []string{flagstore.FlagHidden}))

	res, err := eng.ProcessAppeal(ctx, "warn-1", "alice", goodAppeal)
	require.NoError(err)
	assert.Equal(AppealApproved, res.Outcome)
	require.NotEmpty(res.RestoreActionID)

	restore, err := st.GetModerationAction(ctx, res.RestoreActionID)
	require.NoError(err)
	assert.Equal(models.ActionRestore, restore.Action)
	require.NotNil(restore.OverridesActionID)
	assert.Equal("warn-1", *restore.OverridesActionID)
	assert.Equal(goodAppeal, restore.AppealReason)

	// the original record is untouched
	again, err := st.GetModerationAction(ctx, "warn-1")
	require.NoError(err)
	assert.Equal(*orig, *again)

	hidden, err := st.IsHidden(ctx, orig.TargetID)
	require.NoError(err)
	assert.False(hidden)
	flagged, err := flagstore.HasFlag(ctx, eng.Flags, flagstore.ContentKey(orig.TargetID), flagstore.FlagHidden)
	require.NoError(err)
	assert.False(flagged)

	status, err := eng.CheckUserModerationStatus(ctx, "alice")
	require.NoError(err)
	assert.Empty(status.ActiveRestrictions)

	_, err = eng.ProcessAppeal(ctx, "warn-1", "alice", goodAppeal)
	assert.ErrorIs(err, ErrInvalidTransition)
}

func TestAppealNotAutoApproved(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng, _ := stubEngine(&stubLayer{})
	seedTrust(t, eng, "alice", 75)
	seedTrust(t, eng, "bob", 75)
	seedTrust(t, eng, "carol", 60)
	seedAction(t, eng, "alice-warn", "alice", models.ActionWarn, models.SeverityLow, time.Hour)
	seedAction(t, eng, "bob-warn", "bob", models.ActionWarn, models.SeverityLow, time.Hour)
	seedAction(t, eng, "bob-ban", "bob", models.ActionTempBan, models.SeverityHigh, 60*24*time.Hour)
	seedAction(t, eng, "carol-warn", "carol", models.ActionWarn, models.SeverityLow, time.Hour)

	// too short
	res, err := eng.ProcessAppeal(ctx, "alice-warn", "alice", "  not fair at all   ")
	require.NoError(err)
	assert.Equal(AppealQueued, res.Outcome)

	// any ban history
	res, err = eng.ProcessAppeal(ctx, "bob-warn", "bob", goodAppeal)
	require.NoError(err)
	assert.Equal(AppealQueued, res.Outcome)

	// trust not above threshold
	res, err = eng.ProcessAppeal(ctx, "carol-warn", "carol", goodAppeal)
	require.NoError(err)
	assert.Equal(AppealQueued, res.Outcome)
}

func TestAppealRejected(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng, st := stubEngine(&stubLayer{})
	seedAction(t, eng, "ban-1", "mallory", models.ActionPermBan, models.SeverityCritical, 24*time.Hour)

	res, err := eng.ProcessAppeal(ctx, "ban-1", "mallory", goodAppeal)
	require.NoError(err)
	assert.Equal(AppealRejected, res.Outcome)
	assert.Empty(res.QueueItemID)

	items, err := st.ListQueueItems(ctx, storeFilterAll)
	require.NoError(err)
	assert.Empty(items)
}

func TestAppealQueuedAndUpheld(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng, st := stubEngine(&stubLayer{})
	orig := seedAction(t, eng, "hide-1", "dave", models.ActionHide, models.SeverityHigh, time.Hour)
	require.NoError(st.HideMessage(ctx, orig.TargetID))

	res, err := eng.ProcessAppeal(ctx, "hide-1", "dave", goodAppeal)
	require.NoError(err)
	assert.Equal(AppealQueued, res.Outcome)

	item, err := eng.GetQueueItem(ctx, res.QueueItemID)
	require.NoError(err)
	assert.Equal(models.QueueKindAppeal, item.Kind)
	assert.Equal(models.PriorityHigh, item.Priority)
	assert.Equal("hide-1", item.ActionID)
	assert.Equal(orig.TargetID, item.ContentID)

	_, err = eng.AssignQueueItem(ctx, item.ID, "mod-1")
	require.NoError(err)
	item, err = eng.ResolveQueueItem(ctx, item.ID, "mod-1", models.ActionRestore, "context checks out")
	require.NoError(err)
	assert.Equal(models.QueueResolved, item.Status)

	active, err := st.GetActiveModerationActions(ctx, "dave", time.Now())
	require.NoError(err)
	assert.Empty(active)
	hidden, err := st.IsHidden(ctx, orig.TargetID)
	require.NoError(err)
	assert.False(hidden)

	_, err = eng.ProcessAppeal(ctx, "hide-1", "dave", goodAppeal)
	assert.ErrorIs(err, ErrInvalidTransition)
}

func TestAppealDeniedByModerator(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng, st := stubEngine(&stubLayer{})
	seedAction(t, eng, "hide-1", "dave", models.ActionHide, models.SeverityHigh, time.Hour)

	res, err := eng.ProcessAppeal(ctx, "hide-1", "dave", goodAppeal)
	require.NoError(err)
	_, err = eng.AssignQueueItem(ctx, res.QueueItemID, "mod-1")
	require.NoError(err)
	_, err = eng.ResolveQueueItem(ctx, res.QueueItemID, "mod-1", models.ActionHide, "stands")
	require.NoError(err)

	active, err := st.GetActiveModerationActions(ctx, "dave", time.Now())
	require.NoError(err)
	assert.Len(active, 1)
}

func TestAppealInvalid(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, _ := stubEngine(&stubLayer{})
	seedAction(t, eng, "warn-1", "alice", models.ActionWarn, models.SeverityLow, time.Hour)
	seedAction(t, eng, "review-1", "alice", models.ActionReview, models.SeverityMedium, time.Hour)

	_, err := eng.ProcessAppeal(ctx, "missing", "alice", goodAppeal)
	assert.ErrorIs(err, ErrNotFound)

	_, err = eng.ProcessAppeal(ctx, "warn-1", "bob", goodAppeal)
	assert.ErrorIs(err, ErrInvalidInput)

	_, err = eng.ProcessAppeal(ctx, "review-1", "alice", goodAppeal)
	assert.ErrorIs(err, ErrInvalidInput)
}
