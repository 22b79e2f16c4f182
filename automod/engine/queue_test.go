package engine

import (
	"context"
	"testing"
	"time"

	"github.com/hearthchat/moderation/automod/store"
	"github.com/hearthchat/moderation/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var storeFilterAll = store.QueueFilter{}

func TestQueueResolveEnforces(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	layer := &stubLayer{res: maxed}
	eng, st := stubEngine(layer)
	seedTrust(t, eng, "alice", 90)

	dec, err := eng.ModerateContent(ctx, "msg-1", "borderline stuff", "alice", nil)
	require.NoError(err)
	require.Equal(models.ActionReview, dec.Action)
	require.NotEmpty(dec.QueueItemID)

	// must be assigned before it can be resolved
	_, err = eng.ResolveQueueItem(ctx, dec.QueueItemID, "mod-1", models.ActionHide, "")
	assert.ErrorIs(err, ErrInvalidTransition)

	item, err := eng.AssignQueueItem(ctx, dec.QueueItemID, "mod-1")
	require.NoError(err)
	assert.Equal(models.QueueInReview, item.Status)
	assert.Equal("mod-1", item.AssignedTo)
	assert.NotNil(item.AssignedAt)

	_, err = eng.AssignQueueItem(ctx, dec.QueueItemID, "mod-2")
	assert.ErrorIs(err, ErrInvalidTransition)

	item, err = eng.ResolveQueueItem(ctx, dec.QueueItemID, "mod-1", models.ActionHide, "spam")
	require.NoError(err)
	assert.Equal(models.QueueResolved, item.Status)
	assert.Equal(models.ActionHide, item.Resolution)
	assert.Equal("spam", item.ResolutionNotes)
	assert.Equal([]bool{true}, layer.feedback)

	hidden, err := st.IsHidden(ctx, "msg-1")
	require.NoError(err)
	assert.True(hidden)

	active, err := st.GetActiveModerationActions(ctx, "alice", time.Now())
	require.NoError(err)
	require.Len(active, 1)
	assert.Equal(models.ActorHuman, active[0].ActorType)
	assert.Equal("mod-1", active[0].ActorID)
	require.NotNil(active[0].OverridesActionID)
	assert.Equal(dec.ActionID, *active[0].OverridesActionID)

	ts, err := st.GetTrustScore(ctx, "alice")
	require.NoError(err)
	assert.Equal(80.0, ts.OverallTrustScore)

	_, err = eng.ResolveQueueItem(ctx, dec.QueueItemID, "mod-1", models.ActionApprove, "")
	assert.ErrorIs(err, ErrInvalidTransition)
}

func TestQueueApproveClearsAutomatedBan(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	layer := &stubLayer{res: maxed, behaviorRisk: 100, dupSpam: true}
	eng, st := stubEngine(layer)
	seedTrust(t, eng, "bob", 0)

	dec, err := eng.ModerateContent(ctx, "msg-1", "totally legit", "bob", nil)
	require.NoError(err)
	require.Equal(models.ActionPermBan, dec.Action)

	status, err := eng.CheckUserModerationStatus(ctx, "bob")
	require.NoError(err)
	assert.True(status.IsBanned)

	_, err = eng.AssignQueueItem(ctx, dec.QueueItemID, "mod-1")
	require.NoError(err)
	_, err = eng.ResolveQueueItem(ctx, dec.QueueItemID, "mod-1", models.ActionApprove, "false positive")
	require.NoError(err)
	assert.Equal([]bool{false}, layer.feedback)

	status, err = eng.CheckUserModerationStatus(ctx, "bob")
	require.NoError(err)
	assert.False(status.IsBanned)
	hidden, err := st.IsHidden(ctx, "msg-1")
	require.NoError(err)
	assert.False(hidden)
}

func TestQueueOrdering(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	eng, _ := stubEngine(&stubLayer{})
	now := time.Now()
	for i, p := range []models.QueuePriority{models.PriorityMedium, models.PriorityUrgent, models.PriorityHigh, models.PriorityUrgent} {
		require.NoError(eng.Store.CreateQueueItem(ctx, &models.ModerationQueueItem{
			ID:          string(rune('a' + i)),
			Kind:        models.QueueKindContent,
			ContentID:   "msg",
			ContentType: models.TargetMessage,
			Priority:    p,
			Severity:    models.SeverityMedium,
			Status:      models.QueuePending,
			CreatedAt:   now.Add(time.Duration(i) * time.Second),
		}))
	}
	items, err := eng.ListQueue(ctx, store.QueueFilter{Status: models.QueuePending})
	require.NoError(err)
	var ids []string
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	assert.Equal([]string{"b", "d", "c", "a"}, ids)

	_, err = eng.GetQueueItem(ctx, "zzz")
	assert.ErrorIs(err, ErrNotFound)
}
