package engine

import (
	"context"
	"time"

	"github.com/hearthchat/moderation/automod/periodic"
)

var ExpireActionsInterval = 10 * time.Minute

// Marks timed actions whose expiry has passed.
func (eng *Engine) ExpireModerationActions(ctx context.Context) error {
	n, err := eng.Store.ExpireModerationActions(ctx, eng.now())
	if err != nil {
		return err
	}
	if n > 0 {
		eng.Logger.Info("expired moderation actions", "count", n)
		actionsExpiredCount.Add(float64(n))
	}
	return nil
}

// Supervised background tasks for the engine.
func (eng *Engine) Tasks() []periodic.Task {
	return []periodic.Task{
		{
			Name:       "expire-actions",
			Interval:   ExpireActionsInterval,
			Run:        eng.ExpireModerationActions,
			MaxRetries: 3,
		},
	}
}
