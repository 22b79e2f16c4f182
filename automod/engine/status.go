package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/hearthchat/moderation/automod/flagstore"
	"github.com/hearthchat/moderation/models"
)

type ActiveRestriction struct {
	ActionID  string            `json:"actionId"`
	Action    models.ActionKind `json:"action"`
	Severity  models.Severity   `json:"severity"`
	Reason    string            `json:"reason"`
	CreatedAt time.Time         `json:"createdAt"`
	// nil for permanent actions
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// What the transport needs to know before accepting a new post.
type UserModerationStatus struct {
	UserID             string              `json:"userId"`
	IsBanned           bool                `json:"isBanned"`
	IsShadowBanned     bool                `json:"isShadowBanned"`
	IsRestricted       bool                `json:"isRestricted"`
	TrustLevel         models.TrustLevel   `json:"trustLevel"`
	TrustScore         float64             `json:"trustScore"`
	RequiresReview     bool                `json:"requiresReview"`
	MaxDailyMessages   int                 `json:"maxDailyMessages"`
	ActiveRestrictions []ActiveRestriction `json:"activeRestrictions"`
}

func (eng *Engine) CheckUserModerationStatus(ctx context.Context, userID string) (*UserModerationStatus, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user ID", ErrInvalidInput)
	}
	trust, err := eng.GetTrustScore(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reading trust score: %w", err)
	}
	active, err := eng.Store.GetActiveModerationActions(ctx, userID, eng.now())
	if err != nil {
		return nil, fmt.Errorf("reading active actions: %w", err)
	}
	shadow, err := flagstore.HasFlag(ctx, eng.Flags, flagstore.UserKey(userID), flagstore.FlagShadowBan)
	if err != nil {
		return nil, fmt.Errorf("reading user flags: %w", err)
	}

	st := &UserModerationStatus{
		UserID:           userID,
		IsShadowBanned:   shadow,
		TrustLevel:       trust.TrustLevel,
		TrustScore:       trust.OverallTrustScore,
		RequiresReview:   trust.RequiresReview,
		MaxDailyMessages: trust.MaxDailyMessages,
		IsRestricted:     trust.TrustLevel == models.TrustLevelRestricted || trust.TrustLevel == models.TrustLevelSuspended,
	}
	for _, a := range active {
		if a.Action.IsBan() {
			st.IsBanned = true
		}
		st.ActiveRestrictions = append(st.ActiveRestrictions, ActiveRestriction{
			ActionID:  a.ID,
			Action:    a.Action,
			Severity:  a.Severity,
			Reason:    a.Reason,
			CreatedAt: a.CreatedAt,
			ExpiresAt: a.ExpiresAt,
		})
	}
	if st.IsBanned {
		st.MaxDailyMessages = 0
	}
	return st, nil
}

// Shadow-banned users can keep posting; the transport delivers their messages only to themselves.
func (eng *Engine) SetShadowBan(ctx context.Context, userID string, enabled bool) error {
	if userID == "" {
		return fmt.Errorf("%w: empty user ID", ErrInvalidInput)
	}
	key := flagstore.UserKey(userID)
	flags := []string{flagstore.FlagShadowBan}
	if enabled {
		return eng.Flags.Add(ctx, key, flags)
	}
	return eng.Flags.Remove(ctx, key, flags)
}
