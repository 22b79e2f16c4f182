package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hearthchat/moderation/automod/helpers"
	"github.com/hearthchat/moderation/models"
)

type TrustEvent string

const (
	EventMessagePosted  TrustEvent = "message_posted"
	EventReportReceived TrustEvent = "report_received"
	EventReportMade     TrustEvent = "report_made"
	EventWarn           TrustEvent = "warn"
	EventHide           TrustEvent = "hide"
	EventTempBan        TrustEvent = "temp_ban"
	EventPermBan        TrustEvent = "perm_ban"
)

// Starting point for every user.
var NeutralTrustScore = 50.0

// Trust event for an enforcement action; false for actions that carry no trust consequence.
func TrustEventForAction(a models.ActionKind) (TrustEvent, bool) {
	switch a {
	case models.ActionWarn:
		return EventWarn, true
	case models.ActionHide, models.ActionDelete:
		return EventHide, true
	case models.ActionTempBan:
		return EventTempBan, true
	case models.ActionPermBan:
		return EventPermBan, true
	}
	return "", false
}

// Trust level purely from score and offense counters. Severe repeat offenders are restricted regardless of score.
func DeriveTrustLevel(overall float64, tempBans, warnings int64) models.TrustLevel {
	if tempBans > 3 || warnings > 10 {
		return models.TrustLevelRestricted
	}
	switch {
	case overall >= 85:
		return models.TrustLevelVeteran
	case overall >= 70:
		return models.TrustLevelTrusted
	case overall >= 55:
		return models.TrustLevelBasic
	case overall >= 30:
		return models.TrustLevelNew
	case overall >= 15:
		return models.TrustLevelRestricted
	default:
		return models.TrustLevelSuspended
	}
}

func MaxDailyMessagesFor(level models.TrustLevel) int {
	switch level {
	case models.TrustLevelVeteran:
		return 1000
	case models.TrustLevelTrusted:
		return 500
	case models.TrustLevelBasic:
		return 200
	case models.TrustLevelNew:
		return 50
	case models.TrustLevelRestricted:
		return 10
	default:
		return 0
	}
}

func NewTrustScore(userID string, now time.Time) *models.UserTrustScore {
	ts := &models.UserTrustScore{
		UserID:              userID,
		OverallTrustScore:   NeutralTrustScore,
		ContentQualityScore: NeutralTrustScore,
		EngagementScore:     NeutralTrustScore,
		ReportAccuracyScore: NeutralTrustScore,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	refreshDerived(ts, now)
	return ts
}

// recomputes every field derived from the score and counters
func refreshDerived(ts *models.UserTrustScore, now time.Time) {
	ts.OverallTrustScore = helpers.ClampScore(ts.OverallTrustScore)
	ts.ContentQualityScore = helpers.ClampScore(ts.ContentQualityScore)
	ts.EngagementScore = helpers.ClampScore(ts.EngagementScore)
	ts.ReportAccuracyScore = helpers.ClampScore(ts.ReportAccuracyScore)
	ts.TrustLevel = DeriveTrustLevel(ts.OverallTrustScore, ts.TempBansCount, ts.WarningsCount)
	ts.MaxDailyMessages = MaxDailyMessagesFor(ts.TrustLevel)
	since := ts.CreatedAt
	if ts.LastViolationAt != nil {
		since = *ts.LastViolationAt
	}
	ts.DaysWithoutViolation = max(0, int64(now.Sub(since)/(24*time.Hour)))
}

// Reads a user's trust record, or neutral defaults when none exists yet. Nothing is written.
func (eng *Engine) GetTrustScore(ctx context.Context, userID string) (*models.UserTrustScore, error) {
	ts, err := eng.Store.GetTrustScore(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return NewTrustScore(userID, eng.now()), nil
	} else if err != nil {
		return nil, err
	}
	return ts, nil
}

// read-modify-write of one user's trust record, serialized per user; the record is created on first use
func (eng *Engine) mutateTrust(ctx context.Context, userID string, fn func(ts *models.UserTrustScore, now time.Time)) (*models.UserTrustScore, error) {
	unlock := eng.lockTrust(userID)
	defer unlock()

	ts, err := eng.GetTrustScore(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := eng.now()
	fn(ts, now)
	refreshDerived(ts, now)
	ts.UpdatedAt = now
	if err := eng.Store.SaveTrustScore(ctx, ts); err != nil {
		return nil, err
	}
	return ts, nil
}

// Applies one event's deltas to the user's trust record. Level and limits are then recomputed from the updated numbers, never from the event type.
func (eng *Engine) UpdateUserTrustScore(ctx context.Context, userID string, event TrustEvent) (*models.UserTrustScore, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user ID", ErrInvalidInput)
	}
	ts, err := eng.mutateTrust(ctx, userID, func(ts *models.UserTrustScore, now time.Time) {
		applyTrustEvent(ts, event, now)
	})
	if err != nil {
		return nil, fmt.Errorf("updating trust score for %s: %w", userID, err)
	}
	trustEventCount.WithLabelValues(string(event)).Inc()
	return ts, nil
}

func applyTrustEvent(ts *models.UserTrustScore, event TrustEvent, now time.Time) {
	violation := func() {
		ts.LastViolationAt = &now
	}
	switch event {
	case EventMessagePosted:
		ts.MessagesCount++
	case EventReportReceived:
		ts.ReportsReceived++
		ts.OverallTrustScore -= 2
		ts.ContentQualityScore -= 3
	case EventReportMade:
		ts.ReportsMade++
	case EventWarn:
		ts.WarningsCount++
		ts.OverallTrustScore -= 5
		violation()
	case EventHide:
		ts.OverallTrustScore -= 10
		ts.ContentQualityScore -= 5
		violation()
	case EventTempBan:
		ts.TempBansCount++
		ts.OverallTrustScore -= 15
		ts.RequiresReview = true
		violation()
	case EventPermBan:
		ts.OverallTrustScore -= 30
		ts.RequiresReview = true
		violation()
	}
}
