package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hearthchat/moderation/automod/countstore"
	"github.com/hearthchat/moderation/models"

	"github.com/google/uuid"
)

// Records a user report against another user's content.
//
// A report counts as upheld when, at filing time, the content is already hidden or the target has an enforcement action in force. The reporter's accuracy score is the upheld share of all their reports.
func (eng *Engine) ReportContent(ctx context.Context, reporterID, targetUserID, contentID, reason string) (*models.UserReport, error) {
	if reporterID == "" || targetUserID == "" {
		return nil, fmt.Errorf("%w: reporter and target required", ErrInvalidInput)
	}
	if reporterID == targetUserID {
		return nil, fmt.Errorf("%w: users cannot report themselves", ErrInvalidInput)
	}
	logger := eng.Logger.With("reporter", reporterID, "target", targetUserID, "content", contentID)
	now := eng.now()

	upheld, err := eng.reportUpheld(ctx, targetUserID, contentID, now)
	if err != nil {
		return nil, err
	}
	rep := &models.UserReport{
		ID:           uuid.NewString(),
		ReporterID:   reporterID,
		TargetUserID: targetUserID,
		ContentID:    contentID,
		Reason:       strings.TrimSpace(reason),
		Upheld:       &upheld,
		CreatedAt:    now,
	}
	if err := eng.Store.CreateReport(ctx, rep); err != nil {
		return nil, fmt.Errorf("%w: saving report: %w", ErrPersistence, err)
	}

	if err := eng.Counters.Increment(ctx, countstore.CounterReportsReceived, targetUserID); err != nil {
		return rep, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if err := eng.Counters.Increment(ctx, countstore.CounterReportsMade, reporterID); err != nil {
		return rep, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if _, err := eng.UpdateUserTrustScore(ctx, targetUserID, EventReportReceived); err != nil {
		return rep, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	reports, err := eng.Store.GetReportsByReporter(ctx, reporterID)
	if err != nil {
		return rep, fmt.Errorf("%w: reading reporter history: %w", ErrPersistence, err)
	}
	accuracy, ok := reportAccuracy(reports)
	_, err = eng.mutateTrust(ctx, reporterID, func(ts *models.UserTrustScore, now time.Time) {
		applyTrustEvent(ts, EventReportMade, now)
		if ok {
			ts.ReportAccuracyScore = accuracy
		}
	})
	if err != nil {
		return rep, fmt.Errorf("%w: updating reporter trust: %w", ErrPersistence, err)
	}
	trustEventCount.WithLabelValues(string(EventReportMade)).Inc()
	reportCount.WithLabelValues(fmt.Sprint(upheld)).Inc()
	logger.Info("report filed", "upheld", upheld)
	return rep, nil
}

func (eng *Engine) reportUpheld(ctx context.Context, targetUserID, contentID string, now time.Time) (bool, error) {
	if contentID != "" {
		hidden, err := eng.Store.IsHidden(ctx, contentID)
		if err != nil {
			return false, fmt.Errorf("checking hidden content: %w", err)
		}
		if hidden {
			return true, nil
		}
	}
	active, err := eng.Store.GetActiveModerationActions(ctx, targetUserID, now)
	if err != nil {
		return false, fmt.Errorf("reading active actions: %w", err)
	}
	return len(active) > 0, nil
}

// upheld share of decided reports, scaled to 0-100; false when none are decided
func reportAccuracy(reports []models.UserReport) (float64, bool) {
	decided, upheld := 0, 0
	for _, r := range reports {
		if r.Upheld == nil {
			continue
		}
		decided++
		if *r.Upheld {
			upheld++
		}
	}
	if decided == 0 {
		return 0, false
	}
	return float64(upheld) / float64(decided) * 100, true
}
