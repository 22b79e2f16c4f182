package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hearthchat/moderation/automod/analyzer"
	"github.com/hearthchat/moderation/automod/behavior"
	"github.com/hearthchat/moderation/automod/countstore"
	"github.com/hearthchat/moderation/automod/flagstore"
	"github.com/hearthchat/moderation/models"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/panics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// counter for the automated perm ban circuit breaker
const quotaCounter = "automod-quota"

// Scores one message and records the outcome. The sole synchronous entry point at message-post time.
//
// Invalid input is returned as ErrInvalidInput. Analysis failures and panics never surface: they produce a queued review decision instead. If the store fails after the decision was made, the decision is returned together with an error wrapping ErrPersistence.
func (eng *Engine) ModerateContent(ctx context.Context, contentID, text, authorID string, mctx *ModerationContext) (dec *Decision, err error) {
	ctx, span := otel.Tracer("moderation").Start(ctx, "ModerateContent")
	defer span.End()
	start := time.Now()

	if mctx == nil {
		mctx = &ModerationContext{}
	}
	if contentID == "" || authorID == "" {
		return nil, fmt.Errorf("%w: missing content or author ID", ErrInvalidInput)
	}
	if strings.TrimSpace(text) == "" || !utf8.ValidString(text) {
		return nil, fmt.Errorf("%w: empty or malformed text", ErrInvalidInput)
	}
	logger := eng.Logger.With("content", contentID, "author", authorID, "room", mctx.Room)

	// similar to an HTTP server, we want to recover any panics from decision logic. the message still goes to the review queue
	defer func() {
		if r := recover(); r != nil {
			logger.Error("moderation decision exception", "err", r)
			fallbackCount.WithLabelValues("panic").Inc()
			dec = eng.fallbackDecision(contentID, authorID, "internal-error")
			err = nil
			if rec := panics.Try(func() { err = eng.persistDecision(ctx, logger, dec, nil, mctx) }); rec != nil {
				err = rec.AsError()
			}
			eng.CanonicalLogLine(logger, dec)
			if err != nil {
				logger.Error("failed to persist fallback decision", "err", err)
				err = fmt.Errorf("%w: %w", ErrPersistence, err)
			}
		}
	}()

	dec, enriched := eng.evaluate(ctx, logger, contentID, text, authorID, mctx)
	span.SetAttributes(
		attribute.String("action", string(dec.Action)),
		attribute.Float64("risk", dec.RiskScore),
		attribute.Bool("fallback", dec.Fallback),
	)

	perr := eng.persistDecision(ctx, logger, dec, enriched, mctx)
	eng.CanonicalLogLine(logger, dec)
	decisionCount.WithLabelValues(string(dec.Action)).Inc()
	decisionDuration.WithLabelValues(string(dec.Action)).Observe(time.Since(start).Seconds())
	if perr != nil {
		span.RecordError(perr)
		return dec, fmt.Errorf("%w: %w", ErrPersistence, perr)
	}
	return dec, nil
}

// computes the decision; every failure here ends in the fallback decision
func (eng *Engine) evaluate(ctx context.Context, logger *slog.Logger, contentID, text, authorID string, mctx *ModerationContext) (*Decision, *behavior.EnrichedAnalysis) {
	now := eng.now()
	trust, err := eng.GetTrustScore(ctx, authorID)
	if err != nil {
		logger.Error("failed to read trust score", "err", err)
		fallbackCount.WithLabelValues("store").Inc()
		return eng.fallbackDecision(contentID, authorID, "trust-unavailable"), nil
	}
	violations, err := eng.recentViolations(ctx, authorID, now)
	if err != nil {
		logger.Error("failed to read moderation history", "err", err)
		fallbackCount.WithLabelValues("store").Inc()
		return eng.fallbackDecision(contentID, authorID, "history-unavailable"), nil
	}

	first := mctx.FirstMessage || trust.MessagesCount == 0
	trustScore := trust.OverallTrustScore
	enriched, err := eng.analyze(ctx, text, authorID, mctx, &analyzer.Context{
		Room:         mctx.Room,
		TrustScore:   &trustScore,
		FirstMessage: first,
	})
	if err != nil {
		logger.Error("content analysis failed", "err", err)
		reason := "analysis-failed"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "analysis-timeout"
		}
		fallbackCount.WithLabelValues(reason).Inc()
		return eng.fallbackDecision(contentID, authorID, reason), nil
	}

	accountCreated := mctx.AccountCreatedAt
	if accountCreated.IsZero() {
		accountCreated = trust.CreatedAt
	}
	res := enriched.Content
	in := RiskInputs{
		Toxicity:               res.Toxicity,
		Spam:                   res.Spam,
		Scam:                   res.Scam,
		Promotional:            res.Promotional,
		TrustScore:             trust.OverallTrustScore,
		UserBehaviorRisk:       enriched.UserBehaviorRisk,
		RecentViolations:       violations,
		DuplicateInSpamCluster: enriched.DuplicateInSpamCluster,
		NewAccountFirstMessage: first && now.Sub(accountCreated) < NewAccountAge,
	}
	risk := FuseRisk(in)
	action, severity, review := SelectAction(risk, violations)

	reasons := append([]string(nil), res.FlaggedPatterns...)
	if violations > 0 {
		reasons = append(reasons, fmt.Sprintf("recent-violations:%d", violations))
	}
	if in.NewAccountFirstMessage {
		reasons = append(reasons, "new-account-first-message")
	}
	if TrustPenalty(in.TrustScore) > 0 {
		reasons = append(reasons, "low-trust")
	}

	if action == models.ActionPermBan {
		ok, err := eng.permBanQuotaAvailable(ctx)
		if err != nil {
			logger.Error("failed to read perm ban quota", "err", err)
		}
		if !ok {
			logger.Warn("CIRCUIT BREAKER: automated perm bans")
			action = models.ActionReview
			reasons = append(reasons, "perm-ban-quota-exceeded")
		}
	}

	dec := &Decision{
		ContentID:           contentID,
		AuthorID:            authorID,
		Action:              action,
		Severity:            severity,
		RiskScore:           risk,
		Confidence:          ConfidenceFor(risk),
		Reasons:             reasons,
		RequiresHumanReview: review,
		Evidence: models.Evidence{
			ToxicityScore:    res.Toxicity,
			SpamScore:        res.Spam,
			ScamScore:        res.Scam,
			PromotionalScore: res.Promotional,
			SentimentScore:   res.Sentiment,
			UserBehaviorRisk: enriched.UserBehaviorRisk,
			RiskScore:        risk,
			TrustScore:       trust.OverallTrustScore,
			RecentViolations: violations,
			Duplicate:        enriched.Cluster.Duplicate,
			FlaggedPatterns:  res.FlaggedPatterns,
		},
	}
	if d := DurationFor(action); d > 0 {
		exp := now.Add(d)
		dec.ExpiresAt = &exp
	}
	return dec, enriched
}

// runs the behavioral layer under AnalysisTimeout, converting panics and expiry into ErrAnalysisFailure
func (eng *Engine) analyze(ctx context.Context, text, authorID string, mctx *ModerationContext, actx *analyzer.Context) (*behavior.EnrichedAnalysis, error) {
	ctx, cancel := context.WithTimeout(ctx, AnalysisTimeout)
	defer cancel()

	language := mctx.Language
	if language == "" {
		language = "en"
	}

	type outcome struct {
		enriched *behavior.EnrichedAnalysis
		err      error
	}
	done := make(chan outcome, 1)
	go func() {
		var o outcome
		if r := panics.Try(func() {
			o.enriched, o.err = eng.Layer.AnalyzeAdvanced(ctx, text, authorID, language, actx)
		}); r != nil {
			o.err = r.AsError()
		}
		done <- o
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return nil, fmt.Errorf("%w: %w", ErrAnalysisFailure, o.err)
		}
		if o.enriched == nil || o.enriched.Content == nil {
			return nil, fmt.Errorf("%w: layer returned no content scores", ErrAnalysisFailure)
		}
		return o.enriched, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrAnalysisFailure, ctx.Err())
	}
}

// The safe default when a message cannot be scored: queued for a human, never approved.
func (eng *Engine) fallbackDecision(contentID, authorID, reason string) *Decision {
	return &Decision{
		ContentID:           contentID,
		AuthorID:            authorID,
		Action:              models.ActionReview,
		Severity:            models.SeverityMedium,
		Confidence:          0,
		Reasons:             []string{reason},
		RequiresHumanReview: true,
		Evidence: models.Evidence{
			SentimentScore: 50,
			TrustScore:     NeutralTrustScore,
		},
		Fallback: true,
	}
}

// violation actions against the user inside the window, ignoring any a later action overrode
func (eng *Engine) recentViolations(ctx context.Context, userID string, now time.Time) (int, error) {
	acts, err := eng.Store.GetModerationActionsForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	overridden := map[string]bool{}
	for _, a := range acts {
		if a.OverridesActionID != nil {
			overridden[*a.OverridesActionID] = true
		}
	}
	n := 0
	for _, a := range acts {
		if a.Action.IsViolation() && !overridden[a.ID] && now.Sub(a.CreatedAt) < RecentViolationWindow {
			n++
		}
	}
	return n, nil
}

func (eng *Engine) permBanQuotaAvailable(ctx context.Context) (bool, error) {
	c, err := eng.Counters.GetCount(ctx, quotaCounter, string(models.ActionPermBan), countstore.PeriodDay)
	if err != nil {
		// without the counter, stay on the safe side
		return false, err
	}
	return c < QuotaPermBanDay, nil
}

// Writes the analysis, any action and queue item, side effects, counters and trust updates. Keeps going past failures and returns them joined.
func (eng *Engine) persistDecision(ctx context.Context, logger *slog.Logger, dec *Decision, enriched *behavior.EnrichedAnalysis, mctx *ModerationContext) error {
	now := eng.now()
	var errs []error

	analysis := analysisRecord(dec, enriched, mctx, now)
	if err := eng.Store.CreateAnalysis(ctx, analysis); err != nil {
		errs = append(errs, fmt.Errorf("saving analysis: %w", err))
	} else {
		dec.AnalysisID = analysis.ID
	}
	if enriched != nil {
		sim := enriched.Similarity
		if err := eng.Store.CreateSimilarity(ctx, &models.ContentSimilarity{
			ID:              uuid.NewString(),
			ContentID:       dec.ContentID,
			AuthorID:        dec.AuthorID,
			ContentHash:     sim.ContentHash,
			SemanticHash:    sim.SemanticHash,
			WordCount:       sim.WordCount,
			UniqueWordRatio: sim.UniqueWordRatio,
			UppercaseRatio:  sim.UppercaseRatio,
			URLCount:        sim.URLCount,
			SimilarityScore: enriched.Cluster.Similarity,
			ClusterID:       enriched.Cluster.ClusterID,
			CreatedAt:       now,
		}); err != nil {
			errs = append(errs, fmt.Errorf("saving similarity: %w", err))
		}
	}

	if dec.Action != models.ActionApprove {
		act := &models.ModerationAction{
			ID:                  uuid.NewString(),
			TargetID:            dec.ContentID,
			TargetType:          models.TargetMessage,
			TargetUserID:        dec.AuthorID,
			ActorType:           models.ActorAutomated,
			Action:              dec.Action,
			Severity:            dec.Severity,
			DurationSeconds:     int64(DurationFor(dec.Action) / time.Second),
			ExpiresAt:           dec.ExpiresAt,
			Reason:              strings.Join(dec.Reasons, ", "),
			Evidence:            dec.Evidence,
			RequiresHumanReview: dec.RequiresHumanReview,
			AnalysisID:          dec.AnalysisID,
			CreatedAt:           now,
		}
		if err := eng.Store.CreateModerationAction(ctx, act); err != nil {
			errs = append(errs, fmt.Errorf("saving action: %w", err))
		} else {
			dec.ActionID = act.ID
			actionNewCount.WithLabelValues(string(act.Action)).Inc()
		}
		if err := eng.applySideEffect(ctx, dec); err != nil {
			errs = append(errs, err)
		}
		if dec.RequiresHumanReview {
			item := &models.ModerationQueueItem{
				ID:          uuid.NewString(),
				Kind:        models.QueueKindContent,
				ContentID:   dec.ContentID,
				ContentType: models.TargetMessage,
				AuthorID:    dec.AuthorID,
				ActionID:    dec.ActionID,
				AnalysisID:  dec.AnalysisID,
				Priority:    PriorityFor(dec.Severity),
				Severity:    dec.Severity,
				Reasons:     dec.Reasons,
				Status:      models.QueuePending,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := eng.Store.CreateQueueItem(ctx, item); err != nil {
				errs = append(errs, fmt.Errorf("enqueueing review: %w", err))
			} else {
				dec.QueueItemID = item.ID
				queueItemCount.WithLabelValues(string(item.Kind), string(item.Priority)).Inc()
			}
		}
		if err := eng.Counters.Increment(ctx, countstore.CounterAutomatedActions, string(dec.Action)); err != nil {
			errs = append(errs, err)
		}
		if dec.Action == models.ActionPermBan {
			if err := eng.Counters.Increment(ctx, quotaCounter, string(models.ActionPermBan)); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if err := eng.Counters.Increment(ctx, countstore.CounterMessages, dec.AuthorID); err != nil {
		errs = append(errs, err)
	}
	if _, err := eng.UpdateUserTrustScore(ctx, dec.AuthorID, EventMessagePosted); err != nil {
		errs = append(errs, err)
	}
	if ev, ok := TrustEventForAction(dec.Action); ok {
		if _, err := eng.UpdateUserTrustScore(ctx, dec.AuthorID, ev); err != nil {
			errs = append(errs, err)
		}
	}

	if dec.Severity == models.SeverityCritical && eng.Notifier != nil {
		if err := eng.Notifier.SendDecision(ctx, dec); err != nil {
			// alerts are best-effort and never fail the decision
			logger.Error("failed to send decision notification", "err", err)
		}
	}
	return errors.Join(errs...)
}

// hides the content for hide and ban actions; account-level ban enforcement belongs to the identity service
func (eng *Engine) applySideEffect(ctx context.Context, dec *Decision) error {
	switch dec.Action {
	case models.ActionHide, models.ActionDelete, models.ActionTempBan, models.ActionPermBan:
	default:
		return nil
	}
	if err := eng.Store.HideMessage(ctx, dec.ContentID); err != nil {
		return fmt.Errorf("hiding message: %w", err)
	}
	if err := eng.Flags.Add(ctx, flagstore.ContentKey(dec.ContentID), []string{flagstore.FlagHidden}); err != nil {
		return fmt.Errorf("flagging hidden message: %w", err)
	}
	return nil
}

func analysisRecord(dec *Decision, enriched *behavior.EnrichedAnalysis, mctx *ModerationContext, now time.Time) *models.ModerationAnalysis {
	a := &models.ModerationAnalysis{
		ID:                uuid.NewString(),
		ContentID:         dec.ContentID,
		AuthorID:          dec.AuthorID,
		Room:              mctx.Room,
		SentimentScore:    dec.Evidence.SentimentScore,
		RiskScore:         dec.RiskScore,
		RiskLevel:         string(dec.Severity),
		RecommendedAction: string(dec.Action),
		Fallback:          dec.Fallback,
		CreatedAt:         now,
	}
	if enriched == nil {
		return a
	}
	res := enriched.Content
	a.ToxicityScore = res.Toxicity
	a.SpamScore = res.Spam
	a.ScamScore = res.Scam
	a.PromotionalScore = res.Promotional
	a.UserBehaviorRisk = enriched.UserBehaviorRisk
	a.Languages = res.Languages
	a.FlaggedPatterns = res.FlaggedPatterns
	a.URLs = res.URLs
	a.SemanticCategories = res.Semantic
	a.ContentHash = enriched.Similarity.ContentHash
	a.URLCount = enriched.Similarity.URLCount
	a.AnalyzerVersion = res.Version
	a.ProcessingTimeMs = res.ProcessingTime.Milliseconds()
	return a
}

// One structured line per decision, for log-based analysis.
func (eng *Engine) CanonicalLogLine(logger *slog.Logger, dec *Decision) {
	logger.Info("canonical-decision-line",
		"action", dec.Action,
		"severity", dec.Severity,
		"risk", dec.RiskScore,
		"confidence", dec.Confidence,
		"review", dec.RequiresHumanReview,
		"fallback", dec.Fallback,
		"reasons", dec.Reasons,
		"queueItem", dec.QueueItemID,
	)
}
