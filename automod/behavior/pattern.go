package behavior

import (
	"context"
	"fmt"
	"time"

	"github.com/hearthchat/moderation/automod/countstore"
	"github.com/hearthchat/moderation/automod/helpers"
	"github.com/hearthchat/moderation/models"
)

type TrustTrend string

const (
	TrendImproving TrustTrend = "improving"
	TrendStable    TrustTrend = "stable"
	TrendDeclining TrustTrend = "declining"
)

// Flag weights and thresholds for user behavior risk.
var (
	RapidPostingWeight      = 25.0
	RepetitiveContentWeight = 30.0
	HighReportRatioWeight   = 35.0
	NegativeSentimentWeight = 20.0

	RapidPostingPerHour   = 30
	MinVarietyHistory     = 5
	LowVarietyRatio       = 0.5
	HighLinkRatio         = 0.5
	MinReportsForRatio    = 3
	HighReportRatio       = 0.1
	MinSentimentHistory   = 3
	NegativeSentimentMean = 30.0
	TrendDelta            = 10.0

	// how many past analyses a pattern is built from
	PatternHistoryLimit = 50
)

// Derived per-user snapshot. Cached with a TTL; never written to durable storage.
type UserBehaviorPattern struct {
	UserID string `json:"userId"`
	// messages in the current hour
	MessageFrequency float64 `json:"messageFrequency"`
	// reports received per message posted, all time
	ReportFrequency  float64 `json:"reportFrequency"`
	AverageSentiment float64 `json:"averageSentiment"`
	// distinct content hashes over recent messages, 0-1
	ContentVariety float64 `json:"contentVariety"`
	LinkRatio      float64 `json:"linkRatio"`
	// 100 minus the mean of each message's worst toxicity/spam score
	EngagementQuality float64 `json:"engagementQuality"`

	RapidPosting      bool `json:"rapidPosting"`
	RepetitiveContent bool `json:"repetitiveContent"`
	HighReportRatio   bool `json:"highReportRatio"`
	NegativeSentiment bool `json:"negativeSentiment"`

	RiskScore  float64    `json:"riskScore"`
	TrustTrend TrustTrend `json:"trustTrend"`
	ComputedAt time.Time  `json:"computedAt"`
}

// Names of the active suspicious-activity flags, for evidence and logs.
func (p *UserBehaviorPattern) Flags() []string {
	var out []string
	if p.RapidPosting {
		out = append(out, "behavior:rapid-posting")
	}
	if p.RepetitiveContent {
		out = append(out, "behavior:repetitive-content")
	}
	if p.HighReportRatio {
		out = append(out, "behavior:high-report-ratio")
	}
	if p.NegativeSentiment {
		out = append(out, "behavior:negative-sentiment")
	}
	return out
}

// Read-only view of a user's moderation history, satisfied by the store.
type HistorySource interface {
	RecentAnalysesForUser(ctx context.Context, userID string, limit int) ([]models.ModerationAnalysis, error)
	GetAnalysis(ctx context.Context, id string) (*models.ModerationAnalysis, error)
}

func buildPattern(ctx context.Context, counters countstore.CountStore, history HistorySource, userID string, trust float64, now time.Time) (*UserBehaviorPattern, error) {
	p := UserBehaviorPattern{
		UserID:           userID,
		AverageSentiment: 50,
		ContentVariety:   1,
		TrustTrend:       TrendStable,
		ComputedAt:       now,
	}

	hourly, err := counters.GetCount(ctx, countstore.CounterMessages, userID, countstore.PeriodHour)
	if err != nil {
		return nil, fmt.Errorf("reading message counter: %w", err)
	}
	total, err := counters.GetCount(ctx, countstore.CounterMessages, userID, countstore.PeriodTotal)
	if err != nil {
		return nil, fmt.Errorf("reading message counter: %w", err)
	}
	reports, err := counters.GetCount(ctx, countstore.CounterReportsReceived, userID, countstore.PeriodTotal)
	if err != nil {
		return nil, fmt.Errorf("reading report counter: %w", err)
	}
	p.MessageFrequency = float64(hourly)
	if total > 0 {
		p.ReportFrequency = float64(reports) / float64(total)
	} else if reports > 0 {
		p.ReportFrequency = float64(reports)
	}

	var recent []models.ModerationAnalysis
	if history != nil {
		recent, err = history.RecentAnalysesForUser(ctx, userID, PatternHistoryLimit)
		if err != nil {
			return nil, fmt.Errorf("reading analysis history: %w", err)
		}
	}
	if len(recent) > 0 {
		sentiment, worst, withLinks := 0.0, 0.0, 0
		hashes := map[string]bool{}
		for _, a := range recent {
			sentiment += a.SentimentScore
			worst += max(a.ToxicityScore, a.SpamScore)
			if a.URLCount > 0 {
				withLinks++
			}
			hashes[a.ContentHash] = true
		}
		n := float64(len(recent))
		p.AverageSentiment = sentiment / n
		p.EngagementQuality = helpers.ClampScore(100 - worst/n)
		p.ContentVariety = float64(len(hashes)) / n
		p.LinkRatio = float64(withLinks) / n
		p.TrustTrend = sentimentTrend(recent)
	} else {
		p.EngagementQuality = 100
	}

	p.RapidPosting = hourly > RapidPostingPerHour
	p.RepetitiveContent = len(recent) >= MinVarietyHistory && (p.ContentVariety < LowVarietyRatio || p.LinkRatio > HighLinkRatio)
	p.HighReportRatio = reports >= MinReportsForRatio && p.ReportFrequency > HighReportRatio
	p.NegativeSentiment = len(recent) >= MinSentimentHistory && p.AverageSentiment < NegativeSentimentMean

	p.RiskScore = behaviorRisk(&p, trust)
	return &p, nil
}

// weighted sum of active flags, discounted by half the trust score
func behaviorRisk(p *UserBehaviorPattern, trust float64) float64 {
	risk := 0.0
	if p.RapidPosting {
		risk += RapidPostingWeight
	}
	if p.RepetitiveContent {
		risk += RepetitiveContentWeight
	}
	if p.HighReportRatio {
		risk += HighReportRatioWeight
	}
	if p.NegativeSentiment {
		risk += NegativeSentimentWeight
	}
	return helpers.ClampScore(risk - trust/2)
}

// compares mean sentiment of the newer half of history (which comes newest first) against the older half
func sentimentTrend(recent []models.ModerationAnalysis) TrustTrend {
	if len(recent) < 4 {
		return TrendStable
	}
	half := len(recent) / 2
	mean := func(l []models.ModerationAnalysis) float64 {
		s := 0.0
		for _, a := range l {
			s += a.SentimentScore
		}
		return s / float64(len(l))
	}
	delta := mean(recent[:half]) - mean(recent[half:])
	switch {
	case delta > TrendDelta:
		return TrendImproving
	case delta < -TrendDelta:
		return TrendDeclining
	default:
		return TrendStable
	}
}
