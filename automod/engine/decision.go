package engine

import (
	"time"

	"github.com/hearthchat/moderation/models"
)

// Decision thresholds on the fused risk score, checked in descending order.
var (
	PermBanThreshold = 85.0
	HideThreshold    = 70.0
	ReviewThreshold  = 50.0
	WarnThreshold    = 30.0
	// at the hide threshold, this many recent violations escalates to a temporary ban
	TempBanViolations = 3
	TempBanDuration   = 24 * time.Hour
	// window for counting recent violations
	RecentViolationWindow = 7 * 24 * time.Hour
	// accounts younger than this get the first-message bump
	NewAccountAge = 24 * time.Hour
)

// Optional request context from the transport. A nil *ModerationContext is treated as empty.
type ModerationContext struct {
	Room string
	// BCP 47 tag; defaults to "en"
	Language string
	// zero when the transport does not know; the moderation core then uses when it first saw the author
	AccountCreatedAt time.Time
	// set by the transport when it knows this is the author's first message
	FirstMessage bool
}

// The verdict for one message.
type Decision struct {
	ContentID           string            `json:"contentId"`
	AuthorID            string            `json:"authorId"`
	Action              models.ActionKind `json:"action"`
	Severity            models.Severity   `json:"severity"`
	RiskScore           float64           `json:"riskScore"`
	Confidence          float64           `json:"confidence"`
	Reasons             []string          `json:"reasons"`
	RequiresHumanReview bool              `json:"requiresHumanReview"`
	Evidence            models.Evidence   `json:"evidence"`
	// expiry of a timed action
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`

	AnalysisID  string `json:"analysisId,omitempty"`
	ActionID    string `json:"actionId,omitempty"`
	QueueItemID string `json:"queueItemId,omitempty"`
	// set when analysis failed and the safe default was used
	Fallback bool `json:"fallback"`
}

// Inputs to risk fusion, gathered from the enriched analysis and the author's record.
type RiskInputs struct {
	Toxicity         float64
	Spam             float64
	Scam             float64
	Promotional      float64
	TrustScore       float64
	UserBehaviorRisk float64
	RecentViolations int
	// duplicate of content in a spam cluster
	DuplicateInSpamCluster bool
	// first message from an account younger than NewAccountAge
	NewAccountFirstMessage bool
}

func TrustPenalty(trust float64) float64 {
	return max(0, (50-trust)*0.6)
}

// Weighted sum of content scores and user factors plus additive bumps. Not capped: bumps can push it past 100.
func FuseRisk(in RiskInputs) float64 {
	risk := in.Toxicity*0.25 +
		in.Spam*0.15 +
		in.Scam*0.15 +
		in.Promotional*0.05 +
		TrustPenalty(in.TrustScore)*0.3 +
		in.UserBehaviorRisk*0.1
	risk += 5 * float64(in.RecentViolations)
	if in.DuplicateInSpamCluster {
		risk += 20
	}
	if in.NewAccountFirstMessage {
		risk += 10
	}
	return risk
}

// Maps a fused risk score to an action, its severity, and whether a human must review it.
func SelectAction(risk float64, recentViolations int) (models.ActionKind, models.Severity, bool) {
	switch {
	case risk >= PermBanThreshold:
		return models.ActionPermBan, models.SeverityCritical, true
	case risk >= HideThreshold:
		if recentViolations >= TempBanViolations {
			return models.ActionTempBan, models.SeverityHigh, false
		}
		return models.ActionHide, models.SeverityHigh, false
	case risk >= ReviewThreshold:
		return models.ActionReview, models.SeverityMedium, true
	case risk >= WarnThreshold:
		return models.ActionWarn, models.SeverityLow, false
	default:
		return models.ActionApprove, models.SeverityLow, false
	}
}

// Higher risk means lower confidence, floored at zero.
func ConfidenceFor(risk float64) float64 {
	return max(0, 100-risk*0.5)
}

func PriorityFor(sev models.Severity) models.QueuePriority {
	switch sev {
	case models.SeverityCritical:
		return models.PriorityUrgent
	case models.SeverityHigh:
		return models.PriorityHigh
	default:
		return models.PriorityMedium
	}
}

// Duration of a timed action; zero for everything else.
func DurationFor(action models.ActionKind) time.Duration {
	if action == models.ActionTempBan {
		return TempBanDuration
	}
	return 0
}
