package analyzer

import (
	"github.com/hearthchat/moderation/automod/helpers"
	"github.com/hearthchat/moderation/models"
)

// Content-only risk level cut-offs. Shared with the behavioral layer, which re-fuses scores on the same scale.
var (
	RiskCriticalThreshold = 70.0
	RiskHighThreshold     = 45.0
	RiskMediumThreshold   = 15.0
)

// The analyzer's own, context-light assessment. Advisory only: the decision engine fuses its own score.
func fuseContentRisk(res *Result, actx *Context) float64 {
	risk := res.Toxicity*0.4 + res.Scam*0.3 + res.Spam*0.2 + res.Promotional*0.1
	if actx.Room == "work" && res.Promotional > 30 {
		risk += 20
	}
	if actx.TrustScore != nil && *actx.TrustScore < 30 {
		risk += 15
	}
	if actx.FirstMessage {
		risk += 10
	}
	return helpers.ClampScore(risk)
}

func LevelForScore(score float64) models.Severity {
	switch {
	case score >= RiskCriticalThreshold:
		return models.SeverityCritical
	case score >= RiskHighThreshold:
		return models.SeverityHigh
	case score >= RiskMediumThreshold:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// Advisory action per risk level. Critical content is escalated to humans rather than banned on content alone.
func ActionForLevel(level models.Severity) models.ActionKind {
	switch level {
	case models.SeverityCritical:
		return models.ActionReview
	case models.SeverityHigh:
		return models.ActionHide
	case models.SeverityMedium:
		return models.ActionWarn
	default:
		return models.ActionApprove
	}
}
