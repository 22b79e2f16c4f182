package engine

import (
	"testing"
	"time"

	"github.com/hearthchat/moderation/models"

	"github.com/stretchr/testify/assert"
)

func TestSelectAction(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		risk       float64
		violations int
		action     models.ActionKind
		severity   models.Severity
		review     bool
	}{
		{risk: 120, action: models.ActionPermBan, severity: models.SeverityCritical, review: true},
		{risk: 85, action: models.ActionPermBan, severity: models.SeverityCritical, review: true},
		{risk: 84.9, action: models.ActionHide, severity: models.SeverityHigh},
		{risk: 84.9, violations: 3, action: models.ActionTempBan, severity: models.SeverityHigh},
		{risk: 70, violations: 2, action: models.ActionHide, severity: models.SeverityHigh},
		{risk: 69.9, violations: 5, action: models.ActionReview, severity: models.SeverityMedium, review: true},
		{risk: 50, action: models.ActionReview, severity: models.SeverityMedium, review: true},
		{risk: 49.9, action: models.ActionWarn, severity: models.SeverityLow},
		{risk: 30, action: models.ActionWarn, severity: models.SeverityLow},
		{risk: 29.9, action: models.ActionApprove, severity: models.SeverityLow},
		{risk: 0, action: models.ActionApprove, severity: models.SeverityLow},
	}
	for _, fix := range fixtures {
		action, sev, review := SelectAction(fix.risk, fix.violations)
		assert.Equal(fix.action, action, fix.risk)
		assert.Equal(fix.severity, sev, fix.risk)
		assert.Equal(fix.review, review, fix.risk)
	}
}

func TestFuseRisk(t *testing.T) {
	assert := assert.New(t)

	// every content score maxed, neutral trust, five recent violations
	in := RiskInputs{Toxicity: 100, Spam: 100, Scam: 100, Promotional: 100, TrustScore: 50, RecentViolations: 5}
	assert.InDelta(85.0, FuseRisk(in), 0.0001)

	assert.InDelta(20.75, FuseRisk(RiskInputs{Toxicity: 35, Spam: 50, Scam: 30, TrustScore: 90}), 0.0001)
	assert.InDelta(30.75, FuseRisk(RiskInputs{Toxicity: 35, Spam: 50, Scam: 30, TrustScore: 50, NewAccountFirstMessage: true}), 0.0001)

	// trust penalty only below 50: (50-0)*0.6*0.3
	assert.InDelta(9.0, FuseRisk(RiskInputs{TrustScore: 0}), 0.0001)
	assert.Equal(0.0, FuseRisk(RiskInputs{TrustScore: 100}))
	assert.InDelta(30.0, FuseRisk(RiskInputs{TrustScore: 50, UserBehaviorRisk: 100, DuplicateInSpamCluster: true}), 0.0001)

	// bumps are not capped
	assert.Greater(FuseRisk(RiskInputs{Toxicity: 100, Spam: 100, Scam: 100, Promotional: 100, RecentViolations: 10, DuplicateInSpamCluster: true}), 100.0)
}

func TestConfidenceAndPriority(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(100.0, ConfidenceFor(0))
	assert.Equal(57.5, ConfidenceFor(85))
	assert.Equal(0.0, ConfidenceFor(240))

	assert.Equal(models.PriorityUrgent, PriorityFor(models.SeverityCritical))
	assert.Equal(models.PriorityHigh, PriorityFor(models.SeverityHigh))
	assert.Equal(models.PriorityMedium, PriorityFor(models.SeverityMedium))
	assert.Equal(models.PriorityMedium, PriorityFor(models.SeverityLow))

	assert.Equal(24*time.Hour, DurationFor(models.ActionTempBan))
	assert.Equal(time.Duration(0), DurationFor(models.ActionHide))
}
