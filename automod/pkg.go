package automod

import (
	"github.com/hearthchat/moderation/automod/analyzer"
	"github.com/hearthchat/moderation/automod/behavior"
	"github.com/hearthchat/moderation/automod/countstore"
	"github.com/hearthchat/moderation/automod/engine"
)

type Engine = engine.Engine
type DecisionEngine = engine.DecisionEngine
type Decision = engine.Decision
type ModerationContext = engine.ModerationContext
type UserModerationStatus = engine.UserModerationStatus
type AppealResult = engine.AppealResult
type TrustEvent = engine.TrustEvent

type Notifier = engine.Notifier
type SlackNotifier = engine.SlackNotifier

type ContentAnalyzer = analyzer.ContentAnalyzer

type Layer = behavior.Layer
type EnrichedAnalysis = behavior.EnrichedAnalysis
type AdaptiveFilterRule = behavior.AdaptiveFilterRule

var (
	ErrInvalidInput      = engine.ErrInvalidInput
	ErrAnalysisFailure   = engine.ErrAnalysisFailure
	ErrNotFound          = engine.ErrNotFound
	ErrPersistence       = engine.ErrPersistence
	ErrInvalidTransition = engine.ErrInvalidTransition

	PeriodTotal = countstore.PeriodTotal
	PeriodDay   = countstore.PeriodDay
	PeriodHour  = countstore.PeriodHour
)
