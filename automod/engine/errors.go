package engine

import (
	"errors"

	"github.com/hearthchat/moderation/automod/analyzer"
	"github.com/hearthchat/moderation/automod/store"
)

var (
	// empty or malformed text, or a request that names the wrong user; rejected before scoring
	ErrInvalidInput = analyzer.ErrInvalidInput
	// scoring failed or timed out; never returned by ModerateContent, which falls back to human review instead
	ErrAnalysisFailure = errors.New("content analysis failed")
	ErrNotFound        = store.ErrNotFound
	// the store failed after a decision was computed; the decision is still returned alongside this error
	ErrPersistence = errors.New("failed to persist moderation result")
	// queue item or action is not in a state that permits the requested change
	ErrInvalidTransition = errors.New("invalid state transition")
)
