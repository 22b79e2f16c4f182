// Content moderation core for a real-time chat service.
//
// This package (`github.com/hearthchat/moderation/automod`) scores every chat message before delivery and turns the scores into an enforcement decision. Three layers are involved: a content analyzer (`automod/analyzer`) scoring toxicity, spam, scams, promotion and sentiment; a behavioral layer (`automod/behavior`) adding per-user history, duplicate-content clustering and adaptive filter rules; and a decision engine (`automod/engine`) fusing everything with the author's trust score, writing immutable moderation actions, and running the human review queue and appeals.
//
// Counters, flags, sets and caches live behind small interfaces with in-memory and Redis implementations, so rules and the engine can run in tests without external services.
//
// See `cmd/warden` for a daemon built on this package.
package automod
