package rules

import (
	"regexp"

	"github.com/hearthchat/moderation/automod/analyzer"
	"github.com/hearthchat/moderation/automod/behavior"
)

// https://en.wikipedia.org/wiki/GTUBE
var gtubeString = "XJS*C4JDBQADN1.NSBN3*2IDNEN*GTUBE-STANDARD-ANTI-UBE-TEST-EMAIL*C.34X"

// Seed adaptive rules. Confidence for each starts where moderators last left it; feedback moves it from there.
func DefaultRules() []behavior.AdaptiveFilterRule {
	return []behavior.AdaptiveFilterRule{
		{
			// rules see normalized text
			ID:         "gtube",
			Type:       behavior.RulePattern,
			Pattern:    regexp.QuoteMeta(analyzer.NormalizeText(gtubeString)),
			Confidence: 100,
			Active:     true,
		},
		{
			ID:         "crypto-giveaway",
			Type:       behavior.RulePattern,
			Pattern:    `\b(?:giveaway|airdrop)\b.*\b(?:crypto|bitcoin|btc|eth|usdt|sol|nft)\b|\b(?:crypto|bitcoin|btc|eth|usdt|sol|nft)\b.*\b(?:giveaway|airdrop)\b`,
			Confidence: 75,
			Active:     true,
		},
		{
			ID:         "invite-link",
			Type:       behavior.RulePattern,
			Pattern:    `\b(?:discord\.gg|discord\.com/invite|t\.me|chat\.whatsapp\.com)/\S+`,
			Confidence: 65,
			Active:     true,
		},
		{
			ID:         "free-nitro",
			Type:       behavior.RuleKeyword,
			Keywords:   []string{"free nitro", "nitro giveaway", "steam gift"},
			Confidence: 80,
			Active:     true,
		},
		{
			ID:         "phishing-urgency",
			Type:       behavior.RuleKeyword,
			Keywords:   []string{"verify now", "account locked", "unusual activity", "confirm your identity"},
			Confidence: 70,
			Active:     true,
		},
		{
			ID:         "contact-offplatform",
			Type:       behavior.RuleKeyword,
			Keywords:   []string{"whatsapp", "telegram", "signal me", "text me at"},
			Confidence: 55,
			Active:     true,
		},
		{
			// finance chatter is common and mostly harmless; tracked, flagged only once moderators confirm it
			ID:         "finance-chatter",
			Type:       behavior.RuleSemantic,
			Pattern:    "finance",
			Confidence: 50,
			Active:     true,
		},
	}
}
