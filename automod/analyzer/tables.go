package analyzer

import (
	"regexp"
)

const (
	toxicityKeywordWeight = 15.0
	toxicityPatternWeight = 25.0
	spamPatternWeight     = 20.0
	spamRepetitionWeight  = 30.0
	spamCapsWeight        = 15.0
	scamWeight            = 30.0
	promoWeight           = 20.0
)

type namedPattern struct {
	Name  string
	Regex *regexp.Regexp
}

func pattern(name, expr string) namedPattern {
	return namedPattern{Name: name, Regex: regexp.MustCompile(expr)}
}

type toxicityTable struct {
	// matched against tokens, which are lower-cased and have combining marks folded
	Keywords map[string]bool
	// matched against normalized text with marks folded
	Patterns []namedPattern
}

func wordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

var toxicityTables = map[string]toxicityTable{
	"en": {
		Keywords: wordSet(
			"stupid", "idiot", "idiots", "dumb", "moron", "morons", "loser", "losers", "pathetic",
			"worthless", "useless", "imbecile", "retard", "retarded", "scum", "trash", "garbage",
			"dumbass", "jerk", "clown", "bitch", "bastard", "asshole", "fuck", "fucking", "shit",
		),
		Patterns: []namedPattern{
			pattern("insult", `\b(?:you(?:'re| are| r)|ur|u r)\s+(?:so\s+|such\s+an?\s+|an?\s+|really\s+)?(?:stupid|dumb|idiot|moron|loser|pathetic|worthless|useless|trash|garbage|clown)\b`),
			pattern("self-harm", `\b(?:kill|hurt|hang)\s+yourself\b|\bkys\b`),
			pattern("threat", `\b(?:i(?:'ll| will)|gonna|going to)\s+(?:kill|hurt|find|destroy)\s+you\b`),
			pattern("go-die", `\bgo\s+(?:die|to hell)\b`),
			pattern("exclusion", `\bnobody\s+(?:likes|wants|cares about)\s+you\b`),
			pattern("shut-up", `\bshut\s+(?:the\s+\w+\s+)?up\b`),
		},
	},
	"es": {
		Keywords: wordSet(
			"idiota", "idiotas", "estupido", "estupida", "imbecil", "tonto", "tonta", "basura",
			"pendejo", "pendeja", "inutil", "perdedor", "mierda", "cabron", "puta",
		),
		Patterns: []namedPattern{
			pattern("insult", `\beres\s+(?:un\s+|una\s+|muy\s+)?(?:idiota|estupid[oa]|tont[oa]|imbecil|inutil|basura)\b`),
			pattern("self-harm", `\bmatate\b`),
			pattern("shut-up", `\bcallate\b`),
		},
	},
	"fr": {
		Keywords: wordSet(
			"idiot", "idiote", "stupide", "debile", "imbecile", "nul", "nulle", "connard", "connasse",
			"abruti", "merde", "salope", "pute",
		),
		Patterns: []namedPattern{
			pattern("insult", `\btu\s+es\s+(?:un\s+|une\s+|tellement\s+|trop\s+)?(?:idiot|idiote|stupide|debile|imbecile|nul|nulle|con|conne)\b`),
			pattern("shut-up", `\bta\s+gueule\b|\bferme[sz]?[- ]la\b`),
		},
	},
	"de": {
		Keywords: wordSet(
			"dumm", "idiot", "blod", "depp", "trottel", "arschloch", "scheisse", "scheiße", "vollidiot",
			"versager", "hurensohn", "spast",
		),
		Patterns: []namedPattern{
			pattern("insult", `\bdu\s+bist\s+(?:so\s+|ein\s+|eine\s+|voll\s+)?(?:dumm|idiot|blod|depp|trottel|versager)\b`),
			pattern("shut-up", `\bhalt\s+(?:die|deine)\s+(?:klappe|fresse|maul)\b`),
		},
	},
	"pt": {
		Keywords: wordSet(
			"idiota", "estupido", "estupida", "burro", "burra", "imbecil", "otario", "lixo",
			"inutil", "merda", "babaca", "porra",
		),
		Patterns: []namedPattern{
			pattern("insult", `\b(?:voce|vc)\s+e\s+(?:um\s+|uma\s+|muito\s+)?(?:idiota|estupid[oa]|burr[oa]|imbecil|inutil|lixo)\b`),
			pattern("shut-up", `\bcala\s+a\s+boca\b`),
		},
	},
}

var (
	positiveWords = wordSet(
		"love", "loved", "great", "awesome", "amazing", "thanks", "thank", "happy", "good", "nice",
		"excellent", "wonderful", "beautiful", "glad", "cool", "fun", "best", "enjoy", "enjoyed",
		"perfect", "fantastic", "brilliant", "congrats", "congratulations", "welcome", "helpful",
		"gracias", "genial", "merci", "super", "danke", "obrigado", "obrigada",
	)
	negativeWords = wordSet(
		"hate", "hated", "terrible", "awful", "bad", "worst", "angry", "sad", "horrible", "disgusting",
		"annoying", "stupid", "ugly", "boring", "sucks", "pathetic", "useless", "disappointed",
		"disappointing", "broken", "trash", "garbage", "odio", "horrible", "nul", "schlecht",
	)
)

var spamPatterns = []namedPattern{
	pattern("click-here", `\b(?:click|tap)\s+(?:here|this\s+link|the\s+link|below)\b`),
	pattern("cheap-engagement", `\b(?:free|cheap|buy)\s+(?:followers|likes|subs|subscribers|views|upvotes)\b`),
	pattern("follow-back", `\bfollow\s+(?:me|back|for\s+follow)\b|\bf4f\b|\bl4l\b`),
	pattern("self-promo", `\bcheck\s+(?:out\s+)?my\s+(?:profile|channel|bio|page|stream|server)\b`),
	pattern("subscribe", `\b(?:subscribe|sub)\s+to\s+my\b`),
	pattern("dm-me", `\b(?:dm|pm|message)\s+me\s+(?:for|to|now)\b`),
	pattern("join-server", `\bjoin\s+(?:my|our)\s+(?:server|discord|group|channel)\b`),
	pattern("link-flood", `(?:https?://\S+\s*){3,}`),
}

var scamPatterns = []namedPattern{
	pattern("free-currency", `\bfree\s+(?:nitro|robux|v-?bucks|crypto|bitcoin|btc|eth|money|gift\s*cards?|skins)\b`),
	pattern("multiply-money", `\b(?:double|triple|10x|100x)\s+your\s+(?:money|crypto|bitcoin|btc|investment|coins)\b`),
	pattern("credential-request", `\bsend\s+(?:me\s+)?(?:your\s+)?(?:password|seed\s+phrase|recovery\s+phrase|login|credentials|2fa\s+code|private\s+key)\b`),
	pattern("verify-account", `\bverify\s+your\s+(?:account|wallet|identity)\b`),
	pattern("claim-prize", `\b(?:claim|redeem|collect)\s+(?:your\s+)?(?:prize|reward|gift|winnings|airdrop)\b`),
	pattern("guaranteed-returns", `\bguaranteed\s+(?:profit|profits|returns|income)\b`),
	pattern("you-won", `\byou(?:'ve|\s+have)?\s+(?:won|been\s+selected)\b`),
	pattern("wire-transfer", `\b(?:wire\s+transfer|western\s+union|gift\s+card\s+code)\b`),
	pattern("account-suspended", `\byour\s+account\s+(?:will\s+be|has\s+been)\s+(?:suspended|banned|locked|deleted)\b`),
}

var promoPatterns = []namedPattern{
	pattern("buy-now", `\b(?:buy|order|shop)\s+(?:now|today)\b`),
	pattern("percent-off", `\b\d{1,2}\s?%\s+off\b`),
	pattern("promo-code", `\b(?:discount|promo|coupon)\s+code\b|\buse\s+code\s+\w+`),
	pattern("limited-offer", `\blimited\s+(?:time\s+)?(?:offer|deal|sale)\b`),
	pattern("best-price", `\b(?:best|lowest)\s+prices?\b`),
	pattern("free-shipping", `\bfree\s+(?:shipping|delivery|trial)\b`),
	pattern("sale", `\b(?:flash|mega|huge)\s+sale\b`),
	pattern("hire-me", `\b(?:hire\s+me|my\s+services|for\s+business\s+inquiries)\b`),
}

// closed-class words per language; detection is a low-precision heuristic, not a classifier
var languageWords = map[string]map[string]bool{
	"en": wordSet("the", "and", "is", "are", "you", "of", "to", "it", "this", "that", "with", "for", "was", "what", "have"),
	"es": wordSet("el", "los", "las", "que", "y", "es", "en", "por", "para", "con", "una", "pero", "muy", "esta"),
	"fr": wordSet("le", "les", "des", "et", "est", "un", "une", "pour", "avec", "dans", "je", "vous", "pas", "tres", "mais"),
	"de": wordSet("der", "die", "das", "und", "ist", "nicht", "ich", "ein", "eine", "mit", "zu", "sie", "auch", "sehr"),
	"pt": wordSet("os", "as", "que", "e", "nao", "um", "uma", "com", "para", "voce", "muito", "mas", "isso"),
}

var semanticTables = map[string][]string{
	"gaming":     {"game", "games", "play", "playing", "level", "boss", "quest", "raid", "loot", "rank", "gg", "fps"},
	"finance":    {"money", "crypto", "bitcoin", "invest", "investment", "stock", "stocks", "trading", "profit", "bank", "wallet", "price"},
	"technology": {"code", "software", "computer", "app", "bug", "server", "api", "program", "developer", "linux", "deploy", "database"},
	"politics":   {"election", "vote", "voting", "government", "president", "policy", "party", "senate", "law", "congress"},
	"health":     {"doctor", "medicine", "sick", "health", "hospital", "vaccine", "diet", "exercise", "therapy", "symptoms"},
	"sports":     {"football", "soccer", "basketball", "team", "score", "goal", "match", "league", "player", "coach"},
	"support":    {"help", "issue", "problem", "error", "broken", "fix", "support", "question", "how", "why"},
}

// built-in domain reputation lists, used when the set store has no entry
var (
	defaultSafeDomains = wordSet(
		"github.com", "wikipedia.org", "youtube.com", "youtu.be", "google.com", "stackoverflow.com",
		"reddit.com", "twitter.com", "x.com", "discord.com", "twitch.tv", "mozilla.org", "go.dev",
		"golang.org", "bsky.app", "apple.com", "microsoft.com", "imgur.com",
	)
	defaultSuspiciousDomains = wordSet(
		"bit.ly", "tinyurl.com", "goo.gl", "is.gd", "cutt.ly", "rb.gy", "shorturl.at", "t.ly",
		"xyz", "top", "tk", "ml", "ga", "cf", "gq", "zip", "click",
	)
	defaultMaliciousDomains = wordSet(
		"free-nitro.gift", "discord-nitro.gift", "dlscord.com", "discordgift.site", "steamcommunlty.com",
		"steamcomunity.com", "nitro-drop.com", "grabify.link", "iplogger.org",
	)
)
