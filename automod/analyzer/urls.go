package analyzer

import (
	"context"
	"net/url"
	"strings"

	"github.com/hearthchat/moderation/automod/helpers"
	"github.com/hearthchat/moderation/automod/setstore"
	"github.com/hearthchat/moderation/models"

	"github.com/PuerkitoBio/purell"
)

const (
	ReputationSafe       = "safe"
	ReputationUnknown    = "unknown"
	ReputationSuspicious = "suspicious"
	ReputationMalicious  = "malicious"

	SetSafeDomains       = "safe-domains"
	SetSuspiciousDomains = "suspicious-domains"
	SetMaliciousDomains  = "malicious-domains"
)

var reputationScores = map[string]float64{
	ReputationSafe:       0,
	ReputationUnknown:    30,
	ReputationSuspicious: 60,
	ReputationMalicious:  100,
}

// normalizes URL for reputation matching. not lossy in the way search normalization is: query and path are kept
func normalizeURL(raw string) string {
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	clean, err := purell.NormalizeURLString(raw, purell.FlagsUsuallySafeGreedy|purell.FlagRemoveFragment|purell.FlagRemoveDuplicateSlashes)
	if err != nil {
		return raw
	}
	return clean
}

func (a *HeuristicAnalyzer) analyzeURLs(ctx context.Context, raw string) []models.AnalyzedURL {
	var out []models.AnalyzedURL
	for _, s := range helpers.Dedupe(helpers.ExtractTextURLs(raw)) {
		out = append(out, a.URLReputation(ctx, s))
	}
	return out
}

// Classifies a single URL. Unparsable URLs, or ones without a host, are treated as maximally malicious.
func (a *HeuristicAnalyzer) URLReputation(ctx context.Context, raw string) models.AnalyzedURL {
	norm := normalizeURL(raw)
	info := models.AnalyzedURL{URL: norm}
	u, err := url.Parse(norm)
	if err != nil || u.Hostname() == "" {
		info.Reputation = ReputationMalicious
		info.ReputationScore = reputationScores[ReputationMalicious]
		return info
	}
	domain := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	info.Domain = domain
	info.Reputation = a.domainReputation(ctx, domain)
	info.ReputationScore = reputationScores[info.Reputation]
	return info
}

// malicious beats suspicious beats safe: a known-bad subdomain of a safe host is still bad
func (a *HeuristicAnalyzer) domainReputation(ctx context.Context, domain string) string {
	if a.inDomainList(ctx, SetMaliciousDomains, defaultMaliciousDomains, domain) {
		return ReputationMalicious
	}
	if a.inDomainList(ctx, SetSuspiciousDomains, defaultSuspiciousDomains, domain) {
		return ReputationSuspicious
	}
	if a.inDomainList(ctx, SetSafeDomains, defaultSafeDomains, domain) {
		return ReputationSafe
	}
	return ReputationUnknown
}

func (a *HeuristicAnalyzer) inDomainList(ctx context.Context, setName string, builtin map[string]bool, domain string) bool {
	if a.Sets != nil {
		ok, err := setstore.InSetDomainSuffix(ctx, a.Sets, setName, domain)
		if err != nil {
			a.Logger.Warn("domain set lookup failed", "set", setName, "domain", domain, "err", err)
		} else if ok {
			return true
		}
	}
	for d := domain; d != ""; {
		if builtin[d] {
			return true
		}
		idx := strings.IndexByte(d, '.')
		if idx < 0 {
			break
		}
		d = d[idx+1:]
	}
	return false
}
