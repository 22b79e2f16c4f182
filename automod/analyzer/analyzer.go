package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hearthchat/moderation/automod/helpers"
	"github.com/hearthchat/moderation/automod/keyword"
	"github.com/hearthchat/moderation/automod/setstore"
	"github.com/hearthchat/moderation/models"

	"github.com/sourcegraph/conc/panics"
	"golang.org/x/sync/errgroup"
)

// Version string recorded on every analysis produced by HeuristicAnalyzer.
const Version = "heuristic-1.4"

var ErrInvalidInput = errors.New("invalid input")

// Scores free-form text. Implementations must be safe for concurrent use.
//
// HeuristicAnalyzer is the only implementation in this repository; a trained classifier can be substituted without changes to callers.
type ContentAnalyzer interface {
	Analyze(ctx context.Context, text, language string, actx *Context) (*Result, error)
	AnalyzeContentSimilarity(text string) Similarity
}

// Optional request context. A nil *Context is treated the same as an empty one.
type Context struct {
	Room         string
	TrustScore   *float64
	FirstMessage bool
}

type Result struct {
	Toxicity    float64
	Sentiment   float64
	Spam        float64
	Scam        float64
	Promotional float64

	// ISO 639-1 codes. Always at least one entry.
	Languages       []string
	FlaggedPatterns []string
	URLs            []models.AnalyzedURL
	// category name to confidence in [0,1]; categories under 0.2 are dropped
	Semantic map[string]float64

	RiskScore         float64
	RiskLevel         models.Severity
	RecommendedAction models.ActionKind

	// set when the repetition check found low-information content
	RepetitionBlocked bool

	Version        string
	ProcessingTime time.Duration
}

// Returns true if the named pattern tag was flagged.
func (r *Result) HasFlag(tag string) bool {
	for _, f := range r.FlaggedPatterns {
		if f == tag {
			return true
		}
	}
	return false
}

// Heuristic, keyword and regex table based ContentAnalyzer. Stateless apart from the optional domain sets.
type HeuristicAnalyzer struct {
	Logger *slog.Logger
	// Optional; consulted for "safe-domains", "suspicious-domains" and "malicious-domains" before the built-in lists.
	Sets setstore.SetStore
}

var _ ContentAnalyzer = (*HeuristicAnalyzer)(nil)

func NewHeuristicAnalyzer(logger *slog.Logger, sets setstore.SetStore) *HeuristicAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &HeuristicAnalyzer{
		Logger: logger.With("component", "analyzer"),
		Sets:   sets,
	}
}

// text prepared once per call and shared (read-only) by all scorers
type prepared struct {
	raw        string
	normalized string
	// normalized with combining marks folded away
	folded string
	tokens []string
}

func prepare(text string) prepared {
	raw := strings.TrimSpace(text)
	norm := NormalizeText(raw)
	return prepared{
		raw:        raw,
		normalized: norm,
		folded:     keyword.FoldMarks(norm),
		tokens:     keyword.TokenizeText(norm),
	}
}

// Scores a single message. Fails with ErrInvalidInput on empty, whitespace-only or invalid UTF-8 text.
func (a *HeuristicAnalyzer) Analyze(ctx context.Context, text, language string, actx *Context) (*Result, error) {
	start := time.Now()
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("%w: text is not valid UTF-8", ErrInvalidInput)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", ErrInvalidInput)
	}
	if actx == nil {
		actx = &Context{}
	}
	p := prepare(text)
	lang := tableLanguage(language)

	res := Result{
		Version: Version,
	}
	var toxFlags, spamFlags, scamFlags, promoFlags []string
	var repetition RepetitionVerdict

	// the five content scores have no ordering dependency
	g, _ := errgroup.WithContext(ctx)
	goScore := func(name string, f func()) {
		g.Go(func() error {
			if r := panics.Try(f); r != nil {
				return fmt.Errorf("%s scorer: %w", name, r.AsError())
			}
			return nil
		})
	}
	goScore("toxicity", func() { res.Toxicity, toxFlags = scoreToxicity(p, lang) })
	goScore("sentiment", func() { res.Sentiment = scoreSentiment(p) })
	goScore("spam", func() { res.Spam, spamFlags, repetition = scoreSpam(p) })
	goScore("scam", func() { res.Scam, scamFlags = scoreTable(p, scamPatterns, scamWeight, "scam") })
	goScore("promotional", func() { res.Promotional, promoFlags = scoreTable(p, promoPatterns, promoWeight, "promo") })
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.RepetitionBlocked = repetition.Blocked
	res.Languages = DetectLanguages(p.tokens)
	res.URLs = a.analyzeURLs(ctx, p.raw)
	res.Semantic = semanticCategories(p.tokens)

	flags := []string{}
	flags = append(flags, toxFlags...)
	flags = append(flags, spamFlags...)
	flags = append(flags, scamFlags...)
	flags = append(flags, promoFlags...)
	for _, u := range res.URLs {
		switch u.Reputation {
		case ReputationMalicious:
			res.Scam += scamWeight
			flags = append(flags, "url:malicious")
		case ReputationSuspicious:
			flags = append(flags, "url:suspicious")
		}
	}
	res.Scam = helpers.ClampScore(res.Scam)
	res.FlaggedPatterns = helpers.Dedupe(flags)

	res.RiskScore = fuseContentRisk(&res, actx)
	res.RiskLevel = LevelForScore(res.RiskScore)
	res.RecommendedAction = ActionForLevel(res.RiskLevel)
	res.ProcessingTime = time.Since(start)

	a.Logger.Debug("analyzed content",
		"toxicity", res.Toxicity,
		"spam", res.Spam,
		"scam", res.Scam,
		"promotional", res.Promotional,
		"risk", res.RiskScore,
		"level", res.RiskLevel,
		"duration", res.ProcessingTime,
	)
	return &res, nil
}
