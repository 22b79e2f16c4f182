package behavior

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hearthchat/moderation/automod/analyzer"
	"github.com/hearthchat/moderation/automod/keyword"

	lru "github.com/hashicorp/golang-lru/v2"
)

type RuleType string

const (
	RulePattern  RuleType = "pattern"
	RuleKeyword  RuleType = "keyword"
	RuleSemantic RuleType = "semantic"
)

// Flag prefix for adaptive rule hits, followed by the rule ID.
const AdaptiveFlagPrefix = "adaptive:"

var (
	// rules only contribute flags above this confidence
	RuleFlagConfidence = 60.0
	// maintenance deactivates rules below this confidence
	RuleMinConfidence = 20.0
	RuleConfirmStep   = 2.0
	RuleFalseStep     = 5.0
)

var ErrRuleNotFound = errors.New("adaptive rule not found")

// A self-tuning detector. Confidence changes only through feedback.
type AdaptiveFilterRule struct {
	ID   string   `json:"id"`
	Type RuleType `json:"type"`
	// regex body for pattern rules; category name for semantic rules
	Pattern string `json:"pattern,omitempty"`
	// keyword rules match on tokens, or on the slugified text to catch "f.r.e.e n.i.t.r.o" style evasion
	Keywords []string `json:"keywords,omitempty"`
	// empty means every language / room
	Languages []string `json:"languages,omitempty"`
	Rooms     []string `json:"rooms,omitempty"`

	Confidence         float64   `json:"confidence"`
	Active             bool      `json:"active"`
	Triggers           int64     `json:"triggers"`
	ConfirmedPositives int64     `json:"confirmedPositives"`
	FalsePositives     int64     `json:"falsePositives"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func (r *AdaptiveFilterRule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("adaptive rule missing ID")
	}
	switch r.Type {
	case RulePattern:
		if _, err := regexp.Compile(r.Pattern); err != nil {
			return fmt.Errorf("adaptive rule %s: %w", r.ID, err)
		}
	case RuleKeyword:
		if len(r.Keywords) == 0 {
			return fmt.Errorf("adaptive rule %s: no keywords", r.ID)
		}
	case RuleSemantic:
		if r.Pattern == "" {
			return fmt.Errorf("adaptive rule %s: no semantic category", r.ID)
		}
	default:
		return fmt.Errorf("adaptive rule %s: unknown type %q", r.ID, r.Type)
	}
	return nil
}

func (r *AdaptiveFilterRule) inScope(room string, languages []string) bool {
	if len(r.Rooms) > 0 && !containsString(r.Rooms, room) {
		return false
	}
	if len(r.Languages) == 0 {
		return true
	}
	for _, l := range languages {
		if containsString(r.Languages, l) {
			return true
		}
	}
	return false
}

// Input to rule evaluation, derived once per message.
type RuleInput struct {
	Room string
	// normalized, marks folded
	Text   string
	Tokens []string
	Slug   string
	Result *analyzer.Result
}

func NewRuleInput(text, room string, res *analyzer.Result) RuleInput {
	norm := analyzer.NormalizeText(text)
	return RuleInput{
		Room:   room,
		Text:   keyword.FoldMarks(norm),
		Tokens: keyword.TokenizeText(norm),
		Slug:   keyword.Slugify(keyword.FoldMarks(text)),
		Result: res,
	}
}

// Adaptive rules plus their performance counters. Safe for concurrent use.
type RuleBook struct {
	lk    sync.Mutex
	rules map[string]*AdaptiveFilterRule
	// compiled pattern cache, keyed by pattern body
	regexes *lru.Cache[string, *regexp.Regexp]
}

func NewRuleBook(seed []AdaptiveFilterRule) (*RuleBook, error) {
	cache, err := lru.New[string, *regexp.Regexp](512)
	if err != nil {
		return nil, err
	}
	rb := &RuleBook{
		rules:   make(map[string]*AdaptiveFilterRule, len(seed)),
		regexes: cache,
	}
	for _, r := range seed {
		if err := rb.Add(r); err != nil {
			return nil, err
		}
	}
	return rb, nil
}

func (rb *RuleBook) Add(r AdaptiveFilterRule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	now := time.Now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	rb.lk.Lock()
	defer rb.lk.Unlock()
	rb.rules[r.ID] = &r
	return nil
}

func (rb *RuleBook) regex(pattern string) (*regexp.Regexp, error) {
	if re, ok := rb.regexes.Get(pattern); ok {
		return re, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	rb.regexes.Add(pattern, re)
	return re, nil
}

func (rb *RuleBook) matches(r *AdaptiveFilterRule, in RuleInput) bool {
	switch r.Type {
	case RulePattern:
		re, err := rb.regex(r.Pattern)
		if err != nil {
			return false
		}
		return re.MatchString(in.Text)
	case RuleKeyword:
		for _, kw := range r.Keywords {
			if keyword.TokenInSet(kw, in.Tokens) {
				return true
			}
			if slug := keyword.Slugify(kw); len(slug) >= 4 && strings.Contains(in.Slug, slug) {
				return true
			}
		}
		return false
	case RuleSemantic:
		if in.Result == nil {
			return false
		}
		_, ok := in.Result.Semantic[r.Pattern]
		return ok
	}
	return false
}

// Tests every active, in-scope rule. Each matching rule's trigger counter increments; only confident rules with at least as many confirmed as false positives return a flag.
func (rb *RuleBook) Evaluate(in RuleInput) []string {
	var languages []string
	if in.Result != nil {
		languages = in.Result.Languages
	}

	rb.lk.Lock()
	defer rb.lk.Unlock()

	var flags []string
	for _, r := range rb.rules {
		if !r.Active || !r.inScope(in.Room, languages) {
			continue
		}
		if !rb.matches(r, in) {
			continue
		}
		r.Triggers++
		ruleTriggers.WithLabelValues(r.ID).Inc()
		if r.Confidence > RuleFlagConfidence && r.ConfirmedPositives >= r.FalsePositives {
			flags = append(flags, AdaptiveFlagPrefix+r.ID)
		}
	}
	sort.Strings(flags)
	return flags
}

// Applies one moderator verdict to a rule. Returns true if this verdict deactivated it.
func (rb *RuleBook) Feedback(id string, correct bool) (bool, error) {
	rb.lk.Lock()
	defer rb.lk.Unlock()
	r, ok := rb.rules[id]
	if !ok {
		return false, ErrRuleNotFound
	}
	if correct {
		r.ConfirmedPositives++
		r.Confidence = min(100, r.Confidence+RuleConfirmStep)
	} else {
		r.FalsePositives++
		r.Confidence = max(0, r.Confidence-RuleFalseStep)
	}
	deactivated := false
	if r.Active && r.FalsePositives > 2*r.ConfirmedPositives {
		r.Active = false
		deactivated = true
		rulesDeactivated.WithLabelValues("false-positives").Inc()
	}
	r.UpdatedAt = time.Now()
	return deactivated, nil
}

// Deactivates rules whose confidence has decayed below the floor. Returns the IDs deactivated.
func (rb *RuleBook) Maintain() []string {
	rb.lk.Lock()
	defer rb.lk.Unlock()
	var out []string
	for _, r := range rb.rules {
		if r.Active && r.Confidence < RuleMinConfidence {
			r.Active = false
			r.UpdatedAt = time.Now()
			out = append(out, r.ID)
			rulesDeactivated.WithLabelValues("low-confidence").Inc()
		}
	}
	sort.Strings(out)
	return out
}

// Returns a copy of the rule.
func (rb *RuleBook) Get(id string) (AdaptiveFilterRule, error) {
	rb.lk.Lock()
	defer rb.lk.Unlock()
	r, ok := rb.rules[id]
	if !ok {
		return AdaptiveFilterRule{}, ErrRuleNotFound
	}
	return *r, nil
}

// Copies of every rule, sorted by ID.
func (rb *RuleBook) List() []AdaptiveFilterRule {
	rb.lk.Lock()
	defer rb.lk.Unlock()
	out := make([]AdaptiveFilterRule, 0, len(rb.rules))
	for _, r := range rb.rules {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
