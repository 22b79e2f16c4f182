package rules

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hearthchat/moderation/automod/behavior"
)

// Reads a JSON array of adaptive rules. Every rule is validated; the first invalid rule fails the load.
func LoadFromFileJSON(p string) ([]behavior.AdaptiveFilterRule, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	var out []behavior.AdaptiveFilterRule
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parsing rule file %s: %w", p, err)
	}
	for i := range out {
		if err := out[i].Validate(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Rules from the file replace default rules with the same ID; other defaults are kept.
func Merge(base, overrides []behavior.AdaptiveFilterRule) []behavior.AdaptiveFilterRule {
	idx := make(map[string]int, len(base))
	out := make([]behavior.AdaptiveFilterRule, 0, len(base)+len(overrides))
	for _, r := range base {
		idx[r.ID] = len(out)
		out = append(out, r)
	}
	for _, r := range overrides {
		if i, ok := idx[r.ID]; ok {
			out[i] = r
			continue
		}
		idx[r.ID] = len(out)
		out = append(out, r)
	}
	return out
}
