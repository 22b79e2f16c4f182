package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/hearthchat/moderation/automod/behavior"
	"github.com/hearthchat/moderation/automod/rules"

	cli "github.com/urfave/cli/v2"
)

// Seed rules, with the optional JSON file merged over them.
func loadRuleBook(path string) (*behavior.RuleBook, error) {
	seed := rules.DefaultRules()
	if path != "" {
		extra, err := rules.LoadFromFileJSON(path)
		if err != nil {
			return nil, fmt.Errorf("loading adaptive rules: %w", err)
		}
		seed = rules.Merge(seed, extra)
	}
	rb, err := behavior.NewRuleBook(seed)
	if err != nil {
		return nil, fmt.Errorf("initializing adaptive rules: %w", err)
	}
	return rb, nil
}

var checkRulesCmd = &cli.Command{
	Name:      "check-rules",
	Usage:     "validate an adaptive rules file and print the merged rule set as JSON",
	ArgsUsage: "[<rules.json>]",
	Action: func(cctx *cli.Context) error {
		rb, err := loadRuleBook(cctx.Args().First())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rb.List())
	},
}
