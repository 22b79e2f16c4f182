package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/hearthchat/moderation/automod/analyzer"
	"github.com/hearthchat/moderation/automod/keyword"
	"github.com/hearthchat/moderation/automod/setstore"

	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.App{
		Name:  "analyze-cli",
		Usage: "informal debugging CLI tool for the content analyzer",
	}
	app.Commands = []*cli.Command{
		&cli.Command{
			Name:   "score",
			Usage:  "reads lines of text from stdin, runs the content analyzer, outputs one JSON result per line",
			Action: runScore,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "language",
					Usage: "BCP 47 language tag of the input",
					Value: "en",
				},
				&cli.StringFlag{
					Name:  "room",
					Usage: "room name passed as analysis context",
				},
				&cli.BoolFlag{
					Name:  "first-message",
					Usage: "treat each line as the author's first message",
				},
				&cli.StringFlag{
					Name:  "json-set-file",
					Usage: "optional path to JSON file containing domain reputation sets",
				},
			},
		},
		&cli.Command{
			Name:   "tokens",
			Usage:  "reads lines of text from stdin, tokenizes and matches against set",
			Action: runTokens,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "json-set-file",
					Usage:    "path to JSON file containing keyword sets",
					Required: true,
				},
				&cli.StringFlag{
					Name:  "set-name",
					Usage: "which set within the set file to use",
					Value: "bad-words",
				},
				&cli.BoolFlag{
					Name:  "censored",
					Usage: "keep censor characters (*, _, -) inside tokens, and also match slugified lines",
				},
			},
		},
		&cli.Command{
			Name:   "similarity",
			Usage:  "reads lines of text from stdin, outputs content and semantic hashes",
			Action: runSimilarity,
		},
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	slog.SetDefault(slog.New(h))
	if err := app.Run(os.Args); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(-1)
	}
}

func runScore(cctx *cli.Context) error {
	ctx := cctx.Context
	sets := setstore.NewMemSetStore()
	if p := cctx.String("json-set-file"); p != "" {
		if err := sets.LoadFromFileJSON(p); err != nil {
			return err
		}
	}
	a := analyzer.NewHeuristicAnalyzer(slog.Default(), sets)
	actx := &analyzer.Context{
		Room:         cctx.String("room"),
		FirstMessage: cctx.Bool("first-message"),
	}
	enc := json.NewEncoder(os.Stdout)
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		res, err := a.Analyze(ctx, line, cctx.String("language"), actx)
		if err != nil {
			slog.Warn("analysis failed", "line", line, "err", err)
			continue
		}
		if err := enc.Encode(res); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func runTokens(cctx *cli.Context) error {
	ctx := cctx.Context
	sets := setstore.NewMemSetStore()
	if err := sets.LoadFromFileJSON(cctx.String("json-set-file")); err != nil {
		return err
	}
	setName := cctx.String("set-name")
	censored := cctx.Bool("censored")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		var tokens []string
		if censored {
			tokens = keyword.TokenizeTextSkippingCensorChars(line)
			tokens = append(tokens, keyword.Slugify(line))
		} else {
			tokens = keyword.TokenizeText(line)
		}
		for _, tok := range tokens {
			match, err := sets.InSet(ctx, setName, tok)
			if err != nil {
				return err
			}
			if match {
				fmt.Printf("MATCH\t%s\t%s\n", tok, line)
			}
		}
	}
	return scanner.Err()
}

func runSimilarity(cctx *cli.Context) error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		sim := analyzer.ContentFingerprint(line)
		fmt.Printf("%s\t%d\t%.2f\t%s\n", sim.ContentHash, sim.WordCount, sim.UniqueWordRatio, sim.SemanticHash)
	}
	return scanner.Err()
}
