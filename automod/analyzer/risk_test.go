package analyzer

import (
	"testing"

	"github.com/hearthchat/moderation/models"
	"github.com/stretchr/testify/assert"
)

func TestLevelForScore(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		score  float64
		level  models.Severity
		action models.ActionKind
	}{
		{score: 0, level: models.SeverityLow, action: models.ActionApprove},
		{score: 14.9, level: models.SeverityLow, action: models.ActionApprove},
		{score: 15, level: models.SeverityMedium, action: models.ActionWarn},
		{score: 45, level: models.SeverityHigh, action: models.ActionHide},
		{score: 69.9, level: models.SeverityHigh, action: models.ActionHide},
		{score: 70, level: models.SeverityCritical, action: models.ActionReview},
		{score: 100, level: models.SeverityCritical, action: models.ActionReview},
	}
	for _, f := range fixtures {
		level := LevelForScore(f.score)
		assert.Equal(f.level, level, f.score)
		assert.Equal(f.action, ActionForLevel(level), f.score)
	}
}

func TestDetectLanguages(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		text  string
		langs []string
	}{
		{text: "the cat and the dog", langs: []string{"en"}},
		{text: "hola", langs: []string{"en"}},
		{text: "der Hund und die Katze sind nicht hier", langs: []string{"de"}},
		{text: "je pense que vous avez raison mais pas toujours", langs: []string{"fr"}},
	}
	for _, f := range fixtures {
		tokens := prepare(f.text).tokens
		assert.Equal(f.langs, DetectLanguages(tokens), f.text)
	}

	assert.Equal("pt", primaryLanguage("pt-BR"))
	assert.Equal("en", primaryLanguage(""))
	assert.Equal("en", primaryLanguage("not a tag!"))
}
