package keyword

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeText(t *testing.T) {
	assert := assert.New(t)

	fixtures := map[string][]string{
		"":                          {},
		"  hey   EVERYONE!!":        {"hey", "everyone"},
		"Hello, โลก!":               {"hello", "โลก"},
		"Gdańsk":                    {"gdansk"},
		"don't":                     {"don", "t"},
		"join discord.gg/abc today": {"join", "discord", "gg", "abc", "today"},
		"F*ck this!":                {"f", "ck", "this"},
		"room#42 at 10:30":          {"room", "42", "at", "10", "30"},
	}
	for in, out := range fixtures {
		assert.Equal(out, TokenizeText(in), in)
	}
}

func TestTokenizeSkippingCensorChars(t *testing.T) {
	assert := assert.New(t)

	assert.Equal([]string{"f*ck", "this"}, TokenizeTextSkippingCensorChars("F*ck this!"))
	assert.Equal([]string{"s_h_i_t", "#ad"}, TokenizeTextSkippingCensorChars("s_h_i_t, #ad."))
	assert.Equal([]string{"free-nitro"}, TokenizeTextSkippingCensorChars("FREE-nitro"))
}

func TestFoldMarks(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("Gdansk", FoldMarks("Gdańsk"))
	assert.Equal("creme brulee", FoldMarks("crème brûlée"))
	assert.Equal("plain", FoldMarks("plain"))
}

func TestSlugify(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("freen1tro", Slugify("F.R.E.E n1tro"))
	assert.Equal("freemoney", Slugify("FREE  money!!"))
	assert.Equal("", Slugify("..."))
	// marks are kept; callers fold first when they want them gone
	assert.Equal("crème", Slugify("Crème!"))
}
