package synthesizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanupRemovesDisclaimerSentence(t *testing.T) {
	in := "The price of Lemon Bar Mix is $12.95. If you have access to the full database, please verify. It ships in two days."
	out := Cleanup(in)
	assert.Equal(t, "The price of Lemon Bar Mix is $12.95. It ships in two days.", out)
}

func TestCleanupKeepsCleanText(t *testing.T) {
	in := "There are 3 matching products. Here they are:"
	assert.Equal(t, in, Cleanup(in))
}

func TestCleanupRemovesMultipleDisclaimers(t *testing.T) {
	in := "Ginger Snap costs $4.49. There may be a discrepancy with current stock. I am not sure about shipping. Enjoy!"
	assert.Equal(t, "Ginger Snap costs $4.49. Enjoy!", Cleanup(in))
}

func TestCleanupNormalizesAsteriskGlyph(t *testing.T) {
	assert.Equal(t, "**$4.49**", Cleanup("∗∗$4.49∗∗"))
}

func TestCleanupCollapsesBlankLines(t *testing.T) {
	in := "First line.\n\n\n\nSecond line."
	assert.Equal(t, "First line.\n\nSecond line.", Cleanup(in))

	in = "First line.\n   \nSecond line."
	assert.Equal(t, "First line.\n\nSecond line.", Cleanup(in))
}

func TestSplitSentencesRoundTrips(t *testing.T) {
	in := "One. Two! Three? Four"
	var rebuilt string
	for _, s := range splitSentences(in) {
		rebuilt += s
	}
	assert.Equal(t, in, rebuilt)
}
