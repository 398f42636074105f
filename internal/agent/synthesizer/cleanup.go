package synthesizer

import (
	"regexp"
	"strings"
)

// disclaimerKeywords mark a sentence as hedging/meta-commentary. Any sentence
// containing one is dropped wholesale from generated answers.
var disclaimerKeywords = []string{
	"discrepancy",
	"verify",
	"if you have access",
	"database results",
	"additional context",
	"uncertain",
	"not sure",
	"cannot verify",
	"if you have any more questions",
	"if you need",
	"if you require",
	"if you would like",
	"if you want",
	"if you have further",
}

var (
	multiNewlineRE = regexp.MustCompile(`\n{3,}`)
	blankLineRE    = regexp.MustCompile(`\n[ \t]*\n`)
)

// Cleanup strips disclaimer sentences from a generated answer, restores the
// Unicode look-alike asterisk and normalizes blank lines. Applied to every
// completion-produced answer, never to pass-through formatter output.
func Cleanup(answer string) string {
	var b strings.Builder
	for _, sentence := range splitSentences(answer) {
		if containsDisclaimer(sentence) {
			continue
		}
		b.WriteString(sentence)
	}
	out := b.String()
	out = strings.ReplaceAll(out, "∗", "*")
	out = multiNewlineRE.ReplaceAllString(out, "\n\n")
	out = blankLineRE.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

// splitSentences cuts text into segments each ending at a sentence terminator
// (or at end of input), terminator and trailing whitespace included, so
// rejoining untouched segments reproduces the original text.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '!', '?':
			end := i + 1
			for end < len(runes) && (runes[end] == ' ' || runes[end] == '\n' || runes[end] == '\t') {
				end++
			}
			sentences = append(sentences, string(runes[start:end]))
			start = end
			i = end - 1
		}
	}
	if start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}
	return sentences
}

func containsDisclaimer(sentence string) bool {
	lower := strings.ToLower(sentence)
	for _, kw := range disclaimerKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
