package critic

import (
	"strings"
	"unicode"
)

// SentenceSplitter breaks a paragraph of prose into sentences
type SentenceSplitter interface {
	Split(text string) []string
}

// PunctuationSplitter ends a sentence after ".", "!" or "?" when whitespace follows.
// Abbreviations such as "t.ex. " are split too.
type PunctuationSplitter struct{}

// Split splits text into trimmed, non-empty sentences
func (PunctuationSplitter) Split(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)

		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			if sentence := strings.TrimSpace(current.String()); sentence != "" {
				sentences = append(sentences, sentence)
			}
			current.Reset()
		}
	}

	if sentence := strings.TrimSpace(current.String()); sentence != "" {
		sentences = append(sentences, sentence)
	}

	return sentences
}
