package chunker

import (
	"strings"
	"unicode"
)

// Normalize trims text and collapses runs of whitespace to single spaces.
func Normalize(text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	wasSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
		} else {
			b.WriteRune(r)
			wasSpace = false
		}
	}
	return b.String()
}

// SplitSentences splits normalized text on sentence boundaries: after a run of
// '.', '!' or '?' followed by a space. The separator space is consumed, so
// strings.Join(sentences, " ") reconstructs the input exactly. Text with no
// terminal punctuation comes back as a single sentence.
func SplitSentences(text string) []string {
	if text == "" {
		return nil
	}
	var sentences []string
	start := 0
	for i := 0; i < len(text)-1; i++ {
		if isTerminator(text[i]) && text[i+1] == ' ' {
			sentences = append(sentences, text[start:i+1])
			start = i + 2
			i++ // skip the separator space
		}
	}
	if start < len(text) {
		sentences = append(sentences, text[start:])
	}
	return sentences
}

func isTerminator(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}
