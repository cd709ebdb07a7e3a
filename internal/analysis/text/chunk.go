// Package text prepares assistant replies for speech synthesis.
package text

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zhouzirui/voicemate/backend/internal/provider"
)

// Sanitize drops control characters and collapses whitespace runs into single spaces.
func Sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	pendingSpace := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
		case unicode.IsControl(r), r == utf8.RuneError:
			continue
		default:
			if pendingSpace {
				b.WriteByte(' ')
				pendingSpace = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// WordCount counts whitespace separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// SplitSentences cuts sanitized text after '.', '!' or '?' when followed by whitespace.
func SplitSentences(s string) []string {
	runes := []rune(s)
	var sentences []string

	start := 0
	for i, r := range runes {
		if !isTerminal(r) || i+1 >= len(runes) || !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if sentence := strings.TrimSpace(string(runes[start : i+1])); sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = i + 1
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

// ChunkForSynthesis splits text into pieces of at most maxLen runes, preferring sentence
// boundaries. Sentences that fit are packed greedily, joined by a single space.
func ChunkForSynthesis(text string, maxLen int) ([]string, error) {
	if maxLen <= 0 {
		return nil, fmt.Errorf("%w: chunk length must be positive, got %d", provider.ErrInvalidInput, maxLen)
	}

	clean := Sanitize(text)
	if clean == "" {
		return nil, fmt.Errorf("%w: text is empty", provider.ErrInvalidInput)
	}

	var (
		chunks     []string
		current    strings.Builder
		currentLen int
	)
	flush := func() {
		if currentLen > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, sentence := range SplitSentences(clean) {
		for _, piece := range splitLong(sentence, maxLen) {
			n := utf8.RuneCountInString(piece)
			if currentLen > 0 && currentLen+1+n > maxLen {
				flush()
			}
			if currentLen > 0 {
				current.WriteByte(' ')
				currentLen++
			}
			current.WriteString(piece)
			currentLen += n
		}
	}
	flush()

	return chunks, nil
}

// splitLong cuts a sentence longer than maxLen at the last space inside the limit,
// or mid-word when there is none. Nothing is dropped except the space at a cut.
func splitLong(sentence string, maxLen int) []string {
	runes := []rune(sentence)
	var pieces []string

	for len(runes) > maxLen {
		cut := -1
		for i := maxLen; i > 0; i-- {
			if runes[i] == ' ' {
				cut = i
				break
			}
		}

		if cut > 0 {
			pieces = append(pieces, string(runes[:cut]))
			runes = runes[cut+1:]
		} else {
			pieces = append(pieces, string(runes[:maxLen]))
			runes = runes[maxLen:]
		}
	}
	if len(runes) > 0 {
		pieces = append(pieces, string(runes))
	}
	return pieces
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
