package services

import (
	"strings"
	"unicode"
)

// NameNormalizer strips corporate noise words from scraped IPO names.
// "Alpha Tech Limited IPO" and "alpha tech ltd." normalize to the same key.
type NameNormalizer struct {
	noiseWords map[string]struct{}
}

// NewNameNormalizer creates a normalizer for the given noise words (case-insensitive)
func NewNameNormalizer(noiseWords []string) *NameNormalizer {
	noise := make(map[string]struct{}, len(noiseWords))
	for _, word := range noiseWords {
		word = strings.ToLower(strings.TrimSpace(word))
		if word != "" {
			noise[word] = struct{}{}
		}
	}
	return &NameNormalizer{noiseWords: noise}
}

func isTokenRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (n *NameNormalizer) isNoise(word string) bool {
	_, noise := n.noiseWords[strings.ToLower(word)]
	return noise
}

// SearchQuery returns the name with noise words removed and whitespace collapsed,
// keeping the original casing of the remaining words
func (n *NameNormalizer) SearchQuery(name string) string {
	words := strings.Fields(name)
	kept := words[:0:0]
	for _, word := range words {
		core := strings.TrimFunc(word, func(r rune) bool { return !isTokenRune(r) })
		if core == "" || n.isNoise(core) {
			continue
		}
		kept = append(kept, word)
	}
	return strings.Join(kept, " ")
}

// CacheKey returns the lower-cased search query used as the ticker cache key
func (n *NameNormalizer) CacheKey(name string) string {
	return strings.ToLower(n.SearchQuery(name))
}

// Tokens splits name into lower-cased alphanumeric tokens without noise words.
// Order follows the name and duplicates are kept.
func (n *NameNormalizer) Tokens(name string) []string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool { return !isTokenRune(r) })
	tokens := fields[:0]
	for _, field := range fields {
		if n.isNoise(field) {
			continue
		}
		tokens = append(tokens, field)
	}
	return tokens
}
