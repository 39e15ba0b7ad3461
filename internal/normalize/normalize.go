// Package normalize tokenizes free text into a deterministic sequence of
// normalized tokens and stems, per the text normalizer contract: given the
// same bytes in, the same tokens and stems come out, always.
package normalize

import (
	"strings"
	"sync/atomic"
)

// suffixes are stripped in order, first match wins, at most one strip per
// token. This is intentionally shallow — a forgiving-match aid, not a
// linguistically correct stemmer.
var suffixes = []string{"ing", "ed", "es", "s", "ly", "er", "est"}

// stemmerEnabled gates stem(); process-global because Text's signature is
// fixed (callers across internal/indexer, internal/search, and
// internal/recommend all call normalize.Text(s) directly with no config
// parameter to thread an override through). Config.StemmerEnabled is wired
// to this via SetStemmerEnabled at facade.Open time.
var stemmerEnabled atomic.Bool

func init() { stemmerEnabled.Store(true) }

// SetStemmerEnabled turns stemming on or off for every future call to Text
// in this process. Tokens and stop-word filtering are unaffected either
// way; only Result.Stems changes, falling back to the unstemmed token when
// disabled.
func SetStemmerEnabled(enabled bool) { stemmerEnabled.Store(enabled) }

// Result holds the outcome of normalizing one field of text.
type Result struct {
	Tokens        []string
	Stems         []string
	StopWordsDrop int
}

// Text tokenizes s: lowercases, collapses any run of characters outside
// [a-z0-9] (hyphen included) to a single space, splits on whitespace, drops empty tokens
// and stop-words, then stems what remains.
func Text(s string) Result {
	lower := strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(lower))
	prevSpace := false
	for _, r := range lower {
		if isTokenRune(r) {
			b.WriteRune(r)
			prevSpace = false
			continue
		}
		if !prevSpace {
			b.WriteByte(' ')
			prevSpace = true
		}
	}

	fields := strings.Fields(b.String())
	res := Result{
		Tokens: make([]string, 0, len(fields)),
		Stems:  make([]string, 0, len(fields)),
	}
	for _, f := range fields {
		if f == "" {
			continue
		}
		if isStopWord(f) {
			res.StopWordsDrop++
			continue
		}
		res.Tokens = append(res.Tokens, f)
		res.Stems = append(res.Stems, stem(f))
	}
	return res
}

// isTokenRune reports whether r belongs inside a token. The spec's prose
// names [A-Za-z0-9-] as the kept character class, but its own worked
// example ("Running-Services_and_More" -> "running","services","more")
// splits on the hyphen exactly like any other separator, so hyphen is
// treated as a separator here to match the specified behavior rather than
// the specified prose (see DESIGN.md Open Question decisions).
func isTokenRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= '0' && r <= '9':
		return true
	}
	return false
}

// stem strips the first matching suffix from suffixes, in order, applying
// at most one strip. A stripped token shorter than 2 runes is not worth
// stemming further and is returned unchanged to avoid degenerate matches
// like "is" -> "".
func stem(tok string) string {
	if !stemmerEnabled.Load() {
		return tok
	}
	for _, suf := range suffixes {
		if len(tok) <= len(suf) {
			continue
		}
		if strings.HasSuffix(tok, suf) {
			stripped := tok[:len(tok)-len(suf)]
			if len(stripped) < 2 {
				return tok
			}
			return stripped
		}
	}
	return tok
}

// Stems is a convenience wrapper returning just the stem slice for s.
func Stems(s string) []string {
	return Text(s).Stems
}
