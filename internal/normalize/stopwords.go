package normalize

// stopWords is the conventional English short list: articles, common
// prepositions, auxiliary verbs, pronouns. Changing this set changes the
// fingerprint below and requires a full reindex (spec §4.1).
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {},
	"and": {}, "or": {}, "but": {}, "nor": {},
	"in": {}, "on": {}, "at": {}, "by": {}, "for": {}, "with": {}, "about": {},
	"against": {}, "between": {}, "into": {}, "through": {}, "during": {},
	"before": {}, "after": {}, "above": {}, "below": {}, "to": {}, "from": {},
	"up": {}, "down": {}, "of": {}, "off": {}, "over": {}, "under": {},
	"is": {}, "am": {}, "are": {}, "was": {}, "were": {}, "be": {}, "been": {},
	"being": {}, "have": {}, "has": {}, "had": {}, "do": {}, "does": {}, "did": {},
	"will": {}, "would": {}, "shall": {}, "should": {}, "can": {}, "could": {},
	"may": {}, "might": {}, "must": {},
	"i": {}, "you": {}, "he": {}, "she": {}, "it": {}, "we": {}, "they": {},
	"me": {}, "him": {}, "her": {}, "us": {}, "them": {}, "my": {}, "your": {},
	"his": {}, "its": {}, "our": {}, "their": {}, "this": {}, "that": {},
	"these": {}, "those": {},
}

// StopWordFingerprint identifies the exact stop-word set used to build an
// index. Search engines and indexers must agree on this value; the spec
// treats a mismatch as a reindex trigger, so it is exposed rather than
// buried as a package-private constant.
const StopWordFingerprint = "en-short-v1"

func isStopWord(tok string) bool {
	_, ok := stopWords[tok]
	return ok
}
