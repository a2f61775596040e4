// Package wake implements wake-phrase detection on transcribed speech.
//
// Detection runs on text, not audio: the speech-to-text provider transcribes
// everything the microphone hears, and the Detector checks each transcript for
// the configured wake phrase. The primary check is a case-insensitive substring
// match, which tolerates the recogniser gluing the phrase onto surrounding
// words ("hey sonant what time is it").
//
// An optional phonetic mode widens the net for misrecognised phrases ("hay
// sonnet"): Double Metaphone codes plus Jaro-Winkler ranking over sliding
// token windows, the same two-stage scheme used for entity correction. It is
// off by default because it raises the false-trigger rate.
package wake

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const defaultPhoneticThreshold = 0.82

// Option is a functional option for configuring a [Detector].
type Option func(*Detector)

// WithPhoneticMatching enables phonetic tolerance for misrecognised wake
// phrases. threshold is the minimum Jaro-Winkler score for a phonetic
// candidate to be accepted; pass 0 to use the default of 0.82.
func WithPhoneticMatching(threshold float64) Option {
	return func(d *Detector) {
		d.phonetic = true
		if threshold > 0 {
			d.phoneticThreshold = threshold
		}
	}
}

// Detector scans transcript text for a wake phrase. It is read-only after
// construction and safe for concurrent use.
type Detector struct {
	phrase       string
	phraseTokens []string
	phraseCodes  map[string]struct{}

	phonetic          bool
	phoneticThreshold float64
}

// New returns a Detector for the given wake phrase. The phrase is matched
// case-insensitively; leading and trailing whitespace is ignored.
func New(phrase string, opts ...Option) *Detector {
	lower := strings.ToLower(strings.TrimSpace(phrase))
	d := &Detector{
		phrase:            lower,
		phraseTokens:      strings.Fields(lower),
		phoneticThreshold: defaultPhoneticThreshold,
	}
	for _, o := range opts {
		o(d)
	}
	if d.phonetic {
		d.phraseCodes = codesForTokens(d.phraseTokens)
	}
	return d
}

// Phrase returns the normalised wake phrase.
func (d *Detector) Phrase() string { return d.phrase }

// Match reports whether text contains the wake phrase. An empty configured
// phrase never matches.
func (d *Detector) Match(text string) bool {
	if d.phrase == "" {
		return false
	}
	lower := strings.ToLower(text)
	if strings.Contains(lower, d.phrase) {
		return true
	}
	if d.phonetic {
		return d.matchPhonetic(lower)
	}
	return false
}

// matchPhonetic slides a window of len(phraseTokens) tokens across the text
// and accepts a window whose phonetic codes overlap the phrase's codes and
// whose Jaro-Winkler similarity to the phrase clears the threshold.
func (d *Detector) matchPhonetic(lower string) bool {
	tokens := strings.Fields(lower)
	n := len(d.phraseTokens)
	if n == 0 || len(tokens) < n {
		return false
	}

	for i := 0; i+n <= len(tokens); i++ {
		window := tokens[i : i+n]
		if !codesOverlap(d.phraseCodes, codesForTokens(window)) {
			continue
		}
		candidate := strings.Join(window, " ")
		if matchr.JaroWinkler(candidate, d.phrase, false) >= d.phoneticThreshold {
			return true
		}
	}
	return false
}

// codesForTokens returns the union of all Double Metaphone codes for the
// given tokens. Empty codes are excluded.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

// codesOverlap returns true if the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}
