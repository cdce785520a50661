// Package entropy scores how random a candidate string looks. Pattern rules
// use it to boost confidence; the generic sweep uses it as its only signal.
package entropy

import "math"

// Shannon returns the Shannon entropy of s in bits per character.
func Shannon(s string) float64 {
	if s == "" {
		return 0
	}
	count := map[rune]int{}
	for _, r := range s {
		count[r]++
	}
	h := 0.0
	n := float64(len([]rune(s)))
	for _, c := range count {
		p := float64(c) / n
		h += -p * math.Log2(p)
	}
	return h
}

// maxBits is the per-character entropy ceiling used for normalization. A
// uniformly random base64 string approaches 6 bits/char; anything at or
// above this is maximally suspicious.
const maxBits = 6.0

// Score returns a normalized randomness score in [0,1] for candidate.
// Shannon entropy is scaled by charset diversity: a string drawing on mixed
// case, digits and symbols is more suspicious than one of pure lowercase,
// even at similar raw entropy. Empty input scores 0.
func Score(candidate string) float64 {
	if candidate == "" {
		return 0
	}
	norm := Shannon(candidate) / maxBits
	if norm > 1 {
		norm = 1
	}
	return norm * diversity(candidate)
}

// diversity returns a multiplier in (0,1] based on how many character
// classes appear in s: lowercase, uppercase, digits, and symbols.
func diversity(s string) float64 {
	var lower, upper, digit, symbol bool
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			symbol = true
		}
	}
	classes := 0
	for _, b := range []bool{lower, upper, digit, symbol} {
		if b {
			classes++
		}
	}
	switch classes {
	case 1:
		return 0.55
	case 2:
		return 0.8
	case 3:
		return 0.95
	default:
		return 1.0
	}
}
