package entropy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShannonEmpty(t *testing.T) {
	assert.Equal(t, 0.0, Shannon(""))
	assert.Equal(t, 0.0, Score(""))
}

func TestShannonSingleChar(t *testing.T) {
	// A run of one repeated character carries no information.
	assert.Equal(t, 0.0, Shannon("aaaaaaaaaa"))
}

func TestScoreRandomTokenHigh(t *testing.T) {
	s := Score("aB3dE9fG1hI7jK2lM8nO4pQ6rS0tU5vW")
	assert.Greater(t, s, 0.7, "mixed-case random token should score high")
}

func TestScoreLowercaseWordsLow(t *testing.T) {
	// 40 chars of plain dictionary words: long, but low entropy per char
	// and a single character class.
	s := Score("correcthorsebatterystapleelephantbanana")
	assert.Less(t, s, 0.45, "dictionary words should score low")
}

func TestScoreOrdering(t *testing.T) {
	low := Score("aaaaaaaaaaaaaaaaaaaaaaaa")
	words := Score("passwordpasswordpassword")
	random := Score("wJalrXUtnFEMI/K7MDENG/bPxRfiCYEXAMPLEKEY")
	assert.Less(t, low, words)
	assert.Less(t, words, random)
}

func TestScoreBounded(t *testing.T) {
	for _, s := range []string{"a", "Ab1!", "wJalrXUtnFEMI/K7MDENG/bPxRfiCYEXAMPLEKEY", "0000000000"} {
		v := Score(s)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}
