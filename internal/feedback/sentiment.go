package feedback

import (
	"strings"
	"unicode"
)

// Sentiment labels.
const (
	Positive = "positive"
	Neutral  = "neutral"
	Negative = "negative"
)

const labelThreshold = 0.2

// polarity scores for common review vocabulary, in [-1, 1].
var lexicon = map[string]float64{
	"good": 0.7, "great": 0.8, "excellent": 1.0, "helpful": 0.6, "useful": 0.5,
	"clear": 0.4, "accurate": 0.6, "perfect": 1.0, "love": 0.5, "nice": 0.6,
	"thorough": 0.5, "precise": 0.5, "correct": 0.5, "insightful": 0.7,
	"amazing": 0.8, "fantastic": 0.8, "easy": 0.4, "fast": 0.2, "solid": 0.4,
	"bad": -0.7, "poor": -0.6, "wrong": -0.5, "useless": -0.8, "confusing": -0.5,
	"unclear": -0.4, "inaccurate": -0.6, "terrible": -1.0, "awful": -1.0,
	"slow": -0.3, "vague": -0.5, "missing": -0.3, "incorrect": -0.6,
	"hate": -0.8, "broken": -0.6, "irrelevant": -0.5, "worse": -0.6, "worst": -1.0,
}

var intensifiers = map[string]float64{
	"very": 1.3, "really": 1.3, "extremely": 1.5, "quite": 1.1, "so": 1.2,
}

var negations = map[string]bool{
	"not": true, "no": true, "never": true, "isn't": true, "wasn't": true,
	"don't": true, "doesn't": true, "didn't": true, "hardly": true,
}

// Polarity scores comment in [-1, 1] as the mean polarity of the lexicon
// words it contains. A preceding negation flips and halves a word's score;
// a preceding intensifier scales it.
func Polarity(comment string) float64 {
	words := strings.FieldsFunc(strings.ToLower(comment), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})

	var sum float64
	var n int
	for i, w := range words {
		score, ok := lexicon[w]
		if !ok {
			continue
		}
		if i > 0 {
			if f, ok := intensifiers[words[i-1]]; ok {
				score *= f
			}
		}
		for j := i - 1; j >= 0 && j >= i-2; j-- {
			if negations[words[j]] {
				score *= -0.5
				break
			}
		}
		sum += score
		n++
	}
	if n == 0 {
		return 0
	}
	p := sum / float64(n)
	return max(-1, min(1, p))
}

// Label maps a comment to positive, neutral or negative.
func Label(comment string) string {
	p := Polarity(comment)
	switch {
	case p > labelThreshold:
		return Positive
	case p < -labelThreshold:
		return Negative
	default:
		return Neutral
	}
}
