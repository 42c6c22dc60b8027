package emotion

import (
	"math"
	"unicode"
)

// ScoreEmotion returns the valence of a single label. Lookup is retried
// with the first rune upper-cased to absorb minor case mismatches from
// clients. An unknown label is neutral, never an error.
func ScoreEmotion(label string) float64 {
	if label == "" {
		return 0
	}
	if v, ok := Valence[label]; ok {
		return v
	}
	if v, ok := Valence[capitalize(label)]; ok {
		return v
	}
	return 0
}

// ScoreTriad scores an entry's ordered mood labels. Only the first three
// labels count, weighted by TriadWeights, and the sum is clamped to [-3, 3].
func ScoreTriad(mood []string) float64 {
	if len(mood) > len(TriadWeights) {
		mood = mood[:len(TriadWeights)]
	}
	var sum float64
	for i, label := range mood {
		sum += ScoreEmotion(label) * TriadWeights[i]
	}
	return clamp(sum, -3, 3)
}

// DailyBlissScore averages the triad scores of one day's entries and
// rescales the mean from [-3, 3] to [-100, 100], rounding half away from
// zero. A day with no entries scores 0; callers that need to distinguish
// "no data" from "neutral data" must track entry counts themselves.
func DailyBlissScore(moods [][]string) int {
	if len(moods) == 0 {
		return 0
	}
	var sum float64
	for _, mood := range moods {
		sum += ScoreTriad(mood)
	}
	avg := sum / float64(len(moods))
	return int(math.Round(avg / 3 * 100))
}

// Bucket names for BlissBucket, ordered from worst to best day.
const (
	BucketCrisis    = "crisis"
	BucketLow       = "low"
	BucketFlat      = "flat"
	BucketOkay      = "okay"
	BucketGood      = "good"
	BucketExcellent = "excellent"
)

// BlissBucket maps a bliss score to one of six display buckets. Boundaries
// are inclusive upper bounds, so every integer maps to exactly one bucket.
func BlissBucket(score int) string {
	switch {
	case score <= -60:
		return BucketCrisis
	case score <= -30:
		return BucketLow
	case score <= 10:
		return BucketFlat
	case score <= 40:
		return BucketOkay
	case score <= 70:
		return BucketGood
	default:
		return BucketExcellent
	}
}

// BlissOpacity returns a presentation weight in [0.25, 0.85] that grows
// with the magnitude of the score.
func BlissOpacity(score int) float64 {
	abs := math.Min(100, math.Abs(float64(score)))
	return 0.25 + abs/100*0.6
}

func capitalize(s string) string {
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
