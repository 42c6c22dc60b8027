// Package emotion converts free-text mood labels into a comparable daily
// "bliss score". All tables are immutable after process start and every
// function is pure, so the package is safe for concurrent use.
package emotion

// Valence maps an emotion label to an approximate pleasantness score.
// Scale is roughly -3 (extremely unpleasant) to +3 (extremely pleasant),
// in line with circumplex valence models. Unknown labels score 0.
var Valence = map[string]float64{
	// Strong positive / high pleasant affect
	"Ecstasy":      3,
	"Happy":        2.5,
	"Excited":      2.2,
	"Love":         2.5,
	"Optimism":     2.2,
	"Proud":        2.2,
	"Gratitude":    2.2,
	"Grateful":     2.2,
	"Admiration":   2,
	"Adoration":    2,
	"Amazement":    2,
	"Satisfaction": 1.8,
	"Serenity":     1.8,
	"Relieved":     1.5,
	"Hopeful":      1.5,
	"Interest":     1.2,
	"Acceptance":   1.0,
	"Calm":         1.0,

	// Mixed / reflective / low-intensity states
	"Nostalgia":   0.5, // bittersweet but generally mood-supportive
	"Pensiveness": 0.2,
	"Bored":       -0.2,
	"Distraction": -0.2,

	// Mild negative
	"Tired":        -0.6,
	"Confused":     -0.6,
	"Awkwardness":  -0.7,
	"Annoyance":    -0.8,
	"Apprehension": -1.0,
	"Anxious":      -1.4,
	"Guilty":       -1.4,
	"Jealous":      -1.4,
	"Lonely":       -1.6,
	"Sad":          -1.8,
	"Frustrated":   -1.8,

	// Strong negative / high distress
	"Angry":          -2.2,
	"Disapproval":    -2.0,
	"Contempt":       -2.0,
	"Loathing":       -2.3,
	"Scared":         -2.3,
	"Rage":           -2.5,
	"Aggressiveness": -2.6,
	"Grief":          -2.8,
	"Horror":         -3.0,
	"Terror":         -3.0,

	// Self-reported unclear states
	"I'm not sure (Overwhelmed)": -0.8,
	"I'm not sure (Numb)":        0,
	"I'm not sure (Mixed)":       0,
}

// TriadWeights are the positional multipliers for the primary, secondary
// and tertiary mood of an entry. Labels past the third are ignored.
var TriadWeights = [3]float64{1.0, 0.6, 0.3}
