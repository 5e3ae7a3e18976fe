package logic

import (
	"fmt"
	"math"
	"strconv"
)

// RiskLevel is the categorical classification of a blink rate.
// The zero value is not a level; it marks "not classified yet".
type RiskLevel int

const (
	RiskUncertain RiskLevel = iota + 1
	RiskHighRisk
	RiskNormal
	RiskStress
)

func (r RiskLevel) String() string {
	switch r {
	case RiskHighRisk:
		return "high-risk"
	case RiskNormal:
		return "normal"
	case RiskStress:
		return "stress"
	case RiskUncertain:
		return "uncertain"
	default:
		return "unknown"
	}
}

// MarshalText encodes the level by its wire name.
func (r RiskLevel) MarshalText() ([]byte, error) {
	switch r {
	case RiskHighRisk, RiskNormal, RiskStress, RiskUncertain:
		return []byte(r.String()), nil
	}
	return nil, fmt.Errorf("invalid risk level %d", int(r))
}

// UnmarshalText decodes a wire name.
func (r *RiskLevel) UnmarshalText(b []byte) error {
	switch string(b) {
	case "high-risk":
		*r = RiskHighRisk
	case "normal":
		*r = RiskNormal
	case "stress":
		*r = RiskStress
	case "uncertain":
		*r = RiskUncertain
	default:
		return fmt.Errorf("invalid risk level %q", string(b))
	}
	return nil
}

// Thresholds are the blinks-per-minute band edges.
type Thresholds struct {
	HighRiskBelow float64
	NormalMin     float64
	NormalMax     float64
	StressAtLeast float64
}

// DefaultThresholds returns the 10/12/15/18 bands.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighRiskBelow: 10,
		NormalMin:     12,
		NormalMax:     15,
		StressAtLeast: 18,
	}
}

// Classifier maps blink rates to assessments.
type Classifier struct {
	th Thresholds
}

// NewClassifier creates a classifier for the given bands.
func NewClassifier(th Thresholds) *Classifier {
	return &Classifier{th: th}
}

// Thresholds returns the configured bands.
func (c *Classifier) Thresholds() Thresholds {
	return c.th
}

// Classify is total: every rate falls in exactly one level.
func (c *Classifier) Classify(rate float64) RiskLevel {
	switch {
	case rate < c.th.HighRiskBelow:
		return RiskHighRisk
	case rate >= c.th.NormalMin && rate <= c.th.NormalMax:
		return RiskNormal
	case rate >= c.th.StressAtLeast:
		return RiskStress
	default:
		return RiskUncertain
	}
}

// Score returns the 0-100 eye health score for a level and rate.
// Uncertain shares the Normal formula.
func Score(level RiskLevel, rate float64) int {
	var s float64
	switch level {
	case RiskHighRisk:
		s = math.Max(30, 60-rate*2)
	case RiskStress:
		s = math.Min(70, 40+rate)
	default:
		s = math.Min(95, 70+rate)
	}
	s = math.Round(s)
	if !(s >= 0) {
		return 0
	}
	if s > 100 {
		return 100
	}
	return int(s)
}

// LevelText returns the display label and description for a level.
func LevelText(level RiskLevel) (label, description string) {
	switch level {
	case RiskHighRisk:
		return "High Risk", "Risk of Dry Eye"
	case RiskStress:
		return "Elevated", "Possible Stress/Depression"
	case RiskUncertain:
		return "Borderline", "Outside Typical Ranges"
	default:
		return "Normal", "Healthy Eye Function"
	}
}

// Recommendations returns the ordered advice list for a level. The rate is
// interpolated into the first line.
func Recommendations(level RiskLevel, rate float64) []string {
	r := formatRate(rate)
	switch level {
	case RiskHighRisk:
		return []string{
			fmt.Sprintf("Your blink rate of %s/min is below normal (12-15/min)", r),
			"Consider using artificial tears or eye drops",
			"Take more frequent breaks from screen time (20-20-20 rule)",
			"Increase environmental humidity",
			"Consult an eye care professional if symptoms persist",
		}
	case RiskStress:
		return []string{
			fmt.Sprintf("Your blink rate of %s/min is elevated, possibly indicating stress", r),
			"Practice stress management techniques",
			"Consider meditation or relaxation exercises",
			"Ensure adequate sleep (7-8 hours nightly)",
			"Consult a healthcare provider if stress symptoms persist",
		}
	case RiskUncertain:
		return []string{
			fmt.Sprintf("Your blink rate of %s/min is close to, but outside, the normal range (12-15/min)", r),
			"Repeat the analysis in a relaxed setting to confirm",
			"Maintain good screen hygiene with regular breaks",
			"Keep your environment adequately humidified",
		}
	default:
		return []string{
			fmt.Sprintf("Your blink rate of %s/min is within normal range", r),
			"Continue current eye care habits",
			"Maintain good screen hygiene with regular breaks",
			"Keep your environment adequately humidified",
		}
	}
}

// IncompletePercent returns round(incomplete / (complete+incomplete) * 100), or 0.
func IncompletePercent(complete, incomplete int) int {
	total := complete + incomplete
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(incomplete) / float64(total) * 100))
}

// Assess builds an assessment from finalized counters.
func (c *Classifier) Assess(counters Counters) Assessment {
	return c.AssessRate(BlinkRate(counters.CompleteBlinks, counters.ElapsedSeconds), counters)
}

// AssessRate builds an assessment for a given blink rate. The counters are
// carried through for display and the incomplete percentage only.
func (c *Classifier) AssessRate(rate float64, counters Counters) Assessment {
	level := c.Classify(rate)
	label, desc := LevelText(level)
	return Assessment{
		ElapsedSeconds:    counters.ElapsedSeconds,
		CompleteBlinks:    counters.CompleteBlinks,
		IncompleteBlinks:  counters.IncompleteBlinks,
		BlinkRate:         rate,
		Level:             level,
		Label:             label,
		Description:       desc,
		HealthScore:       Score(level, rate),
		IncompletePercent: IncompletePercent(counters.CompleteBlinks, counters.IncompleteBlinks),
		Recommendations:   Recommendations(level, rate),
	}
}

// formatRate renders a rate with at most one decimal, dropping a trailing ".0".
func formatRate(rate float64) string {
	return strconv.FormatFloat(math.Round(rate*10)/10, 'f', -1, 64)
}
