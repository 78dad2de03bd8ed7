package metrics

// MissingLatency stands in for an absent time-to-first-fixation when scoring.
const MissingLatency = 99999.0

// Classification labels, best to worst.
const (
	LabelEfficient      = "Efficient"
	LabelAcceptable     = "Acceptable"
	LabelNeedsAttention = "Needs Attention"
	LabelHighRisk       = "High Risk"
)

// Lower bounds of each classification band.
const (
	ThresholdEfficient      = 85
	ThresholdAcceptable     = 70
	ThresholdNeedsAttention = 50
)

// BasicScore awards additive bonuses for short fixations and a quick first look.
//
//	+40  avg < 200ms
//	+30  first < 1000ms
//	+30  avg < 180ms and first < 800ms
func BasicScore(avgFix, firstFix float64) int {
	score := 0
	if avgFix < 200 {
		score += 40
	}
	if firstFix < 1000 {
		score += 30
	}
	if avgFix < 180 && firstFix < 800 {
		score += 30
	}
	return score
}

// AOIScore awards additive bonuses over coverage, fixation length and label latency.
// The coverage bonuses stack.
//
//	+30  coverage >= 90
//	+10  avg < 200ms
//	+15  label latency < 1000ms
//	+20  coverage > 95
//	+25  coverage > 85 and avg < 220ms
func AOIScore(coverage, avgFix, labelFirst float64) int {
	score := 0
	if coverage >= 90 {
		score += 30
	}
	if avgFix < 200 {
		score += 10
	}
	if labelFirst < 1000 {
		score += 15
	}
	if coverage > 95 {
		score += 20
	}
	if coverage > 85 && avgFix < 220 {
		score += 25
	}
	return score
}

// Classify maps a score to its band label.
func Classify(score int) string {
	switch {
	case score >= ThresholdEfficient:
		return LabelEfficient
	case score >= ThresholdAcceptable:
		return LabelAcceptable
	case score >= ThresholdNeedsAttention:
		return LabelNeedsAttention
	default:
		return LabelHighRisk
	}
}
