package signal

import "math"

// ZScoreConfidence converts a z-score magnitude into a raw confidence score
// in [0,1].
func ZScoreConfidence(z float64) float64 {
	return math.Min(1, math.Abs(z)/6)
}

// MultiplierConfidence converts a ratio-to-baseline multiplier into a raw
// confidence score in [0,1].
func MultiplierConfidence(m float64) float64 {
	score := (m - 1) / 3
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func band(score float64) string {
	switch {
	case score >= 0.8:
		return BandHigh
	case score >= 0.5:
		return BandMedium
	default:
		return BandLow
	}
}

// AdjustForCompleteness applies the data-quality discount described in the
// detector contract: a completeness below 90% always discounts the score by
// 25%; below 85% the band is forced to LOW regardless of score; otherwise a
// HIGH band is demoted one notch to MEDIUM.
func AdjustForCompleteness(score float64, completenessPct int) (float64, string) {
	b := band(score)
	if completenessPct >= 90 {
		return score, b
	}

	score *= 0.75
	if completenessPct < 85 {
		return score, BandLow
	}
	if b == BandHigh {
		b = BandMedium
	}
	return score, b
}
