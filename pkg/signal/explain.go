package signal

import "fmt"

var fixedImpact = []string{
	"Potential schedule disruption for vessels calling at this port.",
	"Downstream berth and yard planning may need to be re-sequenced.",
}

var fixedFollowups = []string{
	"Cross-check with port authority notices for known causes (weather, strikes, congestion).",
	"Review subscribed carriers' ETAs for this port over the next 72 hours.",
}

// Explain builds the deterministic human-readable explanation string for a
// detector result: a metric detail line, a rationale line, then the fixed
// impact and followups lines.
func Explain(r DetectorResult) string {
	detail := metricDetailLine(r)
	rationale := rationaleLine(r)
	return fmt.Sprintf("%s %s Impact: %s Recommended follow-ups: %s",
		detail, rationale, fixedImpact[0], fixedFollowups[0])
}

func metricDetailLine(r DetectorResult) string {
	return fmt.Sprintf("%s observed at %.1f against a baseline of %.1f (%+.1f%%).",
		titleMetric(r.Driver.Metric), r.Value, r.Baseline, r.DeltaPct)
}

func rationaleLine(r DetectorResult) string {
	if r.ZScore != nil {
		return fmt.Sprintf("This is a z-score of %.2f against the trailing 30-day window, classified %s.", *r.ZScore, r.Severity)
	}
	if r.Multiplier != nil {
		return fmt.Sprintf("This is %.1fx the trailing 30-day average, classified %s.", *r.Multiplier, r.Severity)
	}
	return fmt.Sprintf("Classified %s.", r.Severity)
}

// BuildMetadata assembles the structured metadata object stored alongside
// the explanation.
func BuildMetadata(drivers []Driver, historyDaysUsed int) Metadata {
	pct, missing := Completeness(historyDaysUsed)
	return Metadata{
		Drivers: drivers,
		DataQuality: DataQuality{
			HistoryDaysUsed: historyDaysUsed,
			CompletenessPct: pct,
			MissingPoints:   missing,
		},
		Impact:               fixedImpact,
		RecommendedFollowups: fixedFollowups,
	}
}
