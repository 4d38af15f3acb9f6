package signal

import (
	"fmt"

	"github.com/veriscope/veriscope/pkg/baseline"
)

// DetectorResult is what a single detector produces before clustering,
// confidence-completeness adjustment, and explanation text are attached.
type DetectorResult struct {
	SignalType string
	Severity   string
	Value      float64
	Baseline   float64
	Stddev     float64
	ZScore     *float64
	Multiplier *float64
	DeltaPct   float64
	RawScore   float64
	Method     string
	Driver     Driver
}

// Completeness computes the data-quality fields from how many of the last
// 30 days actually have a baseline row.
func Completeness(historyDays int) (pct int, missing int) {
	pct = int(float64(historyDays) / 30.0 * 100)
	missing = 30 - historyDays
	if missing < 0 {
		missing = 0
	}
	return pct, missing
}

func deltaPct(value, avg float64) float64 {
	if avg == 0 {
		return 0
	}
	return (value - avg) / avg * 100
}

func severityFromZ(absZ float64) string {
	switch {
	case absZ >= 5:
		return SeverityCritical
	case absZ >= 3:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

func severityFromMultiplier(m float64) string {
	switch {
	case m >= 4:
		return SeverityCritical
	case m >= 2:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

// DetectArrivalsAnomaly fires when arrivals deviate from the 30-day average
// by at least 2 standard deviations in either direction.
func DetectArrivalsAnomaly(today baseline.Baseline) (DetectorResult, bool) {
	if today.Arrivals30dAvg == nil || today.Arrivals30dStd == nil {
		return DetectorResult{}, false
	}
	avg, std := *today.Arrivals30dAvg, *today.Arrivals30dStd

	z, ok := baseline.ZScore(float64(today.Arrivals), avg, std)
	if !ok || absf(z) < 2 {
		return DetectorResult{}, false
	}

	severity := severityFromZ(absf(z))
	dp := deltaPct(float64(today.Arrivals), avg)
	return DetectorResult{
		SignalType: TypeArrivalsAnomaly,
		Severity:   severity,
		Value:      float64(today.Arrivals),
		Baseline:   avg,
		Stddev:     std,
		ZScore:     &z,
		DeltaPct:   dp,
		RawScore:   ZScoreConfidence(z),
		Method:     MethodZScore,
		Driver: Driver{
			Metric:   "arrivals",
			Value:    float64(today.Arrivals),
			Baseline: avg,
			Stddev:   std,
			DeltaPct: dp,
			ZScore:   &z,
		},
	}, true
}

// DetectDwellSpike fires when average dwell time spikes at least 2 standard
// deviations above the 30-day average (positive direction only).
func DetectDwellSpike(today baseline.Baseline) (DetectorResult, bool) {
	if today.AvgDwellHours == nil || today.Dwell30dAvg == nil || today.Dwell30dStd == nil {
		return DetectorResult{}, false
	}
	avg, std := *today.Dwell30dAvg, *today.Dwell30dStd

	z, ok := baseline.ZScore(*today.AvgDwellHours, avg, std)
	if !ok || z < 2 {
		return DetectorResult{}, false
	}

	severity := severityFromZ(z)
	dp := deltaPct(*today.AvgDwellHours, avg)
	return DetectorResult{
		SignalType: TypeDwellSpike,
		Severity:   severity,
		Value:      *today.AvgDwellHours,
		Baseline:   avg,
		Stddev:     std,
		ZScore:     &z,
		DeltaPct:   dp,
		RawScore:   ZScoreConfidence(z),
		Method:     MethodZScore,
		Driver: Driver{
			Metric:   "avg_dwell_hours",
			Value:    *today.AvgDwellHours,
			Baseline: avg,
			Stddev:   std,
			DeltaPct: dp,
			ZScore:   &z,
		},
	}, true
}

// DetectCongestionBuildup fires when the number of open calls significantly
// exceeds its 30-day average.
func DetectCongestionBuildup(today baseline.Baseline) (DetectorResult, bool) {
	if today.OpenCalls30dAvg == nil || *today.OpenCalls30dAvg < 5 {
		return DetectorResult{}, false
	}
	avg := *today.OpenCalls30dAvg
	m := float64(today.OpenCalls) / avg
	if m < 1.5 {
		return DetectorResult{}, false
	}

	severity := severityFromMultiplier(m)
	dp := deltaPct(float64(today.OpenCalls), avg)
	return DetectorResult{
		SignalType: TypeCongestionBuildup,
		Severity:   severity,
		Value:      float64(today.OpenCalls),
		Baseline:   avg,
		Multiplier: &m,
		DeltaPct:   dp,
		RawScore:   MultiplierConfidence(m),
		Method:     MethodMultiplier,
		Driver: Driver{
			Metric:     "open_calls",
			Value:      float64(today.OpenCalls),
			Baseline:   avg,
			DeltaPct:   dp,
			Multiplier: &m,
		},
	}, true
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func driverSummary(d Driver) string {
	sign := "+"
	if d.DeltaPct < 0 {
		sign = ""
	}
	return fmt.Sprintf("%s %s%.1f%%", titleMetric(d.Metric), sign, d.DeltaPct)
}

func titleMetric(metric string) string {
	switch metric {
	case "arrivals":
		return "Arrivals"
	case "avg_dwell_hours":
		return "Dwell"
	case "open_calls":
		return "Congestion"
	default:
		return metric
	}
}
