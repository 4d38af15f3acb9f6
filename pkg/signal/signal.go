// Package signal evaluates port baselines for statistical anomalies and
// clusters co-triggering signals into a single disruption event.
package signal

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeArrivalsAnomaly    = "PORT_ARRIVALS_ANOMALY"
	TypeDwellSpike         = "PORT_DWELL_SPIKE"
	TypeCongestionBuildup  = "PORT_CONGESTION_BUILDUP"

	EntityTypePort = "port"

	ClusterTypeDisruption = "PORT_DISRUPTION"

	SeverityCritical = "CRITICAL"
	SeverityHigh     = "HIGH"
	SeverityMedium   = "MEDIUM"
	SeverityLow      = "LOW"

	BandHigh   = "HIGH"
	BandMedium = "MEDIUM"
	BandLow    = "LOW"

	MethodZScore     = "zscore"
	MethodMultiplier = "multiplier"

	MinHistoryDays = 10
)

var severityRank = map[string]int{SeverityLow: 0, SeverityMedium: 1, SeverityHigh: 2, SeverityCritical: 3}

// SeverityAtLeast reports whether a is at least as severe as b.
func SeverityAtLeast(a, b string) bool {
	return severityRank[a] >= severityRank[b]
}

func maxSeverity(a, b string) string {
	if severityRank[a] >= severityRank[b] {
		return a
	}
	return b
}

// Driver is one metric contribution behind a signal or cluster.
type Driver struct {
	Metric     string   `json:"metric"`
	Value      float64  `json:"value"`
	Baseline   float64  `json:"baseline"`
	Stddev     float64  `json:"stddev"`
	DeltaPct   float64  `json:"delta_pct"`
	ZScore     *float64 `json:"zscore,omitempty"`
	Multiplier *float64 `json:"multiplier,omitempty"`
}

// DataQuality describes how much history backed a signal's evaluation.
type DataQuality struct {
	HistoryDaysUsed  int `json:"history_days_used"`
	CompletenessPct  int `json:"completeness_pct"`
	MissingPoints    int `json:"missing_points"`
}

// Metadata is the structured payload stored alongside a signal's
// human-readable explanation.
type Metadata struct {
	Drivers              []Driver    `json:"drivers"`
	DataQuality          DataQuality `json:"data_quality"`
	Impact               []string    `json:"impact"`
	RecommendedFollowups []string    `json:"recommended_followups"`
}

// Signal is a single typed anomaly detection for one entity on one day.
type Signal struct {
	ID              uuid.UUID `json:"id"`
	SignalType      string    `json:"signal_type"`
	EntityType      string    `json:"entity_type"`
	EntityID        uuid.UUID `json:"entity_id"`
	Day             time.Time `json:"day"`
	Severity        string    `json:"severity"`
	Value           float64   `json:"value"`
	Baseline        float64   `json:"baseline"`
	Stddev          float64   `json:"stddev"`
	ZScore          *float64  `json:"zscore,omitempty"`
	DeltaPct        float64   `json:"delta_pct"`
	ConfidenceScore float64   `json:"confidence_score"`
	ConfidenceBand  string    `json:"confidence_band"`
	Method          string    `json:"method"`
	ClusterID       string    `json:"cluster_id"`
	ClusterKey      string    `json:"cluster_key"`
	ClusterType     string    `json:"cluster_type"`
	ClusterSeverity string    `json:"cluster_severity"`
	ClusterSummary  string    `json:"cluster_summary"`
	Explanation     string    `json:"explanation"`
	Metadata        Metadata  `json:"metadata"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
