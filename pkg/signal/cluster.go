package signal

import (
	"fmt"
	"strings"
	"time"
)

// ClusterID derives the shared cluster identity for every signal firing for
// the same entity on the same day.
func ClusterID(entityID string, day time.Time) string {
	return fmt.Sprintf("%s:%s:%s", ClusterTypeDisruption, entityID, day.Format("2006-01-02"))
}

// ClusterKey is the bare entity+day pair a cluster groups on, without the
// cluster-type prefix ClusterID carries. It exists as its own column so a
// query can group by (entity, day) without string-parsing ClusterID.
func ClusterKey(entityID string, day time.Time) string {
	return fmt.Sprintf("%s:%s", entityID, day.Format("2006-01-02"))
}

// ClusterSummary produces a readable comma-joined summary from every
// detector result firing for a given entity/day, in the order given.
func ClusterSummary(results []DetectorResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, driverSummary(r.Driver))
	}
	return strings.Join(parts, ", ")
}

// ClusterSeverity returns the maximum severity across all members.
func ClusterSeverity(results []DetectorResult) string {
	sev := SeverityLow
	for _, r := range results {
		sev = maxSeverity(sev, r.Severity)
	}
	return sev
}
