package dispatch

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/veriscope/veriscope/pkg/alertsub"
	"github.com/veriscope/veriscope/pkg/dedupe"
	"github.com/veriscope/veriscope/pkg/delivery"
	"github.com/veriscope/veriscope/pkg/signal"
)

func TestBandAtLeast(t *testing.T) {
	cases := []struct {
		band, min string
		want      bool
	}{
		{signal.BandHigh, signal.BandLow, true},
		{signal.BandMedium, signal.BandMedium, true},
		{signal.BandLow, signal.BandHigh, false},
		{signal.BandMedium, signal.BandHigh, false},
	}
	for _, c := range cases {
		if got := bandAtLeast(c.band, c.min); got != c.want {
			t.Errorf("bandAtLeast(%s, %s) = %v, want %v", c.band, c.min, got, c.want)
		}
	}
}

type fakeSubs struct{ subs []alertsub.Subscription }

func (f *fakeSubs) Enabled(ctx context.Context, tenantID uuid.UUID, userID *uuid.UUID) ([]alertsub.Subscription, error) {
	return f.subs, nil
}

type fakeCandidates struct{ candidates []signal.Signal }

func (f *fakeCandidates) Run(ctx context.Context, filter signal.CandidateFilter) ([]signal.Signal, error) {
	return f.candidates, nil
}

type fakeSignals struct{ members []signal.Signal }

func (f *fakeSignals) ForClusterOnDay(ctx context.Context, clusterID string) ([]signal.Signal, error) {
	return f.members, nil
}

// fakeChecker always returns shouldSend for every cluster except those
// listed in blocked.
type fakeChecker struct {
	blocked map[string]bool
	marked  []string
}

func (f *fakeChecker) ShouldSend(ctx context.Context, tenantID uuid.UUID, clusterID, channel, endpoint string, ttlHours int, now time.Time) (bool, error) {
	return !f.blocked[clusterID], nil
}

func (f *fakeChecker) MarkSent(ctx context.Context, tenantID uuid.UUID, clusterID, channel, endpoint string, ttlHours int, now time.Time) error {
	f.marked = append(f.marked, clusterID)
	return nil
}

type deliveryCall struct {
	clusterID string
	status    string
}

type fakeDelivery struct{ calls []deliveryCall }

func (f *fakeDelivery) Send(ctx context.Context, runID uuid.UUID, sub alertsub.Subscription, clusterMembers []signal.Signal) (delivery.Delivery, error) {
	rep := clusterMembers[0]
	f.calls = append(f.calls, deliveryCall{clusterID: rep.ClusterID, status: delivery.StatusSent})
	return delivery.Delivery{ClusterID: rep.ClusterID, Status: delivery.StatusSent}, nil
}

func (f *fakeDelivery) RecordSkipped(ctx context.Context, runID uuid.UUID, sub alertsub.Subscription, clusterID, status string) (delivery.Delivery, error) {
	f.calls = append(f.calls, deliveryCall{clusterID: clusterID, status: status})
	return delivery.Delivery{ClusterID: clusterID, Status: status}, nil
}

func candidateSignal(clusterID, band string) signal.Signal {
	return signal.Signal{ClusterID: clusterID, ConfidenceBand: band, ConfidenceScore: 1}
}

func strPtr(s string) *string { return &s }

func TestDispatcherPassGating(t *testing.T) {
	subID := uuid.New()

	cases := []struct {
		name           string
		confidenceMin  *string
		candidateBand  string
		rateLimit      int
		dedupeBlocked  bool
		wantSent       int
		wantSkipRate   int
		wantSkipDedupe int
		wantMatched    int
	}{
		{
			name:          "rejected by confidence band before it ever counts as matched",
			confidenceMin: strPtr(signal.BandHigh),
			candidateBand: signal.BandLow,
			rateLimit:     10,
			wantMatched:   0,
		},
		{
			name:          "clears confidence gate and sends",
			confidenceMin: strPtr(signal.BandLow),
			candidateBand: signal.BandHigh,
			rateLimit:     10,
			wantSent:      1,
			wantMatched:   1,
		},
		{
			name:          "rate limited after clearing confidence",
			confidenceMin: strPtr(signal.BandLow),
			candidateBand: signal.BandHigh,
			rateLimit:     0,
			wantSkipRate:  1,
			wantMatched:   1,
		},
		{
			name:           "deduped after clearing confidence and rate limit",
			confidenceMin:  strPtr(signal.BandLow),
			candidateBand:  signal.BandHigh,
			rateLimit:      10,
			dedupeBlocked:  true,
			wantSkipDedupe: 1,
			wantMatched:    1,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			sub := alertsub.Subscription{
				ID:            subID,
				Scope:         alertsub.ScopeAll,
				SeverityMin:   signal.SeverityLow,
				ConfidenceMin: c.confidenceMin,
				Channel:       alertsub.ChannelWebhook,
				Endpoint:      "https://example.test/hook",
			}
			clusterID := "cluster-1"
			cand := candidateSignal(clusterID, c.candidateBand)

			checker := &fakeChecker{blocked: map[string]bool{}}
			if c.dedupeBlocked {
				checker.blocked[clusterID] = true
			}
			deliverySink := &fakeDelivery{}

			d := &Dispatcher{
				runs:       nil,
				subs:       &fakeSubs{subs: []alertsub.Subscription{sub}},
				candidates: &fakeCandidates{candidates: []signal.Signal{cand}},
				signals:    &fakeSignals{members: []signal.Signal{cand}},
				limiter:    func() *dedupe.RunLimiter { return dedupe.NewRunLimiter(c.rateLimit) },
				checker:    checker,
				delivery:   deliverySink,
				ttlHours:   24,
				logger:     slog.Default(),
			}

			summary, err := d.pass(context.Background(), uuid.New(), uuid.New(), nil)
			if err != nil {
				t.Fatalf("pass() returned error: %v", err)
			}

			if summary.MatchedTotal != c.wantMatched {
				t.Errorf("MatchedTotal = %d, want %d", summary.MatchedTotal, c.wantMatched)
			}
			if summary.SentTotal != c.wantSent {
				t.Errorf("SentTotal = %d, want %d", summary.SentTotal, c.wantSent)
			}
			if summary.SkippedRateLimitTotal != c.wantSkipRate {
				t.Errorf("SkippedRateLimitTotal = %d, want %d", summary.SkippedRateLimitTotal, c.wantSkipRate)
			}
			if summary.SkippedDedupeTotal != c.wantSkipDedupe {
				t.Errorf("SkippedDedupeTotal = %d, want %d", summary.SkippedDedupeTotal, c.wantSkipDedupe)
			}

			switch {
			case c.wantSkipRate > 0:
				if len(deliverySink.calls) != 1 || deliverySink.calls[0].status != delivery.StatusSkippedRateLimit {
					t.Errorf("expected one RecordSkipped(StatusSkippedRateLimit) call, got %+v", deliverySink.calls)
				}
			case c.wantSkipDedupe > 0:
				if len(deliverySink.calls) != 1 || deliverySink.calls[0].status != delivery.StatusSkippedDedupe {
					t.Errorf("expected one RecordSkipped(StatusSkippedDedupe) call, got %+v", deliverySink.calls)
				}
			case c.wantSent > 0:
				if len(deliverySink.calls) != 1 || deliverySink.calls[0].status != delivery.StatusSent {
					t.Errorf("expected one Send call recorded as SENT, got %+v", deliverySink.calls)
				}
			default:
				if len(deliverySink.calls) != 0 {
					t.Errorf("expected no delivery calls when confidence gate rejects, got %+v", deliverySink.calls)
				}
			}
		})
	}
}
