package delivery

import (
	"context"
	"strings"
	"testing"
)

func TestRenderEmailSubject(t *testing.T) {
	got := RenderEmailSubject("CRITICAL", "PORT_DISRUPTION", "Port of Rotterdam", "2026-07-29")
	want := "[Veriscope] CRITICAL PORT_DISRUPTION — Port of Rotterdam — 2026-07-29"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRenderEmailBodyIncludesDriversAndLink(t *testing.T) {
	body := RenderEmailBody("arrivals 400% above baseline", []string{"berth congestion likely"}, []string{"check AIS feed"}, "https://veriscope.example/signals/1")
	if !strings.Contains(body, "arrivals 400% above baseline") {
		t.Errorf("expected summary in body, got %s", body)
	}
	if !strings.Contains(body, "- berth congestion likely") {
		t.Errorf("expected impact line in body, got %s", body)
	}
	if !strings.Contains(body, "- check AIS feed") {
		t.Errorf("expected followup line in body, got %s", body)
	}
	if !strings.Contains(body, "https://veriscope.example/signals/1") {
		t.Errorf("expected link in body, got %s", body)
	}
}

func TestStubEmailTransportRecordsSends(t *testing.T) {
	stub := &StubEmailTransport{}
	if err := stub.Send(context.Background(), "ops@example.com", "subject", "body"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stub.Sent) != 1 {
		t.Fatalf("expected 1 recorded send, got %d", len(stub.Sent))
	}
	if stub.Sent[0].To != "ops@example.com" {
		t.Errorf("unexpected recipient %s", stub.Sent[0].To)
	}
}
