package delivery

import (
	"context"
	"fmt"
	"strings"
)

// EmailTransport sends a rendered alert email. The MVP implementation
// (StubEmailTransport) records the rendered message in memory instead of
// dispatching it; swap this interface's
// implementation for an SMTP or provider-API client to go live.
type EmailTransport interface {
	Send(ctx context.Context, to, subject, body string) error
}

// StubEmailTransport satisfies EmailTransport without sending anything; it
// is the swap-in point for a real transport.
type StubEmailTransport struct {
	Sent []StubEmail
}

type StubEmail struct {
	To      string
	Subject string
	Body    string
}

func (t *StubEmailTransport) Send(_ context.Context, to, subject, body string) error {
	t.Sent = append(t.Sent, StubEmail{To: to, Subject: subject, Body: body})
	return nil
}

// RenderEmailSubject builds "[Veriscope] {severity} {cluster_type} — {entity_name} — {day}".
func RenderEmailSubject(severity, clusterType, entityName, day string) string {
	return fmt.Sprintf("[Veriscope] %s %s — %s — %s", severity, clusterType, entityName, day)
}

// RenderEmailBody builds a structured plain-text body from the same driver
// summary, impact, and followups lines the webhook payload carries.
func RenderEmailBody(summary string, impact, followups []string, link string) string {
	var b strings.Builder
	b.WriteString(summary)
	b.WriteString("\n\nImpact:\n")
	for _, line := range impact {
		b.WriteString("- " + line + "\n")
	}
	b.WriteString("\nRecommended follow-ups:\n")
	for _, line := range followups {
		b.WriteString("- " + line + "\n")
	}
	if link != "" {
		b.WriteString("\nDetails: " + link + "\n")
	}
	return b.String()
}
