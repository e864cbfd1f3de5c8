// Package notify sends the failure-report digest a run produces when
// engine/scheduler.Run leaves any activity in RunResult.FailuresTerminal.
// It mirrors the teacher's email package: the same Sender shape, a
// LogSender for local dev, a ResendSender for staging/production.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/resend/resend-go/v2"

	"github.com/healthplan/scheduler/internal/domain"
)

// Sender sends a failure digest to a user's address.
type Sender interface {
	SendFailureDigest(ctx context.Context, to string, result domain.RunResult) error
}

// LogSender logs the digest instead of sending it — used in ENV=local.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendFailureDigest(_ context.Context, to string, result domain.RunResult) error {
	s.logger.Info("failure digest email (local dev)",
		"to", to,
		"failure_count", len(result.FailuresTerminal),
		"body", digestBody(result),
	)
	return nil
}

// ResendSender sends the digest via the Resend API — used in staging/production.
type ResendSender struct {
	client *resend.Client
	from   string
}

func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey), from: from}
}

func (s *ResendSender) SendFailureDigest(ctx context.Context, to string, result domain.RunResult) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: fmt.Sprintf("%d activities could not be scheduled", len(result.FailuresTerminal)),
		Html:    digestBody(result),
	}
	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("send failure digest: %w", err)
	}
	return nil
}

// NewSender returns a LogSender for ENV=local, ResendSender otherwise.
func NewSender(env, apiKey, from string, logger *slog.Logger) Sender {
	if env == "local" {
		return NewLogSender(logger)
	}
	return NewResendSender(apiKey, from)
}

// digestBody renders the terminal failures as a simple HTML list, sorted by
// activity id so the email body is deterministic.
func digestBody(result domain.RunResult) string {
	ids := make([]string, 0, len(result.FailuresTerminal))
	for id := range result.FailuresTerminal {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString("<p>The following activities could not be scheduled in this run:</p><ul>")
	for _, id := range ids {
		f := result.FailuresTerminal[id]
		fmt.Fprintf(&b, "<li>%s &mdash; %s (last attempted %s)</li>", f.ActivityID, f.Reason, f.LastDate.String())
	}
	b.WriteString("</ul>")
	return b.String()
}
