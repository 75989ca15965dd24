package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/apiwatch/apiwatch/internal/domain/alert"
	"github.com/apiwatch/apiwatch/internal/domain/endpoint"
)

type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// EmailNotifier turns alert transitions into mail to a fixed recipient
// list. It is the notification sink behind the alert engine.
type EmailNotifier struct {
	log *zap.Logger
	out EmailSender
	to  []string
}

var _ alert.Notifier = (*EmailNotifier)(nil)

func NewEmailNotifier(log *zap.Logger, out EmailSender, to []string) *EmailNotifier {
	return &EmailNotifier{
		log: log.With(zap.String("component", "email-notifier")),
		out: out,
		to:  to,
	}
}

func (n *EmailNotifier) Notify(ctx context.Context, ev alert.EventType, a *alert.Alert, e *endpoint.Endpoint) error {
	if len(n.to) == 0 {
		n.log.Debug("no recipients configured, dropping notification",
			zap.String("kind", string(a.Kind)))
		return nil
	}

	subject, body := compose(ev, a, e)

	var errs []error
	for _, rcpt := range n.to {
		if err := n.out.Send(ctx, rcpt, subject, body); err != nil {
			errs = append(errs, fmt.Errorf("send to %s: %w", rcpt, err))
		}
	}
	return errors.Join(errs...)
}

func compose(ev alert.EventType, a *alert.Alert, e *endpoint.Endpoint) (subject, body string) {
	kind := kindLabel(a.Kind)

	if ev == alert.EventResolved {
		subject = fmt.Sprintf("RESOLVED: %s - %s", e.Name, kind)
		at := time.Now().UTC()
		if a.ResolvedAt != nil {
			at = *a.ResolvedAt
		}
		body = fmt.Sprintf(
			"The %s alert for %s (%s) has been resolved.\n\nOpened: %s\nResolved: %s\n\n-- APIWatch",
			kind, e.Name, e.URL,
			a.CreatedAt.Format(time.RFC3339), at.Format(time.RFC3339),
		)
		return subject, body
	}

	subject = fmt.Sprintf("ALERT: %s - %s", e.Name, kind)
	body = fmt.Sprintf(
		"An alert was raised for %s (%s).\n\nType: %s\nDetail: %s\nOpened: %s\n\n-- APIWatch",
		e.Name, e.URL,
		kind, a.Message, a.CreatedAt.Format(time.RFC3339),
	)
	return subject, body
}

func kindLabel(k alert.Kind) string {
	switch k {
	case alert.KindDown:
		return "down"
	case alert.KindHighLatency:
		return "high latency"
	default:
		return strings.ReplaceAll(string(k), "_", " ")
	}
}
