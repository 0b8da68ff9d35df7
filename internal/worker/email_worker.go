package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"retailpos/internal/infra"

	"github.com/rs/zerolog/log"
)

// Sender delivers one plain-text message. *infra.Mailer satisfies it.
type Sender interface {
	Send(to, subject, body string) error
}

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	ToEmail string `json:"to_email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// EmailWorker processes email jobs from QueueEmail through the SMTP circuit breaker.
type EmailWorker struct {
	sender Sender
	cb     *infra.CircuitBreaker
}

func NewEmailWorker(sender Sender, cb *infra.CircuitBreaker) *EmailWorker {
	return &EmailWorker{sender: sender, cb: cb}
}

func (w *EmailWorker) Process(_ context.Context, raw json.RawMessage) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("email_worker: invalid payload: %v: %w", err, ErrPermanent)
	}
	if payload.ToEmail == "" {
		log.Warn().Msg("email_worker: empty to_email, skipping")
		return nil
	}
	if err := w.send(payload.ToEmail, payload.Subject, payload.Body); err != nil {
		return fmt.Errorf("email_worker: send to %s: %w", payload.ToEmail, err)
	}
	log.Info().Str("to", payload.ToEmail).Msg("email_worker: email sent")
	return nil
}

func (w *EmailWorker) send(to, subject, body string) error {
	if w.cb == nil {
		return w.sender.Send(to, subject, body)
	}
	return w.cb.Execute(func() error { return w.sender.Send(to, subject, body) })
}
