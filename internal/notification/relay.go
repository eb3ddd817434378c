// Package notification turns domain events into client email. The lifecycle
// core publishes events and knows nothing about delivery channels; this
// relay is the only place that decides who gets told what.
package notification

import (
	"context"
	"fmt"
	"strings"

	"serrupro_backend/internal/email"
	"serrupro_backend/internal/events"
	"serrupro_backend/internal/interventions/domain"
	"serrupro_backend/platform/logger"
)

// clientVisibleStatuses are the transitions worth an email. Internal churn
// (assigned, diagnosing) stays out of the client's inbox; the tracking page
// shows the full coarse label anyway.
var clientVisibleStatuses = map[domain.Status]struct{}{
	domain.StatusEnRoute:   {},
	domain.StatusQuoteSent: {},
	domain.StatusCompleted: {},
	domain.StatusCancelled: {},
}

// Relay subscribes to lifecycle and dispatch events and sends client email.
type Relay struct {
	sender      email.Sender
	log         *logger.Logger
	trackingURL string
}

// NewRelay creates the relay. trackingBaseURL is the public tracking page
// prefix; the tracking code is appended per message.
func NewRelay(sender email.Sender, trackingBaseURL string, log *logger.Logger) *Relay {
	return &Relay{
		sender:      sender,
		log:         log,
		trackingURL: strings.TrimRight(trackingBaseURL, "/"),
	}
}

// Start subscribes the relay to the event bus.
func (r *Relay) Start(bus events.Bus) {
	bus.Subscribe(events.InterventionCreated{}.EventName(), events.HandlerFunc(r.onCreated))
	bus.Subscribe(events.InterventionStatusChanged{}.EventName(), events.HandlerFunc(r.onStatusChanged))
	bus.Subscribe(events.DispatchExhausted{}.EventName(), events.HandlerFunc(r.onDispatchExhausted))
}

func (r *Relay) onCreated(ctx context.Context, event events.Event) error {
	e, ok := event.(events.InterventionCreated)
	if !ok || e.ClientEmail == "" {
		return nil
	}

	err := r.sender.SendRequestReceivedEmail(ctx, e.ClientEmail, e.TrackingCode, r.trackingPageURL(e.TrackingCode))
	if err != nil {
		r.log.Error("failed to send request received email",
			"trackingCode", e.TrackingCode, "error", err)
	}
	return nil
}

func (r *Relay) onStatusChanged(ctx context.Context, event events.Event) error {
	e, ok := event.(events.InterventionStatusChanged)
	if !ok || e.ClientEmail == "" {
		return nil
	}

	status := domain.Status(e.NewStatus)
	if _, visible := clientVisibleStatuses[status]; !visible {
		return nil
	}

	err := r.sender.SendStatusUpdateEmail(ctx, e.ClientEmail, e.TrackingCode,
		status.ClientLabel(), r.trackingPageURL(e.TrackingCode))
	if err != nil {
		r.log.Error("failed to send status update email",
			"trackingCode", e.TrackingCode, "status", e.NewStatus, "error", err)
	}
	return nil
}

func (r *Relay) onDispatchExhausted(ctx context.Context, event events.Event) error {
	e, ok := event.(events.DispatchExhausted)
	if !ok || e.ClientEmail == "" {
		return nil
	}

	err := r.sender.SendSearchDelayedEmail(ctx, e.ClientEmail, e.TrackingCode, r.trackingPageURL(e.TrackingCode))
	if err != nil {
		r.log.Error("failed to send search delayed email",
			"trackingCode", e.TrackingCode, "error", err)
	}
	return nil
}

func (r *Relay) trackingPageURL(code string) string {
	return fmt.Sprintf("%s/%s", r.trackingURL, code)
}
