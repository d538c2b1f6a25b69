// Package payments wraps the external payment provider behind a small
// provider-neutral surface so the services and their tests do not depend
// on the Stripe SDK directly.
package payments

import "context"

// PaymentStatusPaid is the provider's payment status for a settled session.
const PaymentStatusPaid = "paid"

// LineItem is one charged position of a checkout session. UnitAmount is in
// minor currency units (cents).
type LineItem struct {
	Name        string
	Description string
	UnitAmount  int64
	Quantity    int64
}

// SessionRequest describes the checkout session to create.
type SessionRequest struct {
	LineItems         []LineItem
	SuccessURL        string
	CancelURL         string
	CustomerEmail     string
	ClientReferenceID string
	Metadata          map[string]string
}

// Session is the provider's view of a checkout attempt.
type Session struct {
	ID                string
	URL               string
	PaymentStatus     string
	PaymentIntentID   string
	ClientReferenceID string
	Metadata          map[string]string
}

// Paid reports whether the provider considers the session settled.
func (s *Session) Paid() bool {
	return s != nil && s.PaymentStatus == PaymentStatusPaid
}

// WebhookEvent is a verified provider event.
type WebhookEvent struct {
	ID   string
	Type string
	// Session is populated for checkout.session.completed events.
	Session *Session
	// Raw carries the original payload for the dead-letter log.
	Raw []byte
}

// Client is the provider surface the services consume.
type Client interface {
	CreateSession(ctx context.Context, req *SessionRequest) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	VerifyWebhook(payload []byte, signature string) (*WebhookEvent, error)
}
