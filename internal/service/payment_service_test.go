package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litoarte-backend/config"
	"litoarte-backend/internal/errs"
	"litoarte-backend/internal/models"
	"litoarte-backend/internal/payments"
	"litoarte-backend/internal/staging"
)

// fakeProvider implements payments.Client in-memory. Sessions created
// through it start unpaid; tests flip PaymentStatus directly.
type fakeProvider struct {
	lastCreate *payments.SessionRequest
	createErr  error
	sessions   map[string]*payments.Session
	seq        int
}

func (f *fakeProvider) CreateSession(ctx context.Context, req *payments.SessionRequest) (*payments.Session, error) {
	f.lastCreate = req
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.seq++
	sess := &payments.Session{
		ID:                fmt.Sprintf("cs_test_%d", f.seq),
		URL:               fmt.Sprintf("https://checkout.example/cs_test_%d", f.seq),
		PaymentStatus:     "unpaid",
		ClientReferenceID: req.ClientReferenceID,
		Metadata:          req.Metadata,
	}
	if f.sessions == nil {
		f.sessions = map[string]*payments.Session{}
	}
	f.sessions[sess.ID] = sess
	return sess, nil
}

func (f *fakeProvider) GetSession(ctx context.Context, id string) (*payments.Session, error) {
	sess, ok := f.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", errs.ErrPaymentProvider, id)
	}
	return sess, nil
}

func (f *fakeProvider) VerifyWebhook(payload []byte, signature string) (*payments.WebhookEvent, error) {
	return nil, errors.New("not used")
}

func newTestStaging(t *testing.T) *staging.Staging {
	t.Helper()
	stg, err := staging.New(t.TempDir())
	require.NoError(t, err)
	return stg
}

var testStripeConfig = config.StripeConfig{
	SuccessURL: "http://localhost:3000/pago-exitoso.html",
	CancelURL:  "http://localhost:3000/presupuesto.html",
}

func TestCreateSessionForOrder(t *testing.T) {
	s := newTestStore(t)
	provider := &fakeProvider{}
	svc := NewPaymentService(s, provider, newTestStaging(t), testStripeConfig)
	ctx := context.Background()

	req := sampleRequest()
	req.Prices = &models.Prices{Base: 60, Extras: 8, Discount: 10, Total: 58}
	order, err := NewOrderService(s).CreateOrder(ctx, req)
	require.NoError(t, err)

	info, err := svc.CreateSessionForOrder(ctx, order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", info.SessionID)
	assert.Contains(t, info.URL, "cs_test_1")
	assert.Empty(t, info.TempToken)

	sent := provider.lastCreate
	require.NotNil(t, sent)
	assert.Equal(t, order.OrderNumber, sent.ClientReferenceID)
	assert.Equal(t, order.OrderNumber, sent.Metadata["numero_pedido"])
	assert.Equal(t, "maria@example.com", sent.CustomerEmail)
	assert.Contains(t, sent.SuccessURL, "session_id={CHECKOUT_SESSION_ID}")
	assert.Contains(t, sent.CancelURL, "cancelado=true")

	// Discount is deducted from the base line; one line per extra.
	require.Len(t, sent.LineItems, 2)
	assert.Equal(t, int64(5000), sent.LineItems[0].UnitAmount)
	assert.Equal(t, "Marco de madera", sent.LineItems[1].Name)
	assert.Equal(t, int64(800), sent.LineItems[1].UnitAmount)

	got, err := s.GetOrderBySessionID(ctx, "cs_test_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, order.OrderNumber, got.OrderNumber)
}

func TestCreateSessionForOrderMissing(t *testing.T) {
	svc := NewPaymentService(newTestStore(t), &fakeProvider{}, newTestStaging(t), testStripeConfig)

	_, err := svc.CreateSessionForOrder(context.Background(), "LITO-20260901-999999")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestCreateSessionForOrderProviderError(t *testing.T) {
	s := newTestStore(t)
	provider := &fakeProvider{createErr: fmt.Errorf("%w: boom", errs.ErrPaymentProvider)}
	svc := NewPaymentService(s, provider, newTestStaging(t), testStripeConfig)
	ctx := context.Background()

	order, err := NewOrderService(s).CreateOrder(ctx, sampleRequest())
	require.NoError(t, err)

	_, err = svc.CreateSessionForOrder(ctx, order.OrderNumber)
	assert.True(t, errors.Is(err, errs.ErrPaymentProvider))

	// No session linkage on provider failure; the order stays pending.
	got, err := s.GetOrder(ctx, order.OrderNumber)
	require.NoError(t, err)
	assert.Nil(t, got.SessionID)
	assert.Equal(t, models.StatusPendingPayment, got.Status)
}

func TestCreateDraftSession(t *testing.T) {
	stg := newTestStaging(t)
	provider := &fakeProvider{}
	svc := NewPaymentService(newTestStore(t), provider, stg, testStripeConfig)

	payload := sampleRequest()
	payload.Extras = append(payload.Extras, models.ExtraInput{ID: "grabado", Name: "Grabado", Price: 0})

	info, err := svc.CreateDraftSession(context.Background(), payload, "")
	require.NoError(t, err)
	assert.NotEmpty(t, info.TempToken)
	assert.Equal(t, "cs_test_1", info.SessionID)

	sent := provider.lastCreate
	require.NotNil(t, sent)
	assert.Equal(t, info.TempToken, sent.Metadata["temp_token"])
	assert.Empty(t, sent.ClientReferenceID)

	// Zero-priced extras are not charged.
	require.Len(t, sent.LineItems, 2)
	assert.Equal(t, int64(5000), sent.LineItems[0].UnitAmount)
	assert.Equal(t, int64(800), sent.LineItems[1].UnitAmount)

	staged, err := stg.LoadPayload(info.TempToken)
	require.NoError(t, err)
	assert.Equal(t, "maria@example.com", staged.Contact.Email)
}

func TestCreateDraftSessionReusesToken(t *testing.T) {
	svc := NewPaymentService(newTestStore(t), &fakeProvider{}, newTestStaging(t), testStripeConfig)

	info, err := svc.CreateDraftSession(context.Background(), sampleRequest(), "tok-123")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", info.TempToken)
}

func TestCreateDraftSessionIncomplete(t *testing.T) {
	svc := NewPaymentService(newTestStore(t), &fakeProvider{}, newTestStaging(t), testStripeConfig)

	payload := sampleRequest()
	payload.Prices = nil

	_, err := svc.CreateDraftSession(context.Background(), payload, "")
	assert.True(t, errors.Is(err, errs.ErrValidation))
}

func TestToCents(t *testing.T) {
	assert.Equal(t, int64(5800), toCents(58))
	assert.Equal(t, int64(5801), toCents(58.005))
	assert.Equal(t, int64(10), toCents(0.1))
}
