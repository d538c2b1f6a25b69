package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"litoarte-backend/config"
	"litoarte-backend/internal/errs"
	"litoarte-backend/internal/models"
	"litoarte-backend/internal/payments"
	"litoarte-backend/internal/staging"
	"litoarte-backend/internal/util"
)

// PaymentService builds checkout sessions from persisted orders or from
// staged draft payloads and records the session linkage.
type PaymentService struct {
	store    OrderStore
	payments payments.Client
	staging  *staging.Staging
	cfg      config.StripeConfig
	logger   *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(store OrderStore, client payments.Client, stg *staging.Staging, cfg config.StripeConfig) *PaymentService {
	return &PaymentService{
		store:    store,
		payments: client,
		staging:  stg,
		cfg:      cfg,
		logger:   util.GetLogger(),
	}
}

// SessionInfo is returned to the client to start the checkout redirect.
type SessionInfo struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
	TempToken string `json:"tempToken,omitempty"`
}

// CreateSessionForOrder opens a checkout session for an existing order
// and persists the session id against it. The order row stays in
// pendiente_pago whether or not the provider call succeeds; the session
// association is the only write gated by provider success.
func (ps *PaymentService) CreateSessionForOrder(ctx context.Context, orderNumber string) (*SessionInfo, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.CreateSessionForOrder")
	defer span.End()

	order, err := ps.store.GetOrder(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: pedido %s", errs.ErrNotFound, orderNumber)
	}

	items := orderLineItems(order)

	start := time.Now()
	sess, err := ps.payments.CreateSession(ctx, &payments.SessionRequest{
		LineItems: items,
		SuccessURL: fmt.Sprintf("%s?session_id={CHECKOUT_SESSION_ID}&pedido=%s",
			ps.cfg.SuccessURL, orderNumber),
		CancelURL:         ps.cfg.CancelURL + "?cancelado=true",
		CustomerEmail:     order.CustomerEmail,
		ClientReferenceID: orderNumber,
		Metadata: map[string]string{
			"numero_pedido": orderNumber,
			"pedido_id":     fmt.Sprintf("%d", order.ID),
		},
	})
	util.PaymentProviderLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		util.CheckoutSessionFailuresTotal.Inc()
		return nil, err
	}

	if err := ps.store.AssociateSession(ctx, orderNumber, sess.ID); err != nil {
		return nil, err
	}

	util.CheckoutSessionsCreatedTotal.WithLabelValues("pedido").Inc()
	ps.logger.Info("Checkout session created",
		zap.String("numero_pedido", orderNumber),
		zap.String("session_id", sess.ID))

	return &SessionInfo{SessionID: sess.ID, URL: sess.URL}, nil
}

// CreateDraftSession opens a checkout session for an unpersisted draft.
// The payload is staged under the token; no order row exists until the
// payment is confirmed.
func (ps *PaymentService) CreateDraftSession(ctx context.Context, payload *models.OrderRequest, token string) (*SessionInfo, error) {
	ctx, span := util.StartSpan(ctx, "PaymentService.CreateDraftSession")
	defer span.End()

	if payload == nil || payload.Product == nil || payload.Prices == nil {
		return nil, fmt.Errorf("%w: datos de pedido incompletos", errs.ErrValidation)
	}

	if token == "" {
		token = uuid.New().String()
	}

	if err := ps.staging.SavePayload(token, payload); err != nil {
		return nil, fmt.Errorf("failed to stage draft payload: %w", err)
	}

	items := []payments.LineItem{{
		Name:        payload.Product.Name,
		Description: fmt.Sprintf("Plazo: %d días", payload.DeliveryDays),
		UnitAmount:  toCents(payload.Prices.Base),
		Quantity:    1,
	}}
	for _, extra := range payload.Extras {
		if extra.Price <= 0 {
			continue
		}
		items = append(items, payments.LineItem{
			Name:       extra.Name,
			UnitAmount: toCents(extra.Price),
			Quantity:   1,
		})
	}

	email := ""
	if payload.Contact != nil {
		email = payload.Contact.Email
	}

	start := time.Now()
	sess, err := ps.payments.CreateSession(ctx, &payments.SessionRequest{
		LineItems:     items,
		SuccessURL:    ps.cfg.SuccessURL + "?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     ps.cfg.CancelURL + "?cancelado=true",
		CustomerEmail: email,
		Metadata:      map[string]string{"temp_token": token},
	})
	util.PaymentProviderLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		util.CheckoutSessionFailuresTotal.Inc()
		return nil, err
	}

	util.CheckoutSessionsCreatedTotal.WithLabelValues("borrador").Inc()
	ps.logger.Info("Draft checkout session created",
		zap.String("temp_token", token),
		zap.String("session_id", sess.ID))

	return &SessionInfo{SessionID: sess.ID, URL: sess.URL, TempToken: token}, nil
}

// orderLineItems builds the charged positions for an order-bound session:
// the product, one line per extra, and any discount deducted from the
// base line (the provider rejects negative amounts).
func orderLineItems(order *models.Order) []payments.LineItem {
	baseAmount := toCents(order.BasePrice)
	if order.Discount > 0 {
		baseAmount -= toCents(order.Discount)
	}

	items := []payments.LineItem{{
		Name:        order.ProductName,
		Description: fmt.Sprintf("Plazo de entrega: %d días", order.DeliveryDays),
		UnitAmount:  baseAmount,
		Quantity:    1,
	}}
	for _, extra := range order.Extras {
		items = append(items, payments.LineItem{
			Name:       extra.Name,
			UnitAmount: toCents(extra.Price),
			Quantity:   1,
		})
	}
	return items
}

// toCents converts a euro amount to minor units, rounded to the nearest
// integer.
func toCents(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
