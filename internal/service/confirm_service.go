package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"litoarte-backend/internal/errs"
	"litoarte-backend/internal/mailer"
	"litoarte-backend/internal/models"
	"litoarte-backend/internal/payments"
	"litoarte-backend/internal/staging"
	"litoarte-backend/internal/util"
)

// Notifier dispatches the confirmation messages for a paid order.
type Notifier interface {
	DispatchConfirmation(ctx context.Context, order *models.Order, attachments []string) *mailer.Result
}

// ConfirmationService is the reconciler: given external proof of payment
// it transitions the order to pago_confirmado, materializes draft orders,
// finalizes staged assets and triggers notification dispatch.
type ConfirmationService struct {
	store    OrderStore
	payments payments.Client
	staging  *staging.Staging
	notifier Notifier
	logger   *zap.Logger
}

// NewConfirmationService creates a new confirmation service
func NewConfirmationService(store OrderStore, client payments.Client, stg *staging.Staging, notifier Notifier) *ConfirmationService {
	return &ConfirmationService{
		store:    store,
		payments: client,
		staging:  stg,
		notifier: notifier,
		logger:   util.GetLogger(),
	}
}

// ConfirmOrderPayment confirms payment for an existing order. With a
// session id the provider is consulted and the session must be paid; the
// fallback without a session id marks the order paid unverified, which is
// the documented weaker guarantee of this entry point.
func (cs *ConfirmationService) ConfirmOrderPayment(ctx context.Context, orderNumber, sessionID string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "ConfirmationService.ConfirmOrderPayment")
	defer span.End()

	order, err := cs.store.GetOrder(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: pedido %s", errs.ErrNotFound, orderNumber)
	}

	paymentIntent := ""
	if sessionID != "" {
		sess, err := cs.payments.GetSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if !sess.Paid() {
			return nil, fmt.Errorf("%w: pedido %s", errs.ErrPaymentNotCompleted, orderNumber)
		}
		paymentIntent = sess.PaymentIntentID
	} else if order.PaymentIntent != nil {
		paymentIntent = *order.PaymentIntent
	}

	if err := cs.store.MarkPaid(ctx, orderNumber, paymentIntent); err != nil {
		return nil, err
	}
	util.OrdersPaidTotal.Inc()

	order, err = cs.store.GetOrder(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	cs.dispatch(ctx, order, nil)

	cs.logger.Info("Payment confirmed",
		zap.String("numero_pedido", orderNumber),
		zap.Bool("verified", sessionID != ""))
	return order, nil
}

// ConfirmDraftPayment materializes a staged draft into a paid order: the
// session must be paid, the draft token comes from session metadata, and
// the staged payload becomes an order created directly in pago_confirmado.
// Staged assets move to the order's permanent directory and are attached
// to the internal notification only. A confirmation marker written before
// the asset move makes a retried call return the already-created order
// instead of duplicating it.
func (cs *ConfirmationService) ConfirmDraftPayment(ctx context.Context, sessionID string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "ConfirmationService.ConfirmDraftPayment")
	defer span.End()

	if sessionID == "" {
		return nil, fmt.Errorf("%w: session_id requerido", errs.ErrValidation)
	}

	sess, err := cs.payments.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Paid() {
		return nil, fmt.Errorf("%w: session %s", errs.ErrPaymentNotCompleted, sessionID)
	}

	token := sess.Metadata["temp_token"]
	if token == "" {
		return nil, fmt.Errorf("%w: falta temp_token en metadata", errs.ErrValidation)
	}

	// A marker means a previous confirmation already created the order
	// and crashed somewhere between the asset move and the cleanup.
	if orderNumber, ok := cs.staging.Marker(token); ok {
		cs.logger.Warn("Draft already confirmed, resuming finalization",
			zap.String("temp_token", token),
			zap.String("numero_pedido", orderNumber))
		order, err := cs.store.GetOrder(ctx, orderNumber)
		if err != nil {
			return nil, err
		}
		if order == nil {
			return nil, fmt.Errorf("%w: pedido %s", errs.ErrNotFound, orderNumber)
		}
		return cs.finalizeDraft(ctx, token, order)
	}

	payload, err := cs.staging.LoadPayload(token)
	if err != nil {
		return nil, err
	}
	normalizeDraftPrices(payload)

	order, err := buildOrder(payload, newOrderNumber(time.Now()), models.StatusPaymentConfirmed)
	if err != nil {
		return nil, err
	}

	if err := cs.store.CreateOrder(ctx, order); err != nil {
		return nil, err
	}
	if err := cs.store.MarkPaid(ctx, order.OrderNumber, sess.PaymentIntentID); err != nil {
		return nil, err
	}
	util.OrdersPaidTotal.Inc()

	if err := cs.staging.WriteMarker(token, order.OrderNumber); err != nil {
		cs.logger.Error("Failed to write confirmation marker",
			zap.String("temp_token", token),
			zap.Error(err))
	}

	order, err = cs.store.GetOrder(ctx, order.OrderNumber)
	if err != nil {
		return nil, err
	}

	cs.logger.Info("Draft order materialized",
		zap.String("temp_token", token),
		zap.String("numero_pedido", order.OrderNumber))

	return cs.finalizeDraft(ctx, token, order)
}

// finalizeDraft moves staged assets, dispatches the notifications with
// the assets attached to the internal message, and removes the staging
// directory. Not transactional: a failure leaves both the order and the
// staging directory in place so the call can be retried.
func (cs *ConfirmationService) finalizeDraft(ctx context.Context, token string, order *models.Order) (*models.Order, error) {
	attachments, err := cs.staging.MoveAssets(token, order.OrderNumber)
	if err != nil {
		return nil, err
	}

	cs.dispatch(ctx, order, attachments)

	if err := cs.staging.Remove(token); err != nil {
		cs.logger.Error("Failed to remove draft directory",
			zap.String("temp_token", token),
			zap.Error(err))
	}

	return order, nil
}

// SendEmails re-triggers the confirmation dispatch for an existing order.
func (cs *ConfirmationService) SendEmails(ctx context.Context, orderNumber string) (*mailer.Result, error) {
	order, err := cs.store.GetOrder(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: pedido %s", errs.ErrNotFound, orderNumber)
	}
	return cs.notifier.DispatchConfirmation(ctx, order, nil), nil
}

// HandleCheckoutCompleted processes a verified checkout.session.completed
// event. Duplicate deliveries are tolerated: MarkPaid converges on the
// same end state, at the cost of an extra history row.
func (cs *ConfirmationService) HandleCheckoutCompleted(ctx context.Context, sess *payments.Session) error {
	ctx, span := util.StartSpan(ctx, "ConfirmationService.HandleCheckoutCompleted")
	defer span.End()

	orderNumber := sess.ClientReferenceID
	if orderNumber == "" {
		orderNumber = sess.Metadata["numero_pedido"]
	}

	if orderNumber == "" {
		if sess.Metadata["temp_token"] != "" {
			_, err := cs.ConfirmDraftPayment(ctx, sess.ID)
			return err
		}
		return fmt.Errorf("%w: el evento no referencia ningun pedido", errs.ErrValidation)
	}

	if err := cs.store.MarkPaid(ctx, orderNumber, sess.PaymentIntentID); err != nil {
		return err
	}
	util.OrdersPaidTotal.Inc()

	order, err := cs.store.GetOrder(ctx, orderNumber)
	if err != nil {
		return err
	}

	cs.dispatch(ctx, order, nil)

	cs.logger.Info("Webhook payment confirmed",
		zap.String("numero_pedido", orderNumber),
		zap.String("session_id", sess.ID))
	return nil
}

// dispatch sends the confirmation emails; a failed dispatch never fails
// the confirmation itself.
func (cs *ConfirmationService) dispatch(ctx context.Context, order *models.Order, attachments []string) {
	if order == nil {
		return
	}
	result := cs.notifier.DispatchConfirmation(ctx, order, attachments)
	if !result.Success {
		cs.logger.Error("All confirmation emails failed",
			zap.String("numero_pedido", order.OrderNumber),
			zap.Any("errores", result.Errors))
	}
}

// normalizeDraftPrices fills the gaps an unvalidated draft payload may
// have: missing totals default to base + extras, discounts to zero.
func normalizeDraftPrices(payload *models.OrderRequest) {
	if payload == nil || payload.Prices == nil {
		return
	}
	payload.Prices.Discount = 0
	if payload.Prices.Total == 0 {
		payload.Prices.Total = payload.Prices.Base + payload.Prices.Extras
	}
}
