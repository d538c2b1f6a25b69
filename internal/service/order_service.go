package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"litoarte-backend/internal/errs"
	"litoarte-backend/internal/models"
	"litoarte-backend/internal/util"
)

// OrderStore is the persistence surface the services depend on. The
// SQLite store implements it; tests substitute scoped instances.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, orderNumber string) (*models.Order, error)
	GetOrderBySessionID(ctx context.Context, sessionID string) (*models.Order, error)
	ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)
	UpdateStatus(ctx context.Context, orderNumber, newStatus, notes string) error
	MarkPaid(ctx context.Context, orderNumber, paymentIntentID string) error
	AssociateSession(ctx context.Context, orderNumber, sessionID string) error
	GetHistory(ctx context.Context, orderNumber string) ([]models.StatusChange, error)
	GetStatistics(ctx context.Context) (*models.Statistics, error)
}

const orderNumberPrefix = "LITO"

var orderSeq uint64

// newOrderNumber builds a LITO-YYYYMMDD-<seq> order number. The sequence
// combines the millisecond clock with an in-process counter so two calls
// within the same millisecond still differ.
func newOrderNumber(now time.Time) string {
	seq := atomic.AddUint64(&orderSeq, 1)
	return fmt.Sprintf("%s-%s-%03d%03d",
		orderNumberPrefix, now.Format("20060102"), now.UnixMilli()%1000, seq%1000)
}

// priceTolerance is the accepted rounding drift on the total invariant.
var priceTolerance = decimal.NewFromFloat(0.01)

// OrderService handles order intake and the admin query surface.
type OrderService struct {
	store  OrderStore
	logger *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store OrderStore) *OrderService {
	return &OrderService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// CreateOrder validates the request, assigns an order number and persists
// the order in pendiente_pago.
func (s *OrderService) CreateOrder(ctx context.Context, req *models.OrderRequest) (*models.Order, error) {
	order, err := buildOrder(req, newOrderNumber(time.Now()), models.StatusPendingPayment)
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("invalid_request").Inc()
		return nil, err
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		util.OrdersFailedTotal.WithLabelValues("db_error").Inc()
		return nil, err
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.String("numero_pedido", order.OrderNumber),
		zap.Int64("pedido_id", order.ID))

	return order, nil
}

// GetOrder returns an order with its extras, or ErrNotFound.
func (s *OrderService) GetOrder(ctx context.Context, orderNumber string) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: pedido %s", errs.ErrNotFound, orderNumber)
	}
	return order, nil
}

// ListOrders returns orders matching the filter, newest first.
func (s *OrderService) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	return s.store.ListOrders(ctx, filter)
}

// UpdateStatus applies an operator-driven status transition after
// validating the target status.
func (s *OrderService) UpdateStatus(ctx context.Context, orderNumber, status, notes string) error {
	if status == "" {
		return fmt.Errorf("%w: estado requerido", errs.ErrValidation)
	}
	if !models.ValidStatus(status) {
		return fmt.Errorf("%w: estado no valido: %s", errs.ErrValidation, status)
	}

	if err := s.store.UpdateStatus(ctx, orderNumber, status, notes); err != nil {
		return err
	}

	s.logger.Info("Order status updated",
		zap.String("numero_pedido", orderNumber),
		zap.String("estado", status))
	return nil
}

// GetHistory returns the status history of an order, newest first.
func (s *OrderService) GetHistory(ctx context.Context, orderNumber string) ([]models.StatusChange, error) {
	return s.store.GetHistory(ctx, orderNumber)
}

// GetStatistics returns the aggregate dashboard counters.
func (s *OrderService) GetStatistics(ctx context.Context) (*models.Statistics, error) {
	return s.store.GetStatistics(ctx)
}

// buildOrder validates an inbound request and maps it onto an Order with
// the given number and initial status. The total must hold
// total = base + extras - descuento within a cent; a missing total is
// computed from the parts.
func buildOrder(req *models.OrderRequest, orderNumber, status string) (*models.Order, error) {
	if req == nil || req.Contact == nil || req.Contact.Name == "" || req.Contact.Email == "" || req.Product == nil {
		return nil, fmt.Errorf("%w: se requiere contacto, producto y precios", errs.ErrValidation)
	}
	if !models.ValidProductType(req.Product.Type) {
		return nil, fmt.Errorf("%w: tipo de producto no valido: %s", errs.ErrValidation, req.Product.Type)
	}
	if req.Prices == nil {
		return nil, fmt.Errorf("%w: se requiere contacto, producto y precios", errs.ErrValidation)
	}

	total, err := resolveTotal(req.Prices)
	if err != nil {
		return nil, err
	}

	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	order := &models.Order{
		OrderNumber:     orderNumber,
		CustomerName:    req.Contact.Name,
		CustomerSurname: req.Contact.Surname,
		CustomerEmail:   req.Contact.Email,
		CustomerPhone:   req.Contact.Phone,
		ProductType:     req.Product.Type,
		ProductName:     req.Product.Name,
		Quantity:        quantity,
		LithophaneCount: req.LithophaneCount,
		DeliveryDays:    req.DeliveryDays,
		BasePrice:       req.Prices.Base,
		ExtrasPrice:     req.Prices.Extras,
		Discount:        req.Prices.Discount,
		TotalPrice:      total,
		Status:          status,
		Newsletter:      req.Newsletter,
	}

	for _, extra := range req.Extras {
		order.Extras = append(order.Extras, models.OrderExtra{
			ExtraID: extra.ID,
			Name:    extra.Name,
			Price:   extra.Price,
		})
	}

	return order, nil
}

func resolveTotal(prices *models.Prices) (float64, error) {
	sum := decimal.NewFromFloat(prices.Base).
		Add(decimal.NewFromFloat(prices.Extras)).
		Sub(decimal.NewFromFloat(prices.Discount))

	if sum.IsNegative() {
		return 0, fmt.Errorf("%w: el total no puede ser negativo", errs.ErrValidation)
	}

	if prices.Total == 0 {
		total, _ := sum.Round(2).Float64()
		return total, nil
	}

	diff := decimal.NewFromFloat(prices.Total).Sub(sum).Abs()
	if diff.GreaterThan(priceTolerance) {
		return 0, fmt.Errorf("%w: el total no cuadra con el desglose de precios", errs.ErrValidation)
	}
	return prices.Total, nil
}
