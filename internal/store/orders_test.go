package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litoarte-backend/internal/errs"
	"litoarte-backend/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleOrder(orderNumber string) *models.Order {
	return &models.Order{
		OrderNumber:     orderNumber,
		CustomerName:    "Maria",
		CustomerSurname: "Garcia Lopez",
		CustomerEmail:   "maria@example.com",
		CustomerPhone:   "+34600111222",
		ProductType:     models.ProductTypeTable,
		ProductName:     "Lámpara de mesa",
		Quantity:        1,
		DeliveryDays:    15,
		BasePrice:       50,
		ExtrasPrice:     8,
		TotalPrice:      58,
		Status:          models.StatusPendingPayment,
		Extras: []models.OrderExtra{
			{ExtraID: "marco-madera", Name: "Marco de madera", Price: 8},
		},
	}
}

func TestCreateAndGetOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	order := sampleOrder("LITO-20260901-001001")
	require.NoError(t, s.CreateOrder(ctx, order))
	assert.NotZero(t, order.ID)

	got, err := s.GetOrder(ctx, order.OrderNumber)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, order.OrderNumber, got.OrderNumber)
	assert.Equal(t, "Maria", got.CustomerName)
	assert.Equal(t, models.StatusPendingPayment, got.Status)
	assert.False(t, got.Paid)
	assert.Nil(t, got.PaidAt)
	assert.InDelta(t, 58, got.TotalPrice, 0.001)

	require.Len(t, got.Extras, 1)
	assert.Equal(t, "marco-madera", got.Extras[0].ExtraID)
	assert.InDelta(t, 8, got.Extras[0].Price, 0.001)

	history, err := s.GetHistory(ctx, order.OrderNumber)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].PrevStatus)
	assert.Equal(t, models.StatusPendingPayment, history[0].NewStatus)
}

func TestGetOrderMissing(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetOrder(context.Background(), "LITO-20260901-999999")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdateStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	order := sampleOrder("LITO-20260901-001002")
	require.NoError(t, s.CreateOrder(ctx, order))

	err := s.UpdateStatus(ctx, order.OrderNumber, models.StatusInProduction, "Impresión iniciada")
	require.NoError(t, err)

	got, err := s.GetOrder(ctx, order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProduction, got.Status)
	require.NotNil(t, got.Notes)
	assert.Equal(t, "Impresión iniciada", *got.Notes)

	history, err := s.GetHistory(ctx, order.OrderNumber)
	require.NoError(t, err)
	require.Len(t, history, 2)
	// Newest first.
	require.NotNil(t, history[0].PrevStatus)
	assert.Equal(t, models.StatusPendingPayment, *history[0].PrevStatus)
	assert.Equal(t, models.StatusInProduction, history[0].NewStatus)
}

func TestUpdateStatusMissingOrder(t *testing.T) {
	s := newTestStore(t)

	err := s.UpdateStatus(context.Background(), "LITO-20260901-999999", models.StatusCancelled, "")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestMarkPaid(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	order := sampleOrder("LITO-20260901-001003")
	require.NoError(t, s.CreateOrder(ctx, order))

	require.NoError(t, s.MarkPaid(ctx, order.OrderNumber, "pi_123"))

	got, err := s.GetOrder(ctx, order.OrderNumber)
	require.NoError(t, err)
	assert.True(t, got.Paid)
	assert.Equal(t, models.StatusPaymentConfirmed, got.Status)
	assert.NotNil(t, got.PaidAt)
	require.NotNil(t, got.PaymentIntent)
	assert.Equal(t, "pi_123", *got.PaymentIntent)

	// A duplicate confirmation converges on the same state but leaves an
	// extra audit row.
	require.NoError(t, s.MarkPaid(ctx, order.OrderNumber, "pi_123"))

	got, err = s.GetOrder(ctx, order.OrderNumber)
	require.NoError(t, err)
	assert.True(t, got.Paid)
	assert.Equal(t, models.StatusPaymentConfirmed, got.Status)

	history, err := s.GetHistory(ctx, order.OrderNumber)
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestMarkPaidMissingOrder(t *testing.T) {
	s := newTestStore(t)

	err := s.MarkPaid(context.Background(), "LITO-20260901-999999", "pi_123")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestAssociateSession(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	order := sampleOrder("LITO-20260901-001004")
	require.NoError(t, s.CreateOrder(ctx, order))

	require.NoError(t, s.AssociateSession(ctx, order.OrderNumber, "cs_test_abc"))

	got, err := s.GetOrderBySessionID(ctx, "cs_test_abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, order.OrderNumber, got.OrderNumber)

	none, err := s.GetOrderBySessionID(ctx, "cs_test_missing")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestListOrders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		order := sampleOrder(fmt.Sprintf("LITO-20260901-00200%d", i))
		if i == 2 {
			order.CustomerEmail = "otro@example.com"
		}
		require.NoError(t, s.CreateOrder(ctx, order))
	}
	require.NoError(t, s.MarkPaid(ctx, "LITO-20260901-002000", "pi_1"))

	all, err := s.ListOrders(ctx, models.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Newest first; identical timestamps fall back to insertion order.
	assert.Equal(t, "LITO-20260901-002002", all[0].OrderNumber)

	pending, err := s.ListOrders(ctx, models.OrderFilter{Status: models.StatusPendingPayment})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	byEmail, err := s.ListOrders(ctx, models.OrderFilter{Email: "otro@example.com"})
	require.NoError(t, err)
	require.Len(t, byEmail, 1)
	assert.Equal(t, "LITO-20260901-002002", byEmail[0].OrderNumber)

	limited, err := s.ListOrders(ctx, models.OrderFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestGetStatistics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := sampleOrder("LITO-20260901-003000")
	require.NoError(t, s.CreateOrder(ctx, first))

	second := sampleOrder("LITO-20260901-003001")
	second.TotalPrice = 120
	require.NoError(t, s.CreateOrder(ctx, second))
	require.NoError(t, s.MarkPaid(ctx, second.OrderNumber, "pi_2"))

	stats, err := s.GetStatistics(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.Confirmed)
	assert.InDelta(t, 120, stats.TotalSales, 0.001)
	assert.Equal(t, 2, stats.Today)
}
