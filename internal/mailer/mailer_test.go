package mailer

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "gopkg.in/gomail.v2"

	"litoarte-backend/config"
	"litoarte-backend/internal/models"
	"litoarte-backend/internal/util"
)

// fakeSender fails delivery for recipients listed in fail and collects
// everything else.
type fakeSender struct {
	sent []*gomail.Message
	fail map[string]bool
}

func (f *fakeSender) Send(msg *gomail.Message) error {
	to := msg.GetHeader("To")
	if len(to) > 0 && f.fail[to[0]] {
		return errors.New("smtp: connection refused")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func newTestDispatcher(sender Sender) *Dispatcher {
	return &Dispatcher{
		sender: sender,
		email:  config.EmailConfig{User: "pedidos@litoarte.example"},
		company: config.CompanyConfig{
			Name:  "LitoArte",
			Email: "taller@litoarte.example",
			Phone: "+34 600 000 000",
		},
		logger: util.GetLogger(),
	}
}

func paidOrder() *models.Order {
	notes := "Entregar por la tarde"
	return &models.Order{
		ID:              7,
		OrderNumber:     "LITO-20260901-004001",
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
		Status:          models.StatusPaymentConfirmed,
		Paid:            true,
		Notes:           &notes,
		Extras: []models.OrderExtra{
			{ExtraID: "marco-madera", Name: "Marco de madera", Price: 8},
		},
	}
}

func messageBody(t *testing.T, msg *gomail.Message) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func TestDispatchConfirmation(t *testing.T) {
	sender := &fakeSender{}
	d := newTestDispatcher(sender)

	result := d.DispatchConfirmation(context.Background(), paidOrder(), nil)

	assert.True(t, result.Success)
	assert.Empty(t, result.Errors)
	require.NotNil(t, result.Customer)
	assert.Equal(t, "maria@example.com", result.Customer.To)
	require.NotNil(t, result.Company)
	assert.Equal(t, "taller@litoarte.example", result.Company.To)

	require.Len(t, sender.sent, 2)

	customer := sender.sent[0]
	assert.Contains(t, customer.GetHeader("Subject")[0], "LITO-20260901-004001")
	assert.Contains(t, messageBody(t, customer), "Marco de madera")

	company := sender.sent[1]
	assert.Contains(t, company.GetHeader("Subject")[0], "LITO-20260901-004001")
	assert.Contains(t, messageBody(t, company), "maria@example.com")
}

func TestDispatchConfirmationCustomerFails(t *testing.T) {
	sender := &fakeSender{fail: map[string]bool{"maria@example.com": true}}
	d := newTestDispatcher(sender)

	result := d.DispatchConfirmation(context.Background(), paidOrder(), nil)

	// One channel down still counts as a successful dispatch.
	assert.True(t, result.Success)
	assert.Nil(t, result.Customer)
	assert.NotNil(t, result.Company)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "cliente", result.Errors[0].Channel)
}

func TestDispatchConfirmationAllFail(t *testing.T) {
	sender := &fakeSender{fail: map[string]bool{
		"maria@example.com":       true,
		"taller@litoarte.example": true,
	}}
	d := newTestDispatcher(sender)

	result := d.DispatchConfirmation(context.Background(), paidOrder(), nil)

	assert.False(t, result.Success)
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "cliente", result.Errors[0].Channel)
	assert.Equal(t, "empresa", result.Errors[1].Channel)
}

func TestDispatchConfirmationAttachments(t *testing.T) {
	dir := t.TempDir()
	asset := filepath.Join(dir, "foto_cliente.jpg")
	require.NoError(t, os.WriteFile(asset, []byte("jpeg-bytes"), 0o644))

	sender := &fakeSender{}
	d := newTestDispatcher(sender)

	result := d.DispatchConfirmation(context.Background(), paidOrder(), []string{asset})
	require.True(t, result.Success)
	require.Len(t, sender.sent, 2)

	// The asset travels on the internal message only.
	assert.NotContains(t, messageBody(t, sender.sent[0]), "foto_cliente.jpg")
	assert.Contains(t, messageBody(t, sender.sent[1]), "foto_cliente.jpg")
}
