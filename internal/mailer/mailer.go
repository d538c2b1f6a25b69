// Package mailer renders and sends the two confirmation messages of a
// paid order: the customer receipt and the internal company alert. Sends
// are independent; a failed channel never blocks the other one, and no
// provider error escapes the dispatcher.
package mailer

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"

	"litoarte-backend/config"
	"litoarte-backend/internal/models"
	"litoarte-backend/internal/util"
)

// Sender delivers one rendered message.
type Sender interface {
	Send(msg *gomail.Message) error
}

type smtpSender struct {
	dialer *gomail.Dialer
}

func (s *smtpSender) Send(msg *gomail.Message) error {
	return s.dialer.DialAndSend(msg)
}

// SendOutcome describes one successful channel send.
type SendOutcome struct {
	Success bool   `json:"success"`
	To      string `json:"destinatario"`
}

// SendError describes one failed channel send.
type SendError struct {
	Channel string `json:"tipo"`
	Message string `json:"mensaje"`
}

// Result is the per-dispatch outcome record. Success is true when at
// least one of the two sends went through.
type Result struct {
	Customer *SendOutcome `json:"cliente"`
	Company  *SendOutcome `json:"empresa"`
	Success  bool         `json:"exito"`
	Errors   []SendError  `json:"errores"`
}

// Dispatcher sends confirmation emails over SMTP.
type Dispatcher struct {
	sender  Sender
	email   config.EmailConfig
	company config.CompanyConfig
	logger  *zap.Logger
}

// New creates a dispatcher backed by the configured SMTP transport.
func New(email config.EmailConfig, company config.CompanyConfig) *Dispatcher {
	dialer := gomail.NewDialer(email.Host, email.Port, email.User, email.Password)
	dialer.SSL = email.Secure
	return &Dispatcher{
		sender:  &smtpSender{dialer: dialer},
		email:   email,
		company: company,
		logger:  util.GetLogger(),
	}
}

// DispatchConfirmation sends the customer receipt and the company alert
// for a confirmed order. Attachments go to the company message only.
func (d *Dispatcher) DispatchConfirmation(ctx context.Context, order *models.Order, attachments []string) *Result {
	result := &Result{Errors: []SendError{}}

	if err := d.sendCustomer(order); err != nil {
		d.logger.Error("Failed to send customer email",
			zap.String("numero_pedido", order.OrderNumber),
			zap.Error(err))
		util.EmailFailuresTotal.WithLabelValues("cliente").Inc()
		result.Errors = append(result.Errors, SendError{Channel: "cliente", Message: err.Error()})
	} else {
		util.EmailsSentTotal.WithLabelValues("cliente").Inc()
		result.Customer = &SendOutcome{Success: true, To: order.CustomerEmail}
	}

	if err := d.sendCompany(order, attachments); err != nil {
		d.logger.Error("Failed to send company email",
			zap.String("numero_pedido", order.OrderNumber),
			zap.Error(err))
		util.EmailFailuresTotal.WithLabelValues("empresa").Inc()
		result.Errors = append(result.Errors, SendError{Channel: "empresa", Message: err.Error()})
	} else {
		util.EmailsSentTotal.WithLabelValues("empresa").Inc()
		result.Company = &SendOutcome{Success: true, To: d.company.Email}
	}

	result.Success = result.Customer != nil || result.Company != nil
	return result
}

func (d *Dispatcher) sendCustomer(order *models.Order) error {
	html, err := renderCustomerHTML(order, d.company)
	if err != nil {
		return fmt.Errorf("failed to render customer email: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", d.email.User, d.company.Name)
	msg.SetHeader("To", order.CustomerEmail)
	msg.SetHeader("Subject", fmt.Sprintf("Confirmación de Pedido %s - %s", order.OrderNumber, d.company.Name))
	msg.SetBody("text/html", html)

	return d.sender.Send(msg)
}

func (d *Dispatcher) sendCompany(order *models.Order, attachments []string) error {
	html, err := renderCompanyHTML(order, d.company)
	if err != nil {
		return fmt.Errorf("failed to render company email: %w", err)
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", d.email.User, "Sistema "+d.company.Name)
	msg.SetHeader("To", d.company.Email)
	msg.SetHeader("Subject", fmt.Sprintf("NUEVO PEDIDO: %s - %.2f€", order.OrderNumber, order.TotalPrice))
	msg.SetBody("text/html", html)
	for _, path := range attachments {
		msg.Attach(path)
	}

	return d.sender.Send(msg)
}
