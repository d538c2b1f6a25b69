// Package errs defines the error taxonomy shared by the store, the
// services and the HTTP layer. Callers wrap these sentinels with
// fmt.Errorf("%w: ...") and match with errors.Is.
package errs

import "errors"

var (
	// ErrValidation marks missing or malformed caller input.
	ErrValidation = errors.New("datos no validos")

	// ErrNotFound marks an unknown order, session or draft.
	ErrNotFound = errors.New("no encontrado")

	// ErrPaymentNotCompleted marks a checkout session whose payment
	// status is not "paid".
	ErrPaymentNotCompleted = errors.New("el pago no esta confirmado")

	// ErrPaymentProvider marks a failed call to the payment provider.
	ErrPaymentProvider = errors.New("error del proveedor de pagos")

	// ErrStorage marks an underlying persistence failure.
	ErrStorage = errors.New("error de almacenamiento")
)
