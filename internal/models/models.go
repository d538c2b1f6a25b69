package models

import "time"

// Order statuses. Only StatusPaymentConfirmed is reached automatically
// (by payment confirmation); everything after it is operator-driven.
const (
	StatusPendingPayment   = "pendiente_pago"
	StatusPaymentConfirmed = "pago_confirmado"
	StatusInProduction     = "en_produccion"
	StatusCompleted        = "completado"
	StatusShipped          = "enviado"
	StatusDelivered        = "entregado"
	StatusCancelled        = "cancelado"
)

// Statuses lists every valid order status.
var Statuses = []string{
	StatusPendingPayment,
	StatusPaymentConfirmed,
	StatusInProduction,
	StatusCompleted,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

// ValidStatus reports whether s is one of the defined order statuses.
func ValidStatus(s string) bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// Product types
const (
	ProductTypeTable   = "mesa"
	ProductTypeWall    = "pared"
	ProductTypeCeiling = "techo"
	ProductTypeCustom  = "personalizado"
)

// ValidProductType reports whether t is a known product type.
func ValidProductType(t string) bool {
	switch t {
	case ProductTypeTable, ProductTypeWall, ProductTypeCeiling, ProductTypeCustom:
		return true
	}
	return false
}

// Order represents a customer order. Field tags keep the wire and column
// names of the public API.
type Order struct {
	ID              int64      `db:"id" json:"id"`
	OrderNumber     string     `db:"numero_pedido" json:"numero_pedido"`
	CreatedAt       time.Time  `db:"fecha_creacion" json:"fecha_creacion"`
	PaidAt          *time.Time `db:"fecha_pago" json:"fecha_pago,omitempty"`
	CustomerName    string     `db:"cliente_nombre" json:"cliente_nombre"`
	CustomerSurname string     `db:"cliente_apellidos" json:"cliente_apellidos"`
	CustomerEmail   string     `db:"cliente_email" json:"cliente_email"`
	CustomerPhone   string     `db:"cliente_telefono" json:"cliente_telefono"`
	ProductType     string     `db:"producto_tipo" json:"producto_tipo"`
	ProductName     string     `db:"producto_nombre" json:"producto_nombre"`
	Quantity        int        `db:"cantidad" json:"cantidad"`
	LithophaneCount *int       `db:"cantidad_litofanias" json:"cantidad_litofanias,omitempty"`
	DeliveryDays    int        `db:"plazo_entrega" json:"plazo_entrega"`
	BasePrice       float64    `db:"precio_base" json:"precio_base"`
	ExtrasPrice     float64    `db:"precio_extras" json:"precio_extras"`
	Discount        float64    `db:"precio_descuento" json:"precio_descuento"`
	TotalPrice      float64    `db:"precio_total" json:"precio_total"`
	Status          string     `db:"estado" json:"estado"`
	Paid            bool       `db:"pagado" json:"pagado"`
	SessionID       *string    `db:"stripe_session_id" json:"stripe_session_id,omitempty"`
	PaymentIntent   *string    `db:"stripe_payment_intent" json:"stripe_payment_intent,omitempty"`
	Newsletter      bool       `db:"newsletter" json:"newsletter"`
	Notes           *string    `db:"notas" json:"notas,omitempty"`
	UpdatedAt       time.Time  `db:"ultima_actualizacion" json:"ultima_actualizacion"`

	Extras []OrderExtra `db:"-" json:"extras"`
}

// OrderExtra is one extra line fixed at order creation.
type OrderExtra struct {
	ID      int64   `db:"id" json:"id"`
	OrderID int64   `db:"pedido_id" json:"pedido_id"`
	ExtraID string  `db:"extra_id" json:"extra_id"`
	Name    string  `db:"extra_nombre" json:"extra_nombre"`
	Price   float64 `db:"extra_precio" json:"extra_precio"`
}

// StatusChange is one append-only history row. PrevStatus is nil for the
// creation entry.
type StatusChange struct {
	ID         int64     `db:"id" json:"id"`
	OrderID    int64     `db:"pedido_id" json:"pedido_id"`
	PrevStatus *string   `db:"estado_anterior" json:"estado_anterior"`
	NewStatus  string    `db:"estado_nuevo" json:"estado_nuevo"`
	ChangedAt  time.Time `db:"fecha" json:"fecha"`
	Notes      *string   `db:"notas" json:"notas,omitempty"`
}

// Statistics are the aggregate counters of the admin dashboard.
type Statistics struct {
	Total      int     `json:"total"`
	Pending    int     `json:"pendientes"`
	Confirmed  int     `json:"confirmados"`
	TotalSales float64 `json:"totalVentas"`
	Today      int     `json:"hoy"`
}

// OrderFilter narrows ListOrders. All fields are optional and conjunctive.
type OrderFilter struct {
	Status string
	Email  string
	From   string
	To     string
	Limit  int
}

// OrderRequest is the inbound order shape, used both by the create
// endpoint and as the staged draft payload of the deferred-payment flow.
type OrderRequest struct {
	Contact         *Contact     `json:"contacto"`
	Product         *ProductInfo `json:"producto"`
	Quantity        int          `json:"cantidad"`
	LithophaneCount *int         `json:"cantidadLitofanias"`
	DeliveryDays    int          `json:"plazo"`
	Extras          []ExtraInput `json:"extras"`
	Prices          *Prices      `json:"precios"`
	Newsletter      bool         `json:"newsletter"`
}

type Contact struct {
	Name    string `json:"nombre"`
	Surname string `json:"apellidos"`
	Email   string `json:"email"`
	Phone   string `json:"telefono"`
}

type ProductInfo struct {
	Type string `json:"tipo"`
	Name string `json:"nombre"`
}

type ExtraInput struct {
	ID    string  `json:"id"`
	Name  string  `json:"nombre"`
	Price float64 `json:"precio"`
}

type Prices struct {
	Base     float64 `json:"base"`
	Extras   float64 `json:"extras"`
	Discount float64 `json:"descuento"`
	Total    float64 `json:"total"`
}
