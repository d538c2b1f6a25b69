package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"litoarte-backend/internal/errs"
	"litoarte-backend/internal/models"
)

// CreateOrder inserts the order, its extras and the initial history row in
// one transaction. The new internal id is written back into order.ID.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrStorage, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO pedidos (
			numero_pedido, cliente_nombre, cliente_apellidos, cliente_email, cliente_telefono,
			producto_tipo, producto_nombre, cantidad, cantidad_litofanias, plazo_entrega,
			precio_base, precio_extras, precio_descuento, precio_total,
			estado, newsletter
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.OrderNumber, order.CustomerName, order.CustomerSurname, order.CustomerEmail, order.CustomerPhone,
		order.ProductType, order.ProductName, order.Quantity, order.LithophaneCount, order.DeliveryDays,
		order.BasePrice, order.ExtrasPrice, order.Discount, order.TotalPrice,
		order.Status, order.Newsletter)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrStorage, err)
	}

	orderID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrStorage, err)
	}

	for i := range order.Extras {
		order.Extras[i].OrderID = orderID
		_, err := tx.ExecContext(ctx, `
			INSERT INTO pedido_extras (pedido_id, extra_id, extra_nombre, extra_precio)
			VALUES (?, ?, ?, ?)`,
			orderID, order.Extras[i].ExtraID, order.Extras[i].Name, order.Extras[i].Price)
		if err != nil {
			return fmt.Errorf("%w: %v", errs.ErrStorage, err)
		}
	}

	if err := appendHistory(ctx, tx, orderID, nil, order.Status, strPtr("Pedido creado")); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrStorage, err)
	}

	order.ID = orderID
	return nil
}

// GetOrder retrieves an order with its extras by order number.
// Returns (nil, nil) when the order does not exist.
func (s *Store) GetOrder(ctx context.Context, orderNumber string) (*models.Order, error) {
	return s.getOrderBy(ctx, "SELECT * FROM pedidos WHERE numero_pedido = ?", orderNumber)
}

// GetOrderBySessionID retrieves an order by its checkout session id.
// Returns (nil, nil) when no order carries that session.
func (s *Store) GetOrderBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	return s.getOrderBy(ctx, "SELECT * FROM pedidos WHERE stripe_session_id = ?", sessionID)
}

func (s *Store) getOrderBy(ctx context.Context, query string, arg any) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, query, arg)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrStorage, err)
	}

	if err := s.db.SelectContext(ctx, &order.Extras,
		"SELECT * FROM pedido_extras WHERE pedido_id = ? ORDER BY id", order.ID); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrStorage, err)
	}

	return &order, nil
}

// ListOrders returns orders matching every set filter, newest first.
func (s *Store) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	query := "SELECT * FROM pedidos WHERE 1=1"
	args := []any{}

	if filter.Status != "" {
		query += " AND estado = ?"
		args = append(args, filter.Status)
	}
	if filter.Email != "" {
		query += " AND cliente_email = ?"
		args = append(args, filter.Email)
	}
	if filter.From != "" {
		query += " AND fecha_creacion >= ?"
		args = append(args, filter.From)
	}
	if filter.To != "" {
		query += " AND fecha_creacion <= ?"
		args = append(args, filter.To)
	}

	query += " ORDER BY fecha_creacion DESC, id DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	orders := []models.Order{}
	if err := s.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrStorage, err)
	}
	return orders, nil
}

// UpdateStatus sets a new status, touches the update timestamp and notes,
// and appends a history row. Any status string is accepted here; status
// validation belongs to the caller.
func (s *Store) UpdateStatus(ctx context.Context, orderNumber, newStatus, notes string) error {
	order, err := s.GetOrder(ctx, orderNumber)
	if err != nil {
		return err
	}
	if order == nil {
		return fmt.Errorf("%w: pedido %s", errs.ErrNotFound, orderNumber)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE pedidos
		SET estado = ?, ultima_actualizacion = CURRENT_TIMESTAMP, notas = ?
		WHERE numero_pedido = ?`,
		newStatus, nullable(notes), orderNumber)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrStorage, err)
	}

	return appendHistory(ctx, s.db, order.ID, &order.Status, newStatus, nullable(notes))
}

// MarkPaid unconditionally flips the order to paid/pago_confirmado and
// stores the payment intent. The end state is idempotent, but every call
// appends another history row; that audit behavior is intentional.
func (s *Store) MarkPaid(ctx context.Context, orderNumber, paymentIntentID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE pedidos
		SET pagado = 1,
		    estado = ?,
		    fecha_pago = CURRENT_TIMESTAMP,
		    stripe_payment_intent = ?,
		    ultima_actualizacion = CURRENT_TIMESTAMP
		WHERE numero_pedido = ?`,
		models.StatusPaymentConfirmed, nullable(paymentIntentID), orderNumber)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrStorage, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: pedido %s", errs.ErrNotFound, orderNumber)
	}

	var orderID int64
	if err := s.db.GetContext(ctx, &orderID,
		"SELECT id FROM pedidos WHERE numero_pedido = ?", orderNumber); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrStorage, err)
	}

	prev := models.StatusPendingPayment
	return appendHistory(ctx, s.db, orderID, &prev, models.StatusPaymentConfirmed,
		strPtr("Pago confirmado por Stripe"))
}

// AssociateSession records the checkout session id. No history row.
func (s *Store) AssociateSession(ctx context.Context, orderNumber, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE pedidos SET stripe_session_id = ? WHERE numero_pedido = ?",
		sessionID, orderNumber)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrStorage, err)
	}
	return nil
}

// GetHistory returns all history rows for an order, newest first.
func (s *Store) GetHistory(ctx context.Context, orderNumber string) ([]models.StatusChange, error) {
	order, err := s.GetOrder(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return []models.StatusChange{}, nil
	}

	history := []models.StatusChange{}
	err = s.db.SelectContext(ctx, &history, `
		SELECT * FROM pedido_historial
		WHERE pedido_id = ?
		ORDER BY fecha DESC, id DESC`, order.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrStorage, err)
	}
	return history, nil
}

// GetStatistics returns the aggregate dashboard counters.
func (s *Store) GetStatistics(ctx context.Context) (*models.Statistics, error) {
	var stats models.Statistics

	queries := []struct {
		dest  any
		query string
	}{
		{&stats.Total, "SELECT COUNT(*) FROM pedidos"},
		{&stats.Pending, "SELECT COUNT(*) FROM pedidos WHERE estado = 'pendiente_pago'"},
		{&stats.Confirmed, "SELECT COUNT(*) FROM pedidos WHERE pagado = 1"},
		{&stats.TotalSales, "SELECT COALESCE(SUM(precio_total), 0) FROM pedidos WHERE pagado = 1"},
		{&stats.Today, "SELECT COUNT(*) FROM pedidos WHERE DATE(fecha_creacion) = DATE('now')"},
	}
	for _, q := range queries {
		if err := s.db.GetContext(ctx, q.dest, q.query); err != nil {
			return nil, fmt.Errorf("%w: %v", errs.ErrStorage, err)
		}
	}

	return &stats, nil
}

func appendHistory(ctx context.Context, q sqlx.ExtContext, orderID int64, prev *string, next string, notes *string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO pedido_historial (pedido_id, estado_anterior, estado_nuevo, notas)
		VALUES (?, ?, ?, ?)`,
		orderID, prev, next, notes)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrStorage, err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func strPtr(s string) *string { return &s }
