package api

import (
	"context"
	"errors"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"litoarte-backend/internal/errs"
	"litoarte-backend/internal/models"
	"litoarte-backend/internal/payments"
	"litoarte-backend/internal/service"
	"litoarte-backend/internal/staging"
	"litoarte-backend/internal/util"
)

const maxUploadFiles = 10

// DeadLetter records webhook deliveries that failed processing.
type DeadLetter interface {
	Record(ctx context.Context, eventID, eventType string, payload []byte, cause error) error
}

// Handler contains HTTP handlers
type Handler struct {
	orders        *service.OrderService
	payments      *service.PaymentService
	confirmations *service.ConfirmationService
	provider      payments.Client
	staging       *staging.Staging
	deadLetter    DeadLetter
	logger        *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	orders *service.OrderService,
	paymentService *service.PaymentService,
	confirmations *service.ConfirmationService,
	provider payments.Client,
	stg *staging.Staging,
	deadLetter DeadLetter,
) *Handler {
	return &Handler{
		orders:        orders,
		payments:      paymentService,
		confirmations: confirmations,
		provider:      provider,
		staging:       stg,
		deadLetter:    deadLetter,
		logger:        util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/health", h.healthCheck)

		api.POST("/pedidos/crear", h.createOrder)
		api.GET("/pedidos", h.listOrders)
		api.GET("/pedidos/:numeroPedido", h.getOrder)
		api.PUT("/pedidos/:numeroPedido/estado", h.updateStatus)
		api.GET("/pedidos/:numeroPedido/historial", h.getHistory)
		api.POST("/pedidos/:numeroPedido/enviar-emails", h.sendEmails)
		api.POST("/pedidos/:numeroPedido/confirmar-pago", h.confirmOrderPayment)

		api.POST("/pagos/crear-session", h.createSession)
		api.POST("/pagos/crear-session-v2", h.createDraftSession)
		api.POST("/pagos/confirmar", h.confirmDraftPayment)

		api.GET("/estadisticas", h.getStatistics)

		api.POST("/uploads/temp", h.uploadTemp)
	}

	router.POST("/webhook/stripe", h.stripeWebhook)
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"message":   "Servidor LitoArte funcionando correctamente",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (h *Handler) createOrder(c *gin.Context) {
	var req models.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Cuerpo de la petición no válido",
			"details": err.Error(),
		})
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Error al crear el pedido")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"numeroPedido": order.OrderNumber,
		"pedidoId":     order.ID,
		"message":      "Pedido creado correctamente",
	})
}

func (h *Handler) getOrder(c *gin.Context) {
	order, err := h.orders.GetOrder(c.Request.Context(), c.Param("numeroPedido"))
	if err != nil {
		respondError(c, err, "Error al obtener el pedido")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"pedido":  order,
	})
}

func (h *Handler) listOrders(c *gin.Context) {
	limit := 0
	if v := c.Query("limite"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	orders, err := h.orders.ListOrders(c.Request.Context(), models.OrderFilter{
		Status: c.Query("estado"),
		Email:  c.Query("email"),
		From:   c.Query("desde"),
		To:     c.Query("hasta"),
		Limit:  limit,
	})
	if err != nil {
		respondError(c, err, "Error al listar pedidos")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(orders),
		"pedidos": orders,
	})
}

func (h *Handler) updateStatus(c *gin.Context) {
	var req struct {
		Status string `json:"estado"`
		Notes  string `json:"notas"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Cuerpo de la petición no válido",
			"details": err.Error(),
		})
		return
	}

	if err := h.orders.UpdateStatus(c.Request.Context(), c.Param("numeroPedido"), req.Status, req.Notes); err != nil {
		respondError(c, err, "Error al actualizar estado")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Estado actualizado correctamente",
	})
}

func (h *Handler) getHistory(c *gin.Context) {
	history, err := h.orders.GetHistory(c.Request.Context(), c.Param("numeroPedido"))
	if err != nil {
		respondError(c, err, "Error al obtener historial")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"historial": history,
	})
}

func (h *Handler) getStatistics(c *gin.Context) {
	stats, err := h.orders.GetStatistics(c.Request.Context())
	if err != nil {
		respondError(c, err, "Error al obtener estadísticas")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"estadisticas": stats,
	})
}

func (h *Handler) sendEmails(c *gin.Context) {
	result, err := h.confirmations.SendEmails(c.Request.Context(), c.Param("numeroPedido"))
	if err != nil {
		respondError(c, err, "Error al enviar emails")
		return
	}

	message := "Emails enviados correctamente"
	if !result.Success {
		message = "Error al enviar algunos emails"
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    result.Success,
		"resultados": result,
		"message":    message,
	})
}

func (h *Handler) createSession(c *gin.Context) {
	var req struct {
		OrderNumber string `json:"numeroPedido"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.OrderNumber == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Número de pedido requerido"})
		return
	}

	info, err := h.payments.CreateSessionForOrder(c.Request.Context(), req.OrderNumber)
	if err != nil {
		respondError(c, err, "Error al crear sesión de pago")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"sessionId": info.SessionID,
		"url":       info.URL,
	})
}

func (h *Handler) createDraftSession(c *gin.Context) {
	var req struct {
		Payload   *models.OrderRequest `json:"payload"`
		TempToken string               `json:"tempToken"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Cuerpo de la petición no válido",
			"details": err.Error(),
		})
		return
	}

	info, err := h.payments.CreateDraftSession(c.Request.Context(), req.Payload, req.TempToken)
	if err != nil {
		respondError(c, err, "Error al crear sesión de pago")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"sessionId": info.SessionID,
		"url":       info.URL,
		"tempToken": info.TempToken,
	})
}

func (h *Handler) confirmOrderPayment(c *gin.Context) {
	_, err := h.confirmations.ConfirmOrderPayment(c.Request.Context(), c.Param("numeroPedido"), c.Query("session_id"))
	if err != nil {
		respondError(c, err, "Error al confirmar pago")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Pago confirmado correctamente",
	})
}

func (h *Handler) confirmDraftPayment(c *gin.Context) {
	order, err := h.confirmations.ConfirmDraftPayment(c.Request.Context(), c.Query("session_id"))
	if err != nil {
		respondError(c, err, "Error al confirmar pago")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"numeroPedido": order.OrderNumber,
		"pedido":       order,
	})
}

func (h *Handler) uploadTemp(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Subida no válida", "details": err.Error()})
		return
	}

	files := form.File["fotos[]"]
	if len(files) > maxUploadFiles {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Demasiados archivos"})
		return
	}

	token := c.PostForm("token")
	if token == "" {
		token = uuid.New().String()
	}

	dir, err := h.staging.TempDir(token)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al subir fotos", "details": err.Error()})
		return
	}

	uploaded := make([]gin.H, 0, len(files))
	for _, file := range files {
		name := staging.SafeFilename(file.Filename)
		if err := c.SaveUploadedFile(file, filepath.Join(dir, name)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error al subir fotos", "details": err.Error()})
			return
		}
		uploaded = append(uploaded, gin.H{
			"filename": name,
			"pathRel":  path.Join("uploads", "temp", token, name),
			"mime":     file.Header.Get("Content-Type"),
			"size":     file.Size,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"files":   uploaded,
	})
}

// stripeWebhook verifies and processes provider events. Only a signature
// failure is rejected; any processing error is logged, recorded to the
// dead-letter log and acknowledged anyway so the provider stops
// redelivering. MarkPaid tolerates the duplicates that follow from this.
func (h *Handler) stripeWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.String(http.StatusBadRequest, "Webhook Error: %v", err)
		return
	}

	event, err := h.provider.VerifyWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		h.logger.Error("Webhook signature verification failed", zap.Error(err))
		c.String(http.StatusBadRequest, "Webhook Error: %v", err)
		return
	}

	util.WebhookEventsTotal.WithLabelValues(event.Type).Inc()

	if event.Type == "checkout.session.completed" && event.Session != nil {
		if err := h.confirmations.HandleCheckoutCompleted(c.Request.Context(), event.Session); err != nil {
			h.logger.Error("Webhook processing failed",
				zap.String("event_id", event.ID),
				zap.Error(err))
			util.WebhookFailuresTotal.WithLabelValues("processing").Inc()
			if h.deadLetter != nil {
				if dlErr := h.deadLetter.Record(c.Request.Context(), event.ID, event.Type, event.Raw, err); dlErr != nil {
					h.logger.Error("Failed to record dead-letter entry", zap.Error(dlErr))
				}
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

func respondError(c *gin.Context, err error, message string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrValidation), errors.Is(err, errs.ErrPaymentNotCompleted):
		status = http.StatusBadRequest
	case errors.Is(err, errs.ErrNotFound):
		status = http.StatusNotFound
	}

	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
