package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"carrental/internal/flutterwave"
	"carrental/internal/service"
)

const maxWebhookBody = 1 << 20

// PaymentHandler handles payment gateway redirects and webhooks.
type PaymentHandler struct {
	confirmationService *service.ConfirmationService
	secretHash          string
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(confirmationService *service.ConfirmationService, secretHash string) *PaymentHandler {
	return &PaymentHandler{
		confirmationService: confirmationService,
		secretHash:          secretHash,
	}
}

// Callback handles GET /api/payment/callback
func (h *PaymentHandler) Callback(c *gin.Context) {
	outcome, err := h.confirmationService.HandleRedirect(c.Request.Context(), service.RedirectParams{
		Status:        c.Query("status"),
		TxRef:         c.Query("tx_ref"),
		TransactionID: c.Query("transaction_id"),
	})
	if err != nil {
		code, msg := mapError(err)
		if code >= http.StatusInternalServerError {
			slog.ErrorContext(c.Request.Context(), "payment callback failed", "error", err)
			_ = c.Error(err)
		}
		c.String(code, msg)
		return
	}

	c.String(http.StatusOK, outcome.Message())
}

// Webhook handles POST /api/payment/webhook
func (h *PaymentHandler) Webhook(c *gin.Context) {
	if !flutterwave.VerifyWebhookHash(c.GetHeader(flutterwave.WebhookHashHeader), h.secretHash) {
		slog.WarnContext(c.Request.Context(), "webhook rejected: bad verif-hash",
			"remote_addr", c.ClientIP())
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "Unauthorized"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		respondError(c, err)
		return
	}

	var event flutterwave.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		// Malformed payloads are acknowledged so the gateway does not retry them.
		slog.WarnContext(c.Request.Context(), "webhook payload not decodable", "error", err)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	if _, err := h.confirmationService.HandleWebhook(c.Request.Context(), event); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
