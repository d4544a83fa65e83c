// controllers/payment_controller.go
package controllers

import (
	"io"
	"net/http"
	"strconv"

	"stayhub-backend/middleware"
	"stayhub-backend/services"
	"stayhub-backend/utils"

	"github.com/gin-gonic/gin"
)

type CreateIntentRequest struct {
	BookingID uint `json:"booking_id" binding:"required"`
}

type ConfirmPaymentRequest struct {
	BookingID uint `json:"booking_id" binding:"required"`
}

type RefundRequest struct {
	AmountCents *int64 `json:"amount_cents,omitempty"`
	Reason      string `json:"reason"`
}

type PaymentController struct {
	PaymentSvc *services.PaymentService
}

func NewPaymentController(svc *services.PaymentService) *PaymentController {
	return &PaymentController{PaymentSvc: svc}
}

// CreateIntent: POST /api/payments/intent
func (pc *PaymentController) CreateIntent(c *gin.Context) {
	var req CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONErrorCode(c, http.StatusBadRequest, "error.validation", err.Error())
		return
	}

	txn, clientSecret, err := pc.PaymentSvc.CreateIntent(c.Request.Context(), req.BookingID, middleware.ActorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, gin.H{
		"transaction":   txn,
		"client_secret": clientSecret,
	})
}

// ConfirmPayment: POST /api/payments/confirm
//
// Client-driven confirmation path. The server re-checks the intent with the
// gateway instead of trusting the caller.
func (pc *PaymentController) ConfirmPayment(c *gin.Context) {
	var req ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONErrorCode(c, http.StatusBadRequest, "error.validation", err.Error())
		return
	}

	booking, err := pc.PaymentSvc.ConfirmPayment(c.Request.Context(), req.BookingID, middleware.ActorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, booking)
}

// HandleWebhook: POST /api/payments/webhook
//
// ต้องอ่าน raw body ก่อน bind เพราะลายเซ็นคำนวณจาก bytes ตรง ๆ
func (pc *PaymentController) HandleWebhook(c *gin.Context) {
	rawBody, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		utils.JSONErrorCode(c, http.StatusBadRequest, "error.validation", "cannot read request body")
		return
	}
	signature := c.GetHeader("X-Gateway-Signature")

	if err := pc.PaymentSvc.HandleWebhook(c.Request.Context(), rawBody, signature); err != nil {
		respondServiceError(c, err)
		return
	}
	// Always 200 once accepted so the gateway stops retrying.
	utils.JSONSuccess(c, http.StatusOK, gin.H{"received": true})
}

// Refund: POST /api/payments/:id/refund (admin)
func (pc *PaymentController) Refund(c *gin.Context) {
	id64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id64 == 0 {
		utils.JSONErrorCode(c, http.StatusBadRequest, "error.missingTransactionId", "invalid transaction id")
		return
	}

	var req RefundRequest
	_ = c.ShouldBindJSON(&req) // body is optional, defaults to full refund

	txn, svcErr := pc.PaymentSvc.RefundPayment(c.Request.Context(), uint(id64), req.AmountCents, req.Reason, middleware.ActorFrom(c))
	if svcErr != nil {
		respondServiceError(c, svcErr)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, txn)
}
