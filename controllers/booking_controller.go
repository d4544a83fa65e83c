// controllers/booking_controller.go
package controllers

import (
	"net/http"
	"strconv"
	"time"

	"stayhub-backend/middleware"
	"stayhub-backend/services"
	"stayhub-backend/utils"

	"github.com/gin-gonic/gin"
)

// ---------------------------
// Payload / DTOs
// ---------------------------

type CreateBookingRequest struct {
	CustomerID uint   `json:"customer_id" binding:"required"`
	RoomID     uint   `json:"room_id" binding:"required"`
	CheckIn    string `json:"check_in" binding:"required"`
	CheckOut   string `json:"check_out" binding:"required"`
	Guests     int    `json:"guests" binding:"required,min=1"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason"`
	// Admin-only explicit refund amount in minor units.
	AmountCents *int64 `json:"amount_cents,omitempty"`
}

type RedeemPointsRequest struct {
	Points int64 `json:"points" binding:"required"`
}

// ---------------------------
// Controller
// ---------------------------

type BookingController struct {
	BookingSvc *services.BookingService
}

func NewBookingController(svc *services.BookingService) *BookingController {
	return &BookingController{BookingSvc: svc}
}

func bookingIDParam(c *gin.Context) (uint, bool) {
	id64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id64 == 0 {
		utils.JSONErrorCode(c, http.StatusBadRequest, "error.missingBookingId", "invalid booking id")
		return 0, false
	}
	return uint(id64), true
}

func parseDate(raw string) (time.Time, bool) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// CreateBooking: POST /api/bookings
func (bc *BookingController) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONErrorCode(c, http.StatusBadRequest, "error.validation", err.Error())
		return
	}

	checkIn, ok := parseDate(req.CheckIn)
	if !ok {
		utils.JSONErrorCode(c, http.StatusBadRequest, "error.validation", "invalid check_in format, want YYYY-MM-DD")
		return
	}
	checkOut, ok := parseDate(req.CheckOut)
	if !ok {
		utils.JSONErrorCode(c, http.StatusBadRequest, "error.validation", "invalid check_out format, want YYYY-MM-DD")
		return
	}

	booking, err := bc.BookingSvc.CreateBooking(c.Request.Context(), services.CreateBookingInput{
		CustomerID: req.CustomerID,
		RoomID:     req.RoomID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Guests:     req.Guests,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusCreated, booking)
}

// GetBookingDetails: GET /api/bookings/:id
func (bc *BookingController) GetBookingDetails(c *gin.Context) {
	id, ok := bookingIDParam(c)
	if !ok {
		return
	}
	booking, err := bc.BookingSvc.GetBooking(c.Request.Context(), id, middleware.ActorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, booking)
}

// CancelBooking: POST /api/bookings/:id/cancel
func (bc *BookingController) CancelBooking(c *gin.Context) {
	id, ok := bookingIDParam(c)
	if !ok {
		return
	}

	var req CancelBookingRequest
	_ = c.ShouldBindJSON(&req) // body is optional

	booking, err := bc.BookingSvc.CancelBooking(c.Request.Context(), id, middleware.ActorFrom(c), req.Reason, req.AmountCents)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, booking)
}

// RedeemPoints: POST /api/bookings/:id/redeem-points
func (bc *BookingController) RedeemPoints(c *gin.Context) {
	id, ok := bookingIDParam(c)
	if !ok {
		return
	}

	var req RedeemPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONErrorCode(c, http.StatusBadRequest, "error.validation", err.Error())
		return
	}

	booking, redemption, err := bc.BookingSvc.ApplyPointsRedemption(c.Request.Context(), id, middleware.ActorFrom(c), req.Points)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{
		"booking":    booking,
		"redemption": redemption,
	})
}

// CheckIn: POST /api/bookings/:id/checkin
func (bc *BookingController) CheckIn(c *gin.Context) {
	id, ok := bookingIDParam(c)
	if !ok {
		return
	}
	booking, err := bc.BookingSvc.CheckIn(c.Request.Context(), id, middleware.ActorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, booking)
}

// CheckOut: POST /api/bookings/:id/checkout
func (bc *BookingController) CheckOut(c *gin.Context) {
	id, ok := bookingIDParam(c)
	if !ok {
		return
	}
	booking, err := bc.BookingSvc.CheckOut(c.Request.Context(), id, middleware.ActorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, booking)
}

// MarkNoShow: POST /api/bookings/:id/no-show
func (bc *BookingController) MarkNoShow(c *gin.Context) {
	id, ok := bookingIDParam(c)
	if !ok {
		return
	}
	booking, err := bc.BookingSvc.MarkNoShow(c.Request.Context(), id, middleware.ActorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, booking)
}
