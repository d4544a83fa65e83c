// controllers/loyalty_controller.go
package controllers

import (
	"net/http"
	"strconv"

	"stayhub-backend/middleware"
	"stayhub-backend/services"
	"stayhub-backend/utils"

	"github.com/gin-gonic/gin"
)

type AdjustPointsRequest struct {
	Points int64  `json:"points" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

type LoyaltyController struct {
	LoyaltySvc *services.LoyaltyService
}

func NewLoyaltyController(svc *services.LoyaltyService) *LoyaltyController {
	return &LoyaltyController{LoyaltySvc: svc}
}

func customerIDParam(c *gin.Context) (uint, bool) {
	id64, err := strconv.ParseUint(c.Param("customerId"), 10, 64)
	if err != nil || id64 == 0 {
		utils.JSONErrorCode(c, http.StatusBadRequest, "error.missingCustomerId", "invalid customer id")
		return 0, false
	}
	return uint(id64), true
}

// GetMyAccount: GET /api/loyalty/account — the caller's own account.
func (lc *LoyaltyController) GetMyAccount(c *gin.Context) {
	actor := middleware.ActorFrom(c)
	if actor.UserID == 0 {
		utils.JSONErrorCode(c, http.StatusForbidden, "error.forbidden", "no authenticated customer")
		return
	}
	lc.renderAccount(c, actor.UserID)
}

// GetAccount: GET /api/loyalty/:customerId
func (lc *LoyaltyController) GetAccount(c *gin.Context) {
	customerID, ok := customerIDParam(c)
	if !ok {
		return
	}

	actor := middleware.ActorFrom(c)
	if !actor.IsStaff() && actor.UserID != customerID {
		utils.JSONErrorCode(c, http.StatusForbidden, "error.forbidden", "not allowed to view this account")
		return
	}
	lc.renderAccount(c, customerID)
}

func (lc *LoyaltyController) renderAccount(c *gin.Context, customerID uint) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	account, history, err := lc.LoyaltySvc.GetAccountWithHistory(c.Request.Context(), customerID, limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{
		"account": account,
		"history": history,
	})
}

// AdjustPoints: POST /api/loyalty/:customerId/adjust (admin)
func (lc *LoyaltyController) AdjustPoints(c *gin.Context) {
	customerID, ok := customerIDParam(c)
	if !ok {
		return
	}

	actor := middleware.ActorFrom(c)
	if !actor.IsAdmin() {
		utils.JSONErrorCode(c, http.StatusForbidden, "error.forbidden", "admin role required")
		return
	}

	var req AdjustPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONErrorCode(c, http.StatusBadRequest, "error.validation", err.Error())
		return
	}

	entry, err := lc.LoyaltySvc.AdjustPoints(c.Request.Context(), customerID, req.Points, req.Reason, actor.UserID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, entry)
}

// ReconcileBalance: GET /api/loyalty/:customerId/reconcile (admin)
func (lc *LoyaltyController) ReconcileBalance(c *gin.Context) {
	customerID, ok := customerIDParam(c)
	if !ok {
		return
	}

	actor := middleware.ActorFrom(c)
	if !actor.IsAdmin() {
		utils.JSONErrorCode(c, http.StatusForbidden, "error.forbidden", "admin role required")
		return
	}

	ledgerSum, cached, err := lc.LoyaltySvc.ReconcileBalance(c.Request.Context(), customerID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.JSONSuccess(c, http.StatusOK, gin.H{
		"ledger_sum":     ledgerSum,
		"cached_balance": cached,
		"consistent":     ledgerSum == cached,
	})
}
