package controllers

import (
	"errors"
	"net/http"

	"stayhub-backend/services"
	"stayhub-backend/utils"

	"github.com/gin-gonic/gin"
)

// respondServiceError maps the service error taxonomy onto HTTP statuses.
func respondServiceError(c *gin.Context, err error) {
	var (
		validationErr *services.ValidationError
		notFoundErr   *services.NotFoundError
		conflictErr   *services.ConflictError
		forbiddenErr  *services.ForbiddenError
		gatewayErr    *services.ExternalGatewayError
		signatureErr  *services.SignatureError
	)

	switch {
	case errors.As(err, &validationErr):
		utils.JSONErrorCode(c, http.StatusBadRequest, "error.validation", validationErr.Msg)
	case errors.As(err, &notFoundErr):
		utils.JSONErrorCode(c, http.StatusNotFound, "error.notFound", notFoundErr.Error())
	case errors.As(err, &conflictErr):
		utils.JSONErrorCode(c, http.StatusConflict, "error.conflict", conflictErr.Msg)
	case errors.As(err, &forbiddenErr):
		utils.JSONErrorCode(c, http.StatusForbidden, "error.forbidden", forbiddenErr.Msg)
	case errors.As(err, &gatewayErr):
		utils.JSONErrorCode(c, http.StatusBadGateway, "error.paymentGateway", gatewayErr.Error())
	case errors.As(err, &signatureErr):
		utils.JSONErrorCode(c, http.StatusUnauthorized, "error.signature", signatureErr.Msg)
	default:
		utils.JSONErrorCode(c, http.StatusInternalServerError, "error.internal", "internal server error")
	}
}
