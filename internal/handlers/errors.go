// internal/handlers/errors.go
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yecy-cosmetic/store-backend/internal/i18n"
	"github.com/yecy-cosmetic/store-backend/internal/services"
	"github.com/yecy-cosmetic/store-backend/internal/utils"
)

// respondError maps service errors onto the response envelope. resource
// selects the "<resource>.not_found" message.
func respondError(c *gin.Context, err error, resource string) {
	lang := utils.GetLangFromContext(c)

	var stockErr *services.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		utils.ConflictResponse(c, "INSUFFICIENT_STOCK", i18n.T(lang, i18n.KeyStockInsufficient), stockErr.Items)
	case errors.Is(err, services.ErrNotFound):
		utils.NotFoundResponse(c, resource)
	case errors.Is(err, services.ErrEmptyCart):
		utils.ErrorResponse(c, http.StatusBadRequest, "EMPTY_CART", i18n.T(lang, i18n.KeyCartEmpty), nil)
	case errors.Is(err, services.ErrCartChanged):
		utils.ConflictResponse(c, "CART_CHANGED", i18n.T(lang, i18n.KeyCartChanged), nil)
	case errors.Is(err, services.ErrInvalidQuantity):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationMin, "cantidad", "1"), nil)
	case errors.Is(err, services.ErrUnauthorized):
		utils.ForbiddenResponse(c, i18n.T(lang, forbiddenKey(resource)))
	case errors.Is(err, services.ErrInvalidTransition):
		utils.ConflictResponse(c, "INVALID_TRANSITION", i18n.T(lang, i18n.KeyOrderInvalidTransition), err.Error())
	case errors.Is(err, services.ErrRenderFailure):
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "INVOICE_UNAVAILABLE", i18n.T(lang, i18n.KeyInvoiceUnavailable), nil)
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidCredentials))
	case errors.Is(err, services.ErrAccountLocked):
		utils.ForbiddenResponse(c, i18n.T(lang, i18n.KeyAuthLocked))
	case errors.Is(err, services.ErrAccountInactive):
		utils.ForbiddenResponse(c, i18n.T(lang, i18n.KeyAuthUserInactive))
	case errors.Is(err, services.ErrNumeroTaken):
		utils.ConflictResponse(c, "NUMERO_TAKEN", i18n.T(lang, i18n.KeyUserNumeroTaken), nil)
	case errors.Is(err, services.ErrInvalidRecoveryCode):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyRecoveryInvalidCode), nil)
	case errors.Is(err, services.ErrWrongPassword):
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyUserWrongPassword), nil)
	case errors.Is(err, context.DeadlineExceeded):
		utils.ErrorResponse(c, http.StatusGatewayTimeout, "TIMEOUT", i18n.T(lang, i18n.KeyInternalError), nil)
	default:
		logrus.WithFields(logrus.Fields{
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		}).WithError(err).Error("Unhandled service error")
		utils.InternalErrorResponse(c, "")
	}
}

func forbiddenKey(resource string) string {
	if resource == "comment" {
		return i18n.KeyCommentForbidden
	}
	return i18n.KeyOrderForbidden
}

// bindJSON decodes and validates the body, writing the error response
// itself when it returns false.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return false
	}
	if err := utils.ValidateStruct(req); err != nil {
		utils.ValidationErrorResponse(c, err)
		return false
	}
	return true
}

func requireUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
	}
	return userID, ok
}

// uuidParam parses a path parameter, answering 404 when it is malformed.
func uuidParam(c *gin.Context, name, resource string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.NotFoundResponse(c, resource)
		return uuid.Nil, false
	}
	return id, true
}
