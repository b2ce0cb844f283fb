// internal/handlers/user.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yecy-cosmetic/store-backend/internal/i18n"
	"github.com/yecy-cosmetic/store-backend/internal/services"
	"github.com/yecy-cosmetic/store-backend/internal/utils"
)

type UserHandler struct {
	userService *services.UserService
}

type DeactivateAccountRequest struct {
	Password string `json:"password" validate:"required"`
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// POST /auth/register
func (h *UserHandler) Register(c *gin.Context) {
	var req services.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "user")
		return
	}
	utils.CreatedResponse(c, i18n.KeyUserRegistered, user)
}

// PUT /users/me
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req services.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err, "user")
		return
	}
	utils.MessageResponse(c, i18n.KeyUserProfileUpdated, user)
}

// POST /auth/change-password
func (h *UserHandler) ChangePassword(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req services.ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.userService.ChangePassword(c.Request.Context(), userID, &req); err != nil {
		respondError(c, err, "user")
		return
	}
	utils.MessageResponse(c, i18n.KeyUserPasswordChanged, nil)
}

// DELETE /users/me
func (h *UserHandler) DeactivateAccount(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req DeactivateAccountRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.userService.Deactivate(c.Request.Context(), userID, req.Password); err != nil {
		respondError(c, err, "user")
		return
	}
	utils.MessageResponse(c, i18n.KeyUserDeactivated, nil)
}

// POST /auth/recover
func (h *UserHandler) RecoverPassword(c *gin.Context) {
	var req services.RecoverPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	// the code only goes to the server log
	if _, err := h.userService.RequestRecovery(c.Request.Context(), &req); err != nil {
		respondError(c, err, "user")
		return
	}
	utils.MessageResponse(c, i18n.KeyRecoveryCodeSent, nil)
}

// POST /auth/reset-password
func (h *UserHandler) ResetPassword(c *gin.Context) {
	var req services.ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.userService.ResetPassword(c.Request.Context(), &req); err != nil {
		respondError(c, err, "user")
		return
	}
	utils.MessageResponse(c, i18n.KeyRecoveryPasswordReset, nil)
}
