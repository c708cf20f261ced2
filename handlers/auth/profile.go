package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/classmate-ai/backend/utils/auth"
	"github.com/classmate-ai/backend/utils/middleware"
	"github.com/classmate-ai/backend/utils/response"
)

// GetProfile handles GET /api/v1/auth/me
func (h *AuthHandler) GetProfile(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	return response.Success(c, UserResponse{
		ID:          user.ID.String(),
		Email:       user.Email,
		DisplayName: user.DisplayName,
		CreatedAt:   user.CreatedAt,
	})
}

// UpdateProfileRequest represents a profile update
type UpdateProfileRequest struct {
	DisplayName string `json:"display_name" validate:"omitempty,max=120"`
}

// UpdateProfile handles PATCH /api/v1/auth/me
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return response.ValidationError(c, err)
	}

	user.DisplayName = strings.TrimSpace(req.DisplayName)
	if err := h.db.Save(user).Error; err != nil {
		return response.InternalServerError(c, "Failed to update profile")
	}

	return response.Success(c, UserResponse{
		ID:          user.ID.String(),
		Email:       user.Email,
		DisplayName: user.DisplayName,
		CreatedAt:   user.CreatedAt,
	})
}

// ChangePasswordRequest represents a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

// ChangePassword handles POST /api/v1/auth/change-password.
// All existing tokens are invalidated via the token version bump.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "")
	}

	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return response.ValidationError(c, err)
	}

	if err := auth.VerifyPassword(user.PasswordHash, req.CurrentPassword); err != nil {
		return response.Unauthorized(c, "Current password is incorrect")
	}

	newHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return response.BadRequest(c, err.Error())
	}

	user.PasswordHash = newHash
	if err := h.db.Save(user).Error; err != nil {
		return response.InternalServerError(c, "Failed to change password")
	}

	if err := h.blacklistService.RevokeAllUserTokens(c.Context(), user.ID); err != nil {
		return response.InternalServerError(c, "Failed to invalidate existing sessions")
	}

	return response.SuccessWithMessage(c, "Password changed. Please log in again.", nil)
}
