package auth

import (
	"time"

	"gorm.io/gorm"

	"github.com/classmate-ai/backend/utils/auth"
	"github.com/classmate-ai/backend/utils/middleware"
	"github.com/classmate-ai/backend/utils/validation"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	db                   *gorm.DB
	jwtManager           *auth.JWTManager
	blacklistService     *auth.BlacklistService
	bruteForceProtection *middleware.BruteForceProtection
	validator            *validation.Validator
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(db *gorm.DB, jwtManager *auth.JWTManager, bruteForce *middleware.BruteForceProtection) *AuthHandler {
	return &AuthHandler{
		db:                   db,
		jwtManager:           jwtManager,
		blacklistService:     auth.NewBlacklistService(db),
		bruteForceProtection: bruteForce,
		validator:            validation.NewValidator(),
	}
}

// UserResponse is the public user shape returned by auth endpoints
type UserResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
