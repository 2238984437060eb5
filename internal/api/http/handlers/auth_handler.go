package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// AuthHandler exposes session endpoints.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler creates a handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{service: authService}
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("Email and password are required", nil)
	}
	res, err := h.service.SignIn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.LoginResponse{
		Token:     res.Token,
		ExpiresAt: res.Session.ExpiresAt,
		Profile:   dto.NewProfileResponse(res.Profile),
	})
}

// Logout POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("Unauthorized")
	}
	if err := h.service.SignOut(c.UserContext(), principal.Session); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// Me GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("Unauthorized")
	}
	current, err := h.service.Current(c.UserContext(), principal.Session)
	if err != nil {
		return err
	}
	return c.JSON(dto.MeResponse{
		User:    dto.SessionUser{ID: current.Session.IdentityID, Email: current.Session.Email},
		Profile: dto.NewProfileResponse(current.Profile),
	})
}
