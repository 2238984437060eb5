package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/service"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// HistoryHandler serves the ticket audit trail.
type HistoryHandler struct {
	service *service.HistoryService
}

// NewHistoryHandler constructs handler.
func NewHistoryHandler(historyService *service.HistoryService) *HistoryHandler {
	return &HistoryHandler{service: historyService}
}

// List GET /tickets/:id/history. Admin only.
func (h *HistoryHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("Unauthorized")
	}
	entries, err := h.service.List(c.UserContext(), principal.IdentityID(), utils.CopyString(c.Params("id")))
	if err != nil {
		return err
	}
	return c.JSON(dto.HistoryListResponse{History: dto.NewHistoryList(entries)})
}
