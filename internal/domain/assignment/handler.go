package assignment

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/casework/casework/internal/platform/apperr"
	"github.com/casework/casework/internal/platform/auth"
	"github.com/casework/casework/internal/platform/search"
	"github.com/casework/casework/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/assignments", h.List)

	alloc := auth.RequireRole(auth.RoleSupervisor, auth.RoleAdmin)
	api.POST("/assignments/auto-assign", h.AutoAssign, alloc)
	api.POST("/assignments/manual-assign", h.ManualAssign, alloc)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.Search(c.Request().Context(), search.Values(c), pg.Limit, pg.Offset())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total))
}

func (h *Handler) AutoAssign(c echo.Context) error {
	var req AutoAssignRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("request body must be valid JSON")
	}
	patientID, err := requiredID("patientId", req.PatientID)
	if err != nil {
		return err
	}
	a, err := h.svc.AutoAssign(c.Request().Context(), patientID, callerID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) ManualAssign(c echo.Context) error {
	var req ManualAssignRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("request body must be valid JSON")
	}
	patientID, err := requiredID("patientId", req.PatientID)
	if err != nil {
		return err
	}
	therapistID, err := requiredID("therapistId", req.TherapistID)
	if err != nil {
		return err
	}
	a, err := h.svc.ManualAssign(c.Request().Context(), patientID, therapistID, req.Rationale, callerID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func requiredID(field, raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, apperr.Validation(field + " is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.InvalidID(field)
	}
	return id, nil
}

// callerID is the acting user's id when the identity is linked to a
// stored user.
func callerID(c echo.Context) *uuid.UUID {
	id := auth.IdentityFromContext(c.Request().Context())
	if id == nil {
		return nil
	}
	uid, err := uuid.Parse(id.UserID)
	if err != nil {
		return nil
	}
	return &uid
}
