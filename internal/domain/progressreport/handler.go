package progressreport

import (
	"net/http"

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
	api.GET("/progress-reports", h.List)
	api.GET("/progress-reports/:id", h.Get)
	api.POST("/progress-reports", h.Create, auth.RequireRole(auth.RoleTherapist))
	api.POST("/progress-reports/:id/review", h.Review, auth.RequireRole(auth.RoleSupervisor))
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.InvalidID("id")
	}
	return id, nil
}

func (h *Handler) Create(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("request body must be valid JSON")
	}
	if req.Therapist == uuid.Nil {
		if id := auth.IdentityFromContext(c.Request().Context()); id != nil {
			req.Therapist, _ = uuid.Parse(id.UserID)
		}
	}
	r := req.Report()
	if err := h.svc.Create(c.Request().Context(), r); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	r, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.Search(c.Request().Context(), search.Values(c), pg.Limit, pg.Offset())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total))
}

func (h *Handler) Review(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req ReviewRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("request body must be valid JSON")
	}
	r, err := h.svc.Review(c.Request().Context(), id, req.Feedback)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}
