package analytics

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/casework/casework/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	guard := auth.RequireRole(auth.RoleSupervisor, auth.RoleAdmin)
	api.GET("/analytics", h.Report, guard)
	api.GET("/analytics/reports", h.ListReports, guard)
}

func (h *Handler) ListReports(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":  Definitions,
		"total": len(Definitions),
	})
}

func (h *Handler) Report(c echo.Context) error {
	rep, err := h.svc.Run(c.Request().Context(), c.QueryParam("report"), c.QueryParam("range"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rep)
}
