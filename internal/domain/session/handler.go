package session

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
	api.GET("/sessions", h.List)
	api.GET("/sessions/:id", h.Get)

	write := auth.RequireRole(auth.RoleTherapist)
	api.POST("/sessions", h.Create, write)
	api.PUT("/sessions/:id", h.Update, write)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.InvalidID("id")
	}
	return id, nil
}

func (h *Handler) Create(c echo.Context) error {
	var req WriteRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("request body must be valid JSON")
	}
	sess := &Session{}
	req.Apply(sess)
	if sess.Therapist == uuid.Nil {
		if id := auth.IdentityFromContext(c.Request().Context()); id != nil {
			sess.Therapist, _ = uuid.Parse(id.UserID)
		}
	}
	if err := h.svc.Create(c.Request().Context(), sess); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sess)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	sess, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.Search(c.Request().Context(), search.Values(c), pg.Limit, pg.Offset())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req WriteRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("request body must be valid JSON")
	}
	sess, err := h.svc.Update(c.Request().Context(), id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess)
}
