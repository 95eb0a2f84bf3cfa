package encounter

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/encounters/:id", h.GetEncounter)
	api.GET("/encounters/:id/referrals", h.ListReferrals)
}

func (h *Handler) GetEncounter(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	enc, err := h.svc.GetEncounter(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "encounter not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, enc)
}

// ListReferrals returns the encounters a referral issued from this encounter
// created, optionally narrowed with ?status=.
func (h *Handler) ListReferrals(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	status := Status(c.QueryParam("status"))
	if status != "" && !status.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	items, err := h.svc.ListReferrals(c.Request().Context(), id)
	if err != nil {
		return err
	}
	out := make([]*Encounter, 0, len(items))
	for _, enc := range items {
		if status == "" || enc.Status == status {
			out = append(out, enc)
		}
	}
	return c.JSON(http.StatusOK, out)
}
