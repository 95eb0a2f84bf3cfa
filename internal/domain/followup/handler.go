package followup

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/clinicaldocs/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients/:patientId/follow-up-log", h.ListByPatient)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patientId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Entry{}
	}
	resp := pagination.NewResponse(items, total, pg.Limit, pg.Offset)
	resp.Links = pg.Links(c.Request().URL.Path, total)
	return c.JSON(http.StatusOK, resp)
}
