package documents

import (
	"context"
	"errors"
	"fmt"
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

// RegisterRoutes mounts the create, lookup and artifact endpoints of every
// document type under its folder.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	for _, t := range AllTypes() {
		g := api.Group("/" + t.Folder())
		g.POST("", h.Create(t))
		g.GET("/encounter/:encounterId", h.GetByEncounter(t))
		g.GET("/encounter/:encounterId/artifact", h.GetArtifact(t))
	}
	api.GET("/encounters/:encounterId/documents", h.ListByEncounter)
}

func (h *Handler) Create(t DocumentType) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req CreateRequest
		if err := c.Bind(&req); err != nil {
			return errorBody(http.StatusBadRequest, "malformed request body")
		}
		result, err := h.svc.Create(c.Request().Context(), t, req)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(http.StatusCreated, result)
	}
}

func (h *Handler) GetByEncounter(t DocumentType) echo.HandlerFunc {
	return func(c echo.Context) error {
		encounterID, err := uuid.Parse(c.Param("encounterId"))
		if err != nil {
			return errorBody(http.StatusBadRequest, "invalid encounter id")
		}
		rec, err := h.svc.GetByEncounter(c.Request().Context(), t, encounterID)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(http.StatusOK, rec)
	}
}

// GetArtifact redirects to the stored artifact, or streams freshly rendered
// bytes when storage is unavailable. With ?format=json a stored artifact is
// described instead of redirected to.
func (h *Handler) GetArtifact(t DocumentType) echo.HandlerFunc {
	return func(c echo.Context) error {
		encounterID, err := uuid.Parse(c.Param("encounterId"))
		if err != nil {
			return errorBody(http.StatusBadRequest, "invalid encounter id")
		}
		art, err := h.svc.Retrieve(c.Request().Context(), t, encounterID)
		if err != nil {
			return toHTTPError(err)
		}

		c.Response().Header().Set("X-Artifact-Source", art.Source)
		if art.URL == "" {
			c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", art.Number+".pdf"))
			return c.Blob(http.StatusOK, pdfContentType, art.Data)
		}
		if c.QueryParam("format") == "json" {
			return c.JSON(http.StatusOK, map[string]string{
				"artifact_url": art.URL,
				"source":       art.Source,
			})
		}
		return c.Redirect(http.StatusFound, art.URL)
	}
}

func (h *Handler) ListByEncounter(c echo.Context) error {
	encounterID, err := uuid.Parse(c.Param("encounterId"))
	if err != nil {
		return errorBody(http.StatusBadRequest, "invalid encounter id")
	}
	items, err := h.svc.ListByEncounter(c.Request().Context(), encounterID)
	if err != nil {
		return toHTTPError(err)
	}
	if items == nil {
		items = []*Record{}
	}
	return c.JSON(http.StatusOK, items)
}

func errorBody(code int, msg string) *echo.HTTPError {
	return echo.NewHTTPError(code, map[string]interface{}{"error": msg})
}

// toHTTPError maps pipeline errors to responses. Unrecognised errors are
// returned as-is and become a 500.
func toHTTPError(err error) error {
	var (
		validation *ValidationError
		notFound   *ReferenceNotFound
		duplicate  *DuplicateDocument
		renderErr  *RenderFailure
	)
	switch {
	case errors.As(err, &validation):
		return errorBody(http.StatusBadRequest, validation.Error())
	case errors.As(err, &notFound):
		return echo.NewHTTPError(http.StatusNotFound, map[string]interface{}{
			"error":  notFound.Error(),
			"entity": notFound.Entity,
		})
	case errors.As(err, &duplicate):
		return echo.NewHTTPError(http.StatusConflict, map[string]interface{}{
			"error": duplicate.Error(),
			"data": map[string]interface{}{
				"id":           duplicate.ID,
				"artifact_url": duplicate.ArtifactURL,
			},
		})
	case errors.As(err, &renderErr):
		return errorBody(http.StatusInternalServerError, renderErr.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return errorBody(http.StatusServiceUnavailable, "a dependency did not answer in time")
	}
	return err
}
