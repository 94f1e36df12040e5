package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/medcoding/api/internal/catalog"
	"github.com/medcoding/api/internal/middleware"
	"github.com/medcoding/api/internal/models"
)

type CodesHandler struct {
	catalog *catalog.Catalog
}

func NewCodesHandler(c *catalog.Catalog) *CodesHandler {
	return &CodesHandler{catalog: c}
}

// CodeListResponse is the body of the catalog listing.
type CodeListResponse struct {
	Codes []catalog.Entry `json:"codes"`
	Count int             `json:"count"`
}

// List returns catalog codes, optionally filtered by code type.
// @Summary List reference codes
// @Tags codes
// @Produce json
// @Security Bearer
// @Param type query string false "ICD-10, CPT or HCPCS"
// @Success 200 {object} CodeListResponse
// @Failure 400 {object} middleware.APIError
// @Router /codes [get]
func (h *CodesHandler) List(c *gin.Context) {
	codeType := models.CodeType(c.Query("type"))
	if codeType != "" && !codeType.Valid() {
		middleware.BadRequest(c, "type must be one of ICD-10, CPT, HCPCS")
		return
	}

	entries := h.catalog.List(codeType)
	c.JSON(http.StatusOK, CodeListResponse{Codes: entries, Count: len(entries)})
}

// Lookup returns one catalog code.
// @Summary Look up a reference code
// @Tags codes
// @Produce json
// @Security Bearer
// @Param code path string true "Code, e.g. E11.9"
// @Success 200 {object} catalog.Entry
// @Failure 404 {object} middleware.APIError
// @Router /codes/{code} [get]
func (h *CodesHandler) Lookup(c *gin.Context) {
	entry, err := h.catalog.Lookup(c.Param("code"))
	if errors.Is(err, catalog.ErrCodeNotFound) {
		middleware.NotFound(c, "code "+c.Param("code")+" is not in the catalog")
		return
	}
	if err != nil {
		middleware.InternalError(c, "failed to look up code")
		return
	}
	c.JSON(http.StatusOK, entry)
}
