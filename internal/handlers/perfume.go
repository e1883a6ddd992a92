// internal/handlers/perfume.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/scentdb-backend/internal/models"
	"github.com/javajoker/scentdb-backend/internal/services"
	"github.com/javajoker/scentdb-backend/internal/utils"
)

type PerfumeHandler struct {
	catalogService *services.CatalogService
}

func NewPerfumeHandler(catalogService *services.CatalogService) *PerfumeHandler {
	return &PerfumeHandler{catalogService: catalogService}
}

// GET /v1/perfumes
func (h *PerfumeHandler) GetPerfumes(c *gin.Context) {
	params := services.PerfumeListParams{
		PaginationParams: utils.GetPaginationParams(c),
		Brand:            c.Query("brand"),
	}

	if g := c.Query("gender"); g != "" {
		gender := models.Gender(g)
		if !gender.Valid() {
			utils.BadRequestResponse(c, "gender must be one of: male female unisex", nil)
			return
		}
		params.Gender = &gender
	}

	perfumes, total, err := h.catalogService.ListPerfumes(c.Request.Context(), params)
	if err != nil {
		_ = c.Error(err)
		utils.InternalErrorResponse(c, "")
		return
	}

	result := utils.CreatePaginationResult(perfumes, total, params.PaginationParams)
	utils.PaginatedResponse(c, result)
}

// GET /v1/perfumes/:id
func (h *PerfumeHandler) GetPerfume(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid perfume ID", nil)
		return
	}

	perfume, err := h.catalogService.GetPerfume(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			utils.NotFoundResponse(c, "perfume")
			return
		}
		_ = c.Error(err)
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, perfume)
}
