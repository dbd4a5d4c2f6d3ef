// organisations.go implements handlers for organisation CRUD, covering the
// contact fields alongside the shared hierarchy behavior.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/application-catalog/application-catalog/internal/db/models"
	"github.com/application-catalog/application-catalog/internal/db/repositories"
	"github.com/application-catalog/application-catalog/internal/slug"
	"github.com/application-catalog/application-catalog/internal/tree"
)

// OrganisationHandlers handles organisation management endpoints
type OrganisationHandlers struct {
	orgRepo *repositories.OrganisationRepository
}

// NewOrganisationHandlers creates a new OrganisationHandlers instance
func NewOrganisationHandlers(db *sqlx.DB) *OrganisationHandlers {
	return &OrganisationHandlers{
		orgRepo: repositories.NewOrganisationRepository(db),
	}
}

// organisationResponse decorates an organisation with the display fields the
// hierarchy listings render
type organisationResponse struct {
	models.Organisation
	IndentedName string `json:"indented_name"`
}

func newOrganisationResponse(org models.Organisation) organisationResponse {
	return organisationResponse{
		Organisation: org,
		IndentedName: org.IndentedName(),
	}
}

// organisationDetailResponse adds tree placement context to a
// single-organisation read
type organisationDetailResponse struct {
	organisationResponse
	FullPath string `json:"full_path"`
	TreeInfo string `json:"tree_info"`
}

// loadDetail assembles the detail payload for a single organisation
func (h *OrganisationHandlers) loadDetail(ctx context.Context, org *models.Organisation) (organisationDetailResponse, error) {
	fullPath, err := h.orgRepo.GetFullPath(ctx, org.ID)
	if err != nil {
		return organisationDetailResponse{}, err
	}
	names, err := h.orgRepo.PathNames(ctx, org)
	if err != nil {
		return organisationDetailResponse{}, err
	}
	return organisationDetailResponse{
		organisationResponse: newOrganisationResponse(*org),
		FullPath:             fullPath,
		TreeInfo:             org.TreeInfo(names),
	}, nil
}

// @Summary      List organisations
// @Description  Get a paginated list of organisations in tree order, optionally filtered by a search term matching name, slug, or description.
// @Tags         Organisations
// @Security     Bearer
// @Produce      json
// @Param        page      query  int     false  "Page number (default 1)"
// @Param        per_page  query  int     false  "Items per page, max 100 (default 20)"
// @Param        q         query  string  false  "Search term"
// @Success      200  {object}  map[string]interface{}  "organisations: [], pagination: map"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /admin/organisations [get]
// ListOrganisationsHandler lists organisations in tree order with pagination
// GET /admin/organisations?page=1&per_page=20&q=term
func (h *OrganisationHandlers) ListOrganisationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Parse pagination parameters
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

		if page < 1 {
			page = 1
		}
		if perPage < 1 || perPage > 100 {
			perPage = 20
		}

		offset := (page - 1) * perPage

		orgs, total, err := h.orgRepo.Search(c.Request.Context(), c.Query("q"), perPage, offset)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list organisations",
			})
			return
		}

		items := make([]organisationResponse, len(orgs))
		for i, org := range orgs {
			items[i] = newOrganisationResponse(org)
		}

		c.JSON(http.StatusOK, gin.H{
			"organisations": items,
			"pagination": gin.H{
				"page":     page,
				"per_page": perPage,
				"total":    total,
			},
		})
	}
}

// @Summary      Get organisation
// @Description  Get an organisation by ID with its contact details and tree placement.
// @Tags         Organisations
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Organisation ID"
// @Success      200  {object}  map[string]interface{}  "organisation: organisationDetailResponse"
// @Failure      400  {object}  map[string]interface{}  "Invalid organisation ID"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Organisation not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /admin/organisations/{id} [get]
// GetOrganisationHandler retrieves a single organisation
// GET /admin/organisations/:id
func (h *OrganisationHandlers) GetOrganisationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid organisation ID",
			})
			return
		}

		org, err := h.orgRepo.GetByID(c.Request.Context(), id)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve organisation",
			})
			return
		}
		if org == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Organisation not found",
			})
			return
		}

		detail, err := h.loadDetail(c.Request.Context(), org)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load organisation",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"organisation": detail,
		})
	}
}

// @Summary      Create organisation
// @Description  Create an organisation. The slug is generated from the name when omitted.
// @Tags         Organisations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  models.CreateOrganisationRequest  true  "Organisation creation request"
// @Success      201  {object}  map[string]interface{}  "organisation: organisationDetailResponse"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      409  {object}  map[string]interface{}  "Slug already exists"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /admin/organisations [post]
// CreateOrganisationHandler creates an organisation
// POST /admin/organisations
func (h *OrganisationHandlers) CreateOrganisationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CreateOrganisationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		if req.Slug != "" && !slug.IsValid(req.Slug) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid slug: use lowercase letters, numbers, and hyphens",
			})
			return
		}

		if req.ParentID != nil {
			parent, err := h.orgRepo.GetByID(c.Request.Context(), *req.ParentID)
			if err != nil {
				_ = c.Error(err)
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Failed to check parent organisation",
				})
				return
			}
			if parent == nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "Parent organisation not found",
				})
				return
			}
		}

		org := &models.Organisation{
			Slug:        req.Slug,
			Name:        req.Name,
			Description: req.Description,
			Code:        req.Code,
			Email:       req.Email,
			Phone:       req.Phone,
			Address:     req.Address,
			Website:     req.Website,
			IsActive:    req.IsActive == nil || *req.IsActive,
			ParentID:    req.ParentID,
		}
		if req.Metadata != nil {
			meta, err := json.Marshal(req.Metadata)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "Invalid metadata: " + err.Error(),
				})
				return
			}
			org.Metadata = meta
		}

		if err := h.orgRepo.Create(c.Request.Context(), org); err != nil {
			if errors.Is(err, repositories.ErrDuplicateSlug) {
				c.JSON(http.StatusConflict, gin.H{
					"error": "Slug already exists",
				})
				return
			}
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to create organisation",
			})
			return
		}

		// Reload to pick up the generated slug and tree placement
		org, err := h.orgRepo.GetByID(c.Request.Context(), org.ID)
		if err != nil || org == nil {
			if err != nil {
				_ = c.Error(err)
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load created organisation",
			})
			return
		}

		detail, err := h.loadDetail(c.Request.Context(), org)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load created organisation",
			})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"organisation": detail,
		})
	}
}

// @Summary      Update organisation
// @Description  Update an organisation's fields or parent. Omitted fields are left unchanged; clear_parent moves the organisation to the root.
// @Tags         Organisations
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                            true  "Organisation ID"
// @Param        body  body  models.UpdateOrganisationRequest  true  "Organisation update request"
// @Success      200  {object}  map[string]interface{}  "organisation: organisationDetailResponse"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Organisation not found"
// @Failure      409  {object}  map[string]interface{}  "Slug already exists"
// @Failure      422  {object}  map[string]interface{}  "Parent change would create a cycle"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /admin/organisations/{id} [put]
// UpdateOrganisationHandler updates an organisation
// PUT /admin/organisations/:id
func (h *OrganisationHandlers) UpdateOrganisationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid organisation ID",
			})
			return
		}

		var req models.UpdateOrganisationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		org, err := h.orgRepo.GetByID(c.Request.Context(), id)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve organisation",
			})
			return
		}
		if org == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Organisation not found",
			})
			return
		}

		// Update fields
		if req.Name != nil {
			org.Name = *req.Name
		}
		if req.Slug != nil {
			// An empty slug is regenerated from the name on save
			if *req.Slug != "" && !slug.IsValid(*req.Slug) {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "Invalid slug: use lowercase letters, numbers, and hyphens",
				})
				return
			}
			org.Slug = *req.Slug
		}
		if req.Description != nil {
			org.Description = *req.Description
		}
		if req.Code != nil {
			org.Code = *req.Code
		}
		if req.Email != nil {
			org.Email = *req.Email
		}
		if req.Phone != nil {
			org.Phone = *req.Phone
		}
		if req.Address != nil {
			org.Address = *req.Address
		}
		if req.Website != nil {
			org.Website = *req.Website
		}
		if req.IsActive != nil {
			org.IsActive = *req.IsActive
		}
		if req.Metadata != nil {
			meta, err := json.Marshal(req.Metadata)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "Invalid metadata: " + err.Error(),
				})
				return
			}
			org.Metadata = meta
		}

		if req.ClearParent {
			org.ParentID = nil
		} else if req.ParentID != nil {
			parent, err := h.orgRepo.GetByID(c.Request.Context(), *req.ParentID)
			if err != nil {
				_ = c.Error(err)
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Failed to check parent organisation",
				})
				return
			}
			if parent == nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "Parent organisation not found",
				})
				return
			}
			org.ParentID = req.ParentID
		}

		if err := h.orgRepo.Update(c.Request.Context(), org); err != nil {
			switch {
			case errors.Is(err, repositories.ErrDuplicateSlug):
				c.JSON(http.StatusConflict, gin.H{
					"error": "Slug already exists",
				})
			case errors.Is(err, tree.ErrCycle):
				c.JSON(http.StatusUnprocessableEntity, gin.H{
					"error": "Parent change would create a cycle",
				})
			default:
				_ = c.Error(err)
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Failed to update organisation",
				})
			}
			return
		}

		org, err = h.orgRepo.GetByID(c.Request.Context(), org.ID)
		if err != nil || org == nil {
			if err != nil {
				_ = c.Error(err)
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load updated organisation",
			})
			return
		}

		detail, err := h.loadDetail(c.Request.Context(), org)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load updated organisation",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"organisation": detail,
		})
	}
}

// @Summary      Delete organisation
// @Description  Delete an organisation. Its descendants and application links are removed with it.
// @Tags         Organisations
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Organisation ID"
// @Success      200  {object}  map[string]interface{}  "message: Organisation deleted successfully"
// @Failure      400  {object}  map[string]interface{}  "Invalid organisation ID"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Organisation not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /admin/organisations/{id} [delete]
// DeleteOrganisationHandler deletes an organisation and its subtree
// DELETE /admin/organisations/:id
func (h *OrganisationHandlers) DeleteOrganisationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid organisation ID",
			})
			return
		}

		org, err := h.orgRepo.GetByID(c.Request.Context(), id)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve organisation",
			})
			return
		}
		if org == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Organisation not found",
			})
			return
		}

		if err := h.orgRepo.Delete(c.Request.Context(), id); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to delete organisation",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Organisation deleted successfully",
		})
	}
}
