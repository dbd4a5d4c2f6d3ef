// applications.go implements handlers for application CRUD over the catalog
// hierarchy, including the linked attributes and organisations.
package admin

import (
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

// ApplicationHandlers handles application management endpoints
type ApplicationHandlers struct {
	appRepo *repositories.ApplicationRepository
}

// NewApplicationHandlers creates a new ApplicationHandlers instance
func NewApplicationHandlers(db *sqlx.DB) *ApplicationHandlers {
	return &ApplicationHandlers{
		appRepo: repositories.NewApplicationRepository(db),
	}
}

// applicationResponse decorates an application with the display fields the
// hierarchy listings render
type applicationResponse struct {
	models.Application
	IndentedName string `json:"indented_name"`
}

func newApplicationResponse(app models.Application) applicationResponse {
	return applicationResponse{
		Application:  app,
		IndentedName: app.IndentedName(),
	}
}

// applicationDetailResponse adds linked records and tree placement context to
// a single-application read
type applicationDetailResponse struct {
	applicationResponse
	Attributes    []attributeResponse    `json:"attributes"`
	Organisations []organisationResponse `json:"organisations"`
	FullPath      string                 `json:"full_path"`
	TreeInfo      string                 `json:"tree_info"`
}

func newApplicationDetailResponse(detail *models.ApplicationDetail) applicationDetailResponse {
	attrs := make([]attributeResponse, len(detail.Attributes))
	for i, a := range detail.Attributes {
		attrs[i] = newAttributeResponse(a)
	}
	orgs := make([]organisationResponse, len(detail.Organisations))
	for i, o := range detail.Organisations {
		orgs[i] = newOrganisationResponse(o)
	}
	return applicationDetailResponse{
		applicationResponse: newApplicationResponse(detail.Application),
		Attributes:          attrs,
		Organisations:       orgs,
		FullPath:            detail.FullPath,
		TreeInfo:            detail.Application.TreeInfo(detail.PathNames),
	}
}

// @Summary      List applications
// @Description  Get a paginated list of applications in tree order, optionally filtered by a search term matching name, slug, or description.
// @Tags         Applications
// @Security     Bearer
// @Produce      json
// @Param        page      query  int     false  "Page number (default 1)"
// @Param        per_page  query  int     false  "Items per page, max 100 (default 20)"
// @Param        q         query  string  false  "Search term"
// @Success      200  {object}  map[string]interface{}  "applications: [], pagination: map"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /admin/applications [get]
// ListApplicationsHandler lists applications in tree order with pagination
// GET /admin/applications?page=1&per_page=20&q=term
func (h *ApplicationHandlers) ListApplicationsHandler() gin.HandlerFunc {
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

		apps, total, err := h.appRepo.Search(c.Request.Context(), c.Query("q"), perPage, offset)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list applications",
			})
			return
		}

		items := make([]applicationResponse, len(apps))
		for i, app := range apps {
			items[i] = newApplicationResponse(app)
		}

		c.JSON(http.StatusOK, gin.H{
			"applications": items,
			"pagination": gin.H{
				"page":     page,
				"per_page": perPage,
				"total":    total,
			},
		})
	}
}

// @Summary      Get application
// @Description  Get an application by ID with its linked attributes, organisations, and tree placement.
// @Tags         Applications
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Application ID"
// @Success      200  {object}  map[string]interface{}  "application: applicationDetailResponse"
// @Failure      400  {object}  map[string]interface{}  "Invalid application ID"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Application not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /admin/applications/{id} [get]
// GetApplicationHandler retrieves a single application with its links
// GET /admin/applications/:id
func (h *ApplicationHandlers) GetApplicationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid application ID",
			})
			return
		}

		detail, err := h.appRepo.GetDetail(c.Request.Context(), id)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve application",
			})
			return
		}

		if detail == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Application not found",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"application": newApplicationDetailResponse(detail),
		})
	}
}

// @Summary      Create application
// @Description  Create an application. The slug is generated from the name when omitted. Linked attributes and organisations are set from the given ID lists.
// @Tags         Applications
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  models.CreateApplicationRequest  true  "Application creation request"
// @Success      201  {object}  map[string]interface{}  "application: applicationDetailResponse"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      409  {object}  map[string]interface{}  "Slug already exists"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /admin/applications [post]
// CreateApplicationHandler creates an application and its link rows
// POST /admin/applications
func (h *ApplicationHandlers) CreateApplicationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CreateApplicationRequest
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

		// Resolve the parent before inserting so a bad reference is a
		// validation error, not a constraint violation
		if req.ParentID != nil {
			parent, err := h.appRepo.GetByID(c.Request.Context(), *req.ParentID)
			if err != nil {
				_ = c.Error(err)
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Failed to check parent application",
				})
				return
			}
			if parent == nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "Parent application not found",
				})
				return
			}
		}

		app := &models.Application{
			Slug:        req.Slug,
			Name:        req.Name,
			Description: req.Description,
			ParentID:    req.ParentID,
		}
		if req.Properties != nil {
			props, err := json.Marshal(req.Properties)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "Invalid properties: " + err.Error(),
				})
				return
			}
			app.Properties = props
		}

		if err := h.appRepo.Create(c.Request.Context(), app); err != nil {
			if errors.Is(err, repositories.ErrDuplicateSlug) {
				c.JSON(http.StatusConflict, gin.H{
					"error": "Slug already exists",
				})
				return
			}
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to create application",
			})
			return
		}

		if len(req.AttributeIDs) > 0 {
			if err := h.appRepo.ReplaceAttributes(c.Request.Context(), app.ID, req.AttributeIDs); err != nil {
				_ = c.Error(err)
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Failed to link attributes",
				})
				return
			}
		}
		if len(req.OrganisationIDs) > 0 {
			if err := h.appRepo.ReplaceOrganisations(c.Request.Context(), app.ID, req.OrganisationIDs); err != nil {
				_ = c.Error(err)
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Failed to link organisations",
				})
				return
			}
		}

		// Reload to pick up the generated slug and tree placement
		detail, err := h.appRepo.GetDetail(c.Request.Context(), app.ID)
		if err != nil || detail == nil {
			if err != nil {
				_ = c.Error(err)
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load created application",
			})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"application": newApplicationDetailResponse(detail),
		})
	}
}

// @Summary      Update application
// @Description  Update an application's fields, parent, or links. Omitted fields are left unchanged; empty link lists clear the links; clear_parent moves the application to the root.
// @Tags         Applications
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                           true  "Application ID"
// @Param        body  body  models.UpdateApplicationRequest  true  "Application update request"
// @Success      200  {object}  map[string]interface{}  "application: applicationDetailResponse"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Application not found"
// @Failure      409  {object}  map[string]interface{}  "Slug already exists"
// @Failure      422  {object}  map[string]interface{}  "Parent change would create a cycle"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /admin/applications/{id} [put]
// UpdateApplicationHandler updates an application and its link rows
// PUT /admin/applications/:id
func (h *ApplicationHandlers) UpdateApplicationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid application ID",
			})
			return
		}

		var req models.UpdateApplicationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		app, err := h.appRepo.GetByID(c.Request.Context(), id)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve application",
			})
			return
		}
		if app == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Application not found",
			})
			return
		}

		// Update fields
		if req.Name != nil {
			app.Name = *req.Name
		}
		if req.Slug != nil {
			// An empty slug is regenerated from the name on save
			if *req.Slug != "" && !slug.IsValid(*req.Slug) {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "Invalid slug: use lowercase letters, numbers, and hyphens",
				})
				return
			}
			app.Slug = *req.Slug
		}
		if req.Description != nil {
			app.Description = *req.Description
		}
		if req.Properties != nil {
			props, err := json.Marshal(req.Properties)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "Invalid properties: " + err.Error(),
				})
				return
			}
			app.Properties = props
		}

		if req.ClearParent {
			app.ParentID = nil
		} else if req.ParentID != nil {
			parent, err := h.appRepo.GetByID(c.Request.Context(), *req.ParentID)
			if err != nil {
				_ = c.Error(err)
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Failed to check parent application",
				})
				return
			}
			if parent == nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "Parent application not found",
				})
				return
			}
			app.ParentID = req.ParentID
		}

		if err := h.appRepo.Update(c.Request.Context(), app); err != nil {
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
					"error": "Failed to update application",
				})
			}
			return
		}

		// Nil link slices leave links untouched; empty slices clear them
		if req.AttributeIDs != nil {
			if err := h.appRepo.ReplaceAttributes(c.Request.Context(), app.ID, req.AttributeIDs); err != nil {
				_ = c.Error(err)
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Failed to update attribute links",
				})
				return
			}
		}
		if req.OrganisationIDs != nil {
			if err := h.appRepo.ReplaceOrganisations(c.Request.Context(), app.ID, req.OrganisationIDs); err != nil {
				_ = c.Error(err)
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Failed to update organisation links",
				})
				return
			}
		}

		detail, err := h.appRepo.GetDetail(c.Request.Context(), app.ID)
		if err != nil || detail == nil {
			if err != nil {
				_ = c.Error(err)
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load updated application",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"application": newApplicationDetailResponse(detail),
		})
	}
}

// @Summary      Delete application
// @Description  Delete an application. Its descendants and link rows are removed with it.
// @Tags         Applications
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Application ID"
// @Success      200  {object}  map[string]interface{}  "message: Application deleted successfully"
// @Failure      400  {object}  map[string]interface{}  "Invalid application ID"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Application not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /admin/applications/{id} [delete]
// DeleteApplicationHandler deletes an application and its subtree
// DELETE /admin/applications/:id
func (h *ApplicationHandlers) DeleteApplicationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid application ID",
			})
			return
		}

		app, err := h.appRepo.GetByID(c.Request.Context(), id)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve application",
			})
			return
		}
		if app == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Application not found",
			})
			return
		}

		if err := h.appRepo.Delete(c.Request.Context(), id); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to delete application",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Application deleted successfully",
		})
	}
}
