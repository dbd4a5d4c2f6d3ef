// attributes.go implements handlers for attribute CRUD, enforcing data type
// validation and boolean normalization on every write.
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
	"github.com/application-catalog/application-catalog/internal/validation"
)

// AttributeHandlers handles attribute management endpoints
type AttributeHandlers struct {
	attrRepo *repositories.AttributeRepository
}

// NewAttributeHandlers creates a new AttributeHandlers instance
func NewAttributeHandlers(db *sqlx.DB) *AttributeHandlers {
	return &AttributeHandlers{
		attrRepo: repositories.NewAttributeRepository(db),
	}
}

// attributeResponse decorates an attribute with the display fields the
// hierarchy listings render and the value converted to its declared type
type attributeResponse struct {
	models.Attribute
	IndentedName string      `json:"indented_name"`
	TypedValue   interface{} `json:"typed_value"`
}

func newAttributeResponse(attr models.Attribute) attributeResponse {
	typed, err := attr.TypedValue()
	if err != nil {
		// A stored value that no longer parses renders as its raw text
		typed = attr.Value
	}
	return attributeResponse{
		Attribute:    attr,
		IndentedName: attr.IndentedName(),
		TypedValue:   typed,
	}
}

// attributeDetailResponse adds tree placement context to a single-attribute read
type attributeDetailResponse struct {
	attributeResponse
	FullPath string `json:"full_path"`
	TreeInfo string `json:"tree_info"`
}

// loadDetail assembles the detail payload for a single attribute
func (h *AttributeHandlers) loadDetail(ctx context.Context, attr *models.Attribute) (attributeDetailResponse, error) {
	fullPath, err := h.attrRepo.GetFullPath(ctx, attr.ID)
	if err != nil {
		return attributeDetailResponse{}, err
	}
	names, err := h.attrRepo.PathNames(ctx, attr)
	if err != nil {
		return attributeDetailResponse{}, err
	}
	return attributeDetailResponse{
		attributeResponse: newAttributeResponse(*attr),
		FullPath:          fullPath,
		TreeInfo:          attr.TreeInfo(names),
	}, nil
}

// @Summary      List attributes
// @Description  Get a paginated list of attributes in tree order, optionally filtered by a search term matching name, slug, or description.
// @Tags         Attributes
// @Security     Bearer
// @Produce      json
// @Param        page      query  int     false  "Page number (default 1)"
// @Param        per_page  query  int     false  "Items per page, max 100 (default 20)"
// @Param        q         query  string  false  "Search term"
// @Success      200  {object}  map[string]interface{}  "attributes: [], pagination: map"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /admin/attributes [get]
// ListAttributesHandler lists attributes in tree order with pagination
// GET /admin/attributes?page=1&per_page=20&q=term
func (h *AttributeHandlers) ListAttributesHandler() gin.HandlerFunc {
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

		attrs, total, err := h.attrRepo.Search(c.Request.Context(), c.Query("q"), perPage, offset)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list attributes",
			})
			return
		}

		items := make([]attributeResponse, len(attrs))
		for i, attr := range attrs {
			items[i] = newAttributeResponse(attr)
		}

		c.JSON(http.StatusOK, gin.H{
			"attributes": items,
			"pagination": gin.H{
				"page":     page,
				"per_page": perPage,
				"total":    total,
			},
		})
	}
}

// @Summary      Get attribute
// @Description  Get an attribute by ID with its typed value and tree placement.
// @Tags         Attributes
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Attribute ID"
// @Success      200  {object}  map[string]interface{}  "attribute: attributeDetailResponse"
// @Failure      400  {object}  map[string]interface{}  "Invalid attribute ID"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Attribute not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /admin/attributes/{id} [get]
// GetAttributeHandler retrieves a single attribute
// GET /admin/attributes/:id
func (h *AttributeHandlers) GetAttributeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid attribute ID",
			})
			return
		}

		attr, err := h.attrRepo.GetByID(c.Request.Context(), id)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve attribute",
			})
			return
		}
		if attr == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Attribute not found",
			})
			return
		}

		detail, err := h.loadDetail(c.Request.Context(), attr)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load attribute",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"attribute": detail,
		})
	}
}

// @Summary      Create attribute
// @Description  Create an attribute. The value is validated against the declared data type; boolean values are normalized to true/false. The slug is generated from the name when omitted.
// @Tags         Attributes
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  models.CreateAttributeRequest  true  "Attribute creation request"
// @Success      201  {object}  map[string]interface{}  "attribute: attributeDetailResponse"
// @Failure      400  {object}  map[string]interface{}  "Invalid request or attribute value"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      409  {object}  map[string]interface{}  "Slug already exists"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /admin/attributes [post]
// CreateAttributeHandler creates an attribute
// POST /admin/attributes
func (h *AttributeHandlers) CreateAttributeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CreateAttributeRequest
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

		dataType := req.DataType
		if dataType == "" {
			dataType = validation.DefaultDataType
		}

		value, err := validation.NormalizeAttributeValue(dataType, req.Value)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid attribute value: " + err.Error(),
			})
			return
		}

		if req.ParentID != nil {
			parent, err := h.attrRepo.GetByID(c.Request.Context(), *req.ParentID)
			if err != nil {
				_ = c.Error(err)
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Failed to check parent attribute",
				})
				return
			}
			if parent == nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "Parent attribute not found",
				})
				return
			}
		}

		attr := &models.Attribute{
			Slug:        req.Slug,
			Name:        req.Name,
			Value:       value,
			DataType:    dataType,
			Description: req.Description,
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
			attr.Metadata = meta
		}

		if err := h.attrRepo.Create(c.Request.Context(), attr); err != nil {
			if errors.Is(err, repositories.ErrDuplicateSlug) {
				c.JSON(http.StatusConflict, gin.H{
					"error": "Slug already exists",
				})
				return
			}
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to create attribute",
			})
			return
		}

		// Reload to pick up the generated slug and tree placement
		attr, err = h.attrRepo.GetByID(c.Request.Context(), attr.ID)
		if err != nil || attr == nil {
			if err != nil {
				_ = c.Error(err)
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load created attribute",
			})
			return
		}

		detail, err := h.loadDetail(c.Request.Context(), attr)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load created attribute",
			})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"attribute": detail,
		})
	}
}

// @Summary      Update attribute
// @Description  Update an attribute's fields or parent. Omitted fields are left unchanged; a changed value or data type is revalidated; clear_parent moves the attribute to the root.
// @Tags         Attributes
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                         true  "Attribute ID"
// @Param        body  body  models.UpdateAttributeRequest  true  "Attribute update request"
// @Success      200  {object}  map[string]interface{}  "attribute: attributeDetailResponse"
// @Failure      400  {object}  map[string]interface{}  "Invalid request or attribute value"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Attribute not found"
// @Failure      409  {object}  map[string]interface{}  "Slug already exists"
// @Failure      422  {object}  map[string]interface{}  "Parent change would create a cycle"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /admin/attributes/{id} [put]
// UpdateAttributeHandler updates an attribute
// PUT /admin/attributes/:id
func (h *AttributeHandlers) UpdateAttributeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid attribute ID",
			})
			return
		}

		var req models.UpdateAttributeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		attr, err := h.attrRepo.GetByID(c.Request.Context(), id)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve attribute",
			})
			return
		}
		if attr == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Attribute not found",
			})
			return
		}

		// Update fields
		if req.Name != nil {
			attr.Name = *req.Name
		}
		if req.Slug != nil {
			// An empty slug is regenerated from the name on save
			if *req.Slug != "" && !slug.IsValid(*req.Slug) {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "Invalid slug: use lowercase letters, numbers, and hyphens",
				})
				return
			}
			attr.Slug = *req.Slug
		}
		if req.DataType != nil {
			attr.DataType = *req.DataType
		}
		if req.Value != nil {
			attr.Value = *req.Value
		}
		if req.Description != nil {
			attr.Description = *req.Description
		}
		if req.IsActive != nil {
			attr.IsActive = *req.IsActive
		}
		if req.Metadata != nil {
			meta, err := json.Marshal(req.Metadata)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "Invalid metadata: " + err.Error(),
				})
				return
			}
			attr.Metadata = meta
		}

		// Revalidate whenever the value or its declared type changed
		if req.Value != nil || req.DataType != nil {
			value, err := validation.NormalizeAttributeValue(attr.DataType, attr.Value)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "Invalid attribute value: " + err.Error(),
				})
				return
			}
			attr.Value = value
		}

		if req.ClearParent {
			attr.ParentID = nil
		} else if req.ParentID != nil {
			parent, err := h.attrRepo.GetByID(c.Request.Context(), *req.ParentID)
			if err != nil {
				_ = c.Error(err)
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "Failed to check parent attribute",
				})
				return
			}
			if parent == nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "Parent attribute not found",
				})
				return
			}
			attr.ParentID = req.ParentID
		}

		if err := h.attrRepo.Update(c.Request.Context(), attr); err != nil {
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
					"error": "Failed to update attribute",
				})
			}
			return
		}

		attr, err = h.attrRepo.GetByID(c.Request.Context(), attr.ID)
		if err != nil || attr == nil {
			if err != nil {
				_ = c.Error(err)
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load updated attribute",
			})
			return
		}

		detail, err := h.loadDetail(c.Request.Context(), attr)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load updated attribute",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"attribute": detail,
		})
	}
}

// @Summary      Delete attribute
// @Description  Delete an attribute. Its descendants and application links are removed with it.
// @Tags         Attributes
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Attribute ID"
// @Success      200  {object}  map[string]interface{}  "message: Attribute deleted successfully"
// @Failure      400  {object}  map[string]interface{}  "Invalid attribute ID"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Attribute not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /admin/attributes/{id} [delete]
// DeleteAttributeHandler deletes an attribute and its subtree
// DELETE /admin/attributes/:id
func (h *AttributeHandlers) DeleteAttributeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid attribute ID",
			})
			return
		}

		attr, err := h.attrRepo.GetByID(c.Request.Context(), id)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve attribute",
			})
			return
		}
		if attr == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Attribute not found",
			})
			return
		}

		if err := h.attrRepo.Delete(c.Request.Context(), id); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to delete attribute",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Attribute deleted successfully",
		})
	}
}
