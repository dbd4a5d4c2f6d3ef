// detail.go serves the application detail page: fields, tree placement, and
// linked attributes and organisations.
package web

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// linkedAttribute is the page model for one linked attribute row
type linkedAttribute struct {
	Name     string
	Value    string
	DataType string
}

// linkedOrganisation is the page model for one linked organisation row
type linkedOrganisation struct {
	Name string
	Code string
}

// DetailHandler serves a single application page. Malformed and unknown ids
// both answer 404.
// GET /application/:id/
func (h *Handlers) DetailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			h.renderNotFound(c)
			return
		}

		detail, err := h.appRepo.GetDetail(c.Request.Context(), id)
		if err != nil {
			h.renderServerError(c, err)
			return
		}
		if detail == nil {
			h.renderNotFound(c)
			return
		}

		attrs := make([]linkedAttribute, len(detail.Attributes))
		for i, a := range detail.Attributes {
			attrs[i] = linkedAttribute{Name: a.Name, Value: a.Value, DataType: a.DataType}
		}
		orgs := make([]linkedOrganisation, len(detail.Organisations))
		for i, o := range detail.Organisations {
			orgs[i] = linkedOrganisation{Name: o.Name, Code: o.Code}
		}

		h.render(c, 200, "application_detail", gin.H{
			"Title":         detail.Name,
			"ID":            detail.ID.String(),
			"Name":          detail.Name,
			"Description":   detail.Description,
			"Slug":          detail.Slug,
			"Level":         detail.TreeDepth,
			"ParentName":    detail.ParentDisplay(),
			"FullPath":      detail.FullPath,
			"TreeInfo":      detail.Application.TreeInfo(detail.PathNames),
			"Attributes":    attrs,
			"Organisations": orgs,
			"CreatedAt":     detail.CreatedAt.Format("Jan 2, 2006 15:04"),
			"UpdatedAt":     detail.UpdatedAt.Format("Jan 2, 2006 15:04"),
		})
	}
}
