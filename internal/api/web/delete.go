// delete.go serves the delete confirmation page and processes the deletion.
// Deleting an application removes its whole subtree, so the confirmation page
// states how many descendants go with it.
package web

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DeleteConfirmHandler serves the delete confirmation page
// GET /application/:id/delete/
func (h *Handlers) DeleteConfirmHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			h.renderNotFound(c)
			return
		}
		app, err := h.appRepo.GetByID(ctx, id)
		if err != nil {
			h.renderServerError(c, err)
			return
		}
		if app == nil {
			h.renderNotFound(c)
			return
		}

		descendants, err := h.appRepo.CountDescendants(ctx, id)
		if err != nil {
			h.renderServerError(c, err)
			return
		}

		h.render(c, http.StatusOK, "application_confirm_delete", gin.H{
			"Title":       "Delete " + app.Name,
			"ID":          app.ID.String(),
			"Name":        app.Name,
			"Descendants": descendants,
		})
	}
}

// DeleteHandler deletes the application and its subtree, then redirects to
// the list
// POST /application/:id/delete/
func (h *Handlers) DeleteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			h.renderNotFound(c)
			return
		}
		app, err := h.appRepo.GetByID(ctx, id)
		if err != nil {
			h.renderServerError(c, err)
			return
		}
		if app == nil {
			h.renderNotFound(c)
			return
		}

		if err := h.appRepo.Delete(ctx, id); err != nil {
			h.renderServerError(c, err)
			return
		}

		h.invalidateListCache(ctx)
		c.Redirect(http.StatusFound, "/application/")
	}
}
