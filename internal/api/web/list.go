// list.go serves the application list page, the landing surface of the
// catalog. The page model is cached in Redis when the cache is configured;
// every application write invalidates it.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/application-catalog/application-catalog/internal/db/models"
)

// listCacheEntity is the cache key suffix for the application list page model
const listCacheEntity = "applications"

// applicationRow is the page model for one row of the application list. It is
// precomputed (rather than calling model methods from the template) so the
// same struct can round-trip through the cache as JSON.
type applicationRow struct {
	ID           string `json:"id"`
	IndentedName string `json:"indented_name"`
	ParentName   string `json:"parent_name"`
	Slug         string `json:"slug"`
	Level        int    `json:"level"`
	CreatedAt    string `json:"created_at"`
}

func newApplicationRow(app models.Application) applicationRow {
	return applicationRow{
		ID:           app.ID.String(),
		IndentedName: app.IndentedName(),
		ParentName:   app.ParentDisplay(),
		Slug:         app.Slug,
		Level:        app.TreeDepth,
		CreatedAt:    app.CreatedAt.Format("Jan 2, 2006 15:04"),
	}
}

// loadListRows returns the application list page model, from the cache when
// possible. Cache failures fall through to the database; the page must render
// regardless of Redis health.
func (h *Handlers) loadListRows(ctx context.Context) ([]applicationRow, error) {
	if payload, ok := h.listCache.GetList(ctx, listCacheEntity); ok {
		var rows []applicationRow
		if err := json.Unmarshal(payload, &rows); err == nil {
			return rows, nil
		}
		slog.Warn("discarding malformed cached application list")
	}

	apps, err := h.appRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]applicationRow, len(apps))
	for i, app := range apps {
		rows[i] = newApplicationRow(app)
	}

	if payload, err := json.Marshal(rows); err == nil {
		if err := h.listCache.SetList(ctx, listCacheEntity, payload); err != nil {
			slog.Warn("failed to cache application list", "error", err)
		}
	}

	return rows, nil
}

// invalidateListCache drops the cached list page model after a write
func (h *Handlers) invalidateListCache(ctx context.Context) {
	// Bound the invalidation so a stalled Redis cannot hold up the redirect.
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := h.listCache.Invalidate(ctx, listCacheEntity); err != nil {
		slog.Warn("failed to invalidate application list cache", "error", err)
	}
}

// ListHandler serves the application list in tree order
// GET /application/
func (h *Handlers) ListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := h.loadListRows(c.Request.Context())
		if err != nil {
			h.renderServerError(c, err)
			return
		}

		h.render(c, 200, "application_list", gin.H{
			"Title":        "Applications",
			"Applications": rows,
		})
	}
}
