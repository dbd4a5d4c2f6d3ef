// Package web serves the HTML surface of the catalog: the application list,
// detail, and form pages under /application/. Templates are embedded in the
// binary and rendered with html/template; form posts follow the
// POST-redirect-GET pattern, answering 302 on success and re-rendering the
// form with inline errors on validation failure.
package web

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/application-catalog/application-catalog/internal/cache"
	"github.com/application-catalog/application-catalog/internal/db/repositories"
)

// Handlers serves the HTML catalog pages
type Handlers struct {
	appRepo   *repositories.ApplicationRepository
	attrRepo  *repositories.AttributeRepository
	orgRepo   *repositories.OrganisationRepository
	listCache *cache.Cache
	templates *template.Template
}

// NewHandlers creates a new web Handlers instance. The cache may be nil, in
// which case the application list is read from the database on every request.
func NewHandlers(db *sqlx.DB, listCache *cache.Cache) *Handlers {
	return &Handlers{
		appRepo:   repositories.NewApplicationRepository(db),
		attrRepo:  repositories.NewAttributeRepository(db),
		orgRepo:   repositories.NewOrganisationRepository(db),
		listCache: listCache,
		templates: template.Must(template.ParseFS(templatesFS, "templates/*.tmpl")),
	}
}

// render executes the named page template into a buffer before writing, so a
// template error produces a clean 500 instead of a half-written page.
func (h *Handlers) render(c *gin.Context, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

// renderNotFound serves the shared 404 page
func (h *Handlers) renderNotFound(c *gin.Context) {
	h.render(c, http.StatusNotFound, "not_found", gin.H{"Title": "Not Found"})
}

// renderServerError logs err against the request and serves the shared 500 page
func (h *Handlers) renderServerError(c *gin.Context, err error) {
	_ = c.Error(err)
	slog.Error("web request failed",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"error", err,
	)
	h.render(c, http.StatusInternalServerError, "server_error", gin.H{"Title": "Server Error"})
}

// HomeHandler redirects the root URL to the application list
// GET /
func (h *Handlers) HomeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/application/")
	}
}
