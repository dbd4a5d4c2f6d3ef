// stats.go implements handlers for the admin index and dashboard statistics.
package admin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/application-catalog/application-catalog/internal/db/models"
	"github.com/application-catalog/application-catalog/internal/db/repositories"
)

// StatsHandlers handles the admin index and dashboard statistics endpoints
type StatsHandlers struct {
	db        *sqlx.DB
	auditRepo *repositories.AuditRepository
	version   string
}

// NewStatsHandlers creates a new StatsHandlers instance
func NewStatsHandlers(db *sqlx.DB, version string) *StatsHandlers {
	return &StatsHandlers{
		db:        db,
		auditRepo: repositories.NewAuditRepository(db),
		version:   version,
	}
}

// ApplicationStats represents application hierarchy statistics
type ApplicationStats struct {
	Total             int64 `json:"total"`
	Roots             int64 `json:"roots"`
	MaxDepth          int64 `json:"max_depth"`
	AttributeLinks    int64 `json:"attribute_links"`
	OrganisationLinks int64 `json:"organisation_links"`
}

// AttributeStats represents attribute hierarchy statistics
type AttributeStats struct {
	Total    int64 `json:"total"`
	Roots    int64 `json:"roots"`
	MaxDepth int64 `json:"max_depth"`
	Inactive int64 `json:"inactive"`
}

// OrganisationStats represents organisation hierarchy statistics
type OrganisationStats struct {
	Total    int64 `json:"total"`
	Roots    int64 `json:"roots"`
	MaxDepth int64 `json:"max_depth"`
	Inactive int64 `json:"inactive"`
}

// DashboardStats represents the response for dashboard statistics
type DashboardStats struct {
	Applications    ApplicationStats   `json:"applications"`
	Attributes      AttributeStats     `json:"attributes"`
	Organisations   OrganisationStats  `json:"organisations"`
	AdminUsers      int64              `json:"admin_users"`
	LastTreeRebuild *time.Time         `json:"last_tree_rebuild"` // null until a rebuild has run in this process
	RecentActivity  []*models.AuditLog `json:"recent_activity"`
}

// @Summary      Admin index
// @Description  Returns the service identity and top-level entity counts.
// @Tags         Stats
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "service, version, counts"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /admin/ [get]
// IndexHandler serves the admin landing payload
// GET /admin/
func (h *StatsHandlers) IndexHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		query := `
			SELECT
				(SELECT COUNT(*) FROM applications) AS application_count,
				(SELECT COUNT(*) FROM attributes) AS attribute_count,
				(SELECT COUNT(*) FROM organisations) AS organisation_count
		`

		var appCount, attrCount, orgCount int64
		if err := h.db.QueryRowContext(c.Request.Context(), query).Scan(&appCount, &attrCount, &orgCount); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load catalog counts",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"service": "application-catalog",
			"version": h.version,
			"counts": gin.H{
				"applications":  appCount,
				"attributes":    attrCount,
				"organisations": orgCount,
			},
		})
	}
}

// @Summary      Get dashboard statistics
// @Description  Returns aggregated statistics for the admin dashboard: per-entity totals, root counts, maximum depth, inactive counts, admin user count, the last hierarchy rebuild time, and recent audit activity.
// @Tags         Stats
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  DashboardStats
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /admin/stats [get]
// DashboardStatsHandler returns dashboard statistics using a single database round-trip
// GET /admin/stats
func (h *StatsHandlers) DashboardStatsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		// Core counts — single round-trip.
		query := `
			SELECT
				(SELECT COUNT(*) FROM applications) AS application_count,
				(SELECT COUNT(*) FROM applications WHERE parent_id IS NULL) AS application_roots,
				(SELECT COALESCE(MAX(tree_depth), 0) FROM applications) AS application_max_depth,
				(SELECT COUNT(*) FROM application_attributes) AS attribute_links,
				(SELECT COUNT(*) FROM application_organisations) AS organisation_links,
				(SELECT COUNT(*) FROM attributes) AS attribute_count,
				(SELECT COUNT(*) FROM attributes WHERE parent_id IS NULL) AS attribute_roots,
				(SELECT COALESCE(MAX(tree_depth), 0) FROM attributes) AS attribute_max_depth,
				(SELECT COUNT(*) FROM attributes WHERE NOT is_active) AS attribute_inactive,
				(SELECT COUNT(*) FROM organisations) AS organisation_count,
				(SELECT COUNT(*) FROM organisations WHERE parent_id IS NULL) AS organisation_roots,
				(SELECT COALESCE(MAX(tree_depth), 0) FROM organisations) AS organisation_max_depth,
				(SELECT COUNT(*) FROM organisations WHERE NOT is_active) AS organisation_inactive,
				(SELECT COUNT(*) FROM admin_users) AS admin_user_count
		`

		var stats DashboardStats

		err := h.db.QueryRowContext(ctx, query).Scan(
			&stats.Applications.Total,
			&stats.Applications.Roots,
			&stats.Applications.MaxDepth,
			&stats.Applications.AttributeLinks,
			&stats.Applications.OrganisationLinks,
			&stats.Attributes.Total,
			&stats.Attributes.Roots,
			&stats.Attributes.MaxDepth,
			&stats.Attributes.Inactive,
			&stats.Organisations.Total,
			&stats.Organisations.Roots,
			&stats.Organisations.MaxDepth,
			&stats.Organisations.Inactive,
			&stats.AdminUsers,
		)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load dashboard statistics",
			})
			return
		}

		if t := repositories.LastTreeRebuild(); !t.IsZero() {
			stats.LastTreeRebuild = &t
		}

		// Recent audit activity — optional, the dashboard renders without it.
		if logs, _, auditErr := h.auditRepo.ListAuditLogs(ctx, repositories.AuditFilters{}, 10, 0); auditErr == nil {
			stats.RecentActivity = logs
		}
		if stats.RecentActivity == nil {
			stats.RecentActivity = []*models.AuditLog{}
		}

		c.JSON(http.StatusOK, stats)
	}
}
