// audit.go implements handlers for reading the audit trail recorded by the
// audit middleware.
package admin

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/application-catalog/application-catalog/internal/db/repositories"
)

// AuditHandlers handles audit log endpoints
type AuditHandlers struct {
	auditRepo *repositories.AuditRepository
}

// NewAuditHandlers creates a new AuditHandlers instance
func NewAuditHandlers(db *sqlx.DB) *AuditHandlers {
	return &AuditHandlers{
		auditRepo: repositories.NewAuditRepository(db),
	}
}

// parseFilterTime accepts RFC 3339 timestamps or bare dates
func parseFilterTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

// @Summary      List audit logs
// @Description  Get a paginated list of audit log entries, newest first, optionally filtered by user, action, resource type, and date range.
// @Tags         Audit
// @Security     Bearer
// @Produce      json
// @Param        page           query  int     false  "Page number (default 1)"
// @Param        per_page       query  int     false  "Items per page, max 100 (default 20)"
// @Param        user_id        query  string  false  "Filter by acting user ID"
// @Param        action         query  string  false  "Filter by action, e.g. application.create"
// @Param        resource_type  query  string  false  "Filter by resource type, e.g. attribute"
// @Param        start_date     query  string  false  "Earliest entry (YYYY-MM-DD or RFC 3339)"
// @Param        end_date       query  string  false  "Latest entry (YYYY-MM-DD or RFC 3339)"
// @Success      200  {object}  map[string]interface{}  "audit_logs: [], pagination: map"
// @Failure      400  {object}  map[string]interface{}  "Invalid date filter"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /admin/audit-logs [get]
// ListAuditLogsHandler lists audit log entries with filters and pagination
// GET /admin/audit-logs?page=1&per_page=20&action=application.create
func (h *AuditHandlers) ListAuditLogsHandler() gin.HandlerFunc {
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

		var filters repositories.AuditFilters
		if v := c.Query("user_id"); v != "" {
			filters.UserID = &v
		}
		if v := c.Query("action"); v != "" {
			filters.Action = &v
		}
		if v := c.Query("resource_type"); v != "" {
			filters.ResourceType = &v
		}
		if v := c.Query("start_date"); v != "" {
			t, err := parseFilterTime(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "Invalid start_date: use YYYY-MM-DD or RFC 3339",
				})
				return
			}
			filters.StartDate = &t
		}
		if v := c.Query("end_date"); v != "" {
			t, err := parseFilterTime(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "Invalid end_date: use YYYY-MM-DD or RFC 3339",
				})
				return
			}
			// A bare date covers that whole day
			if len(v) == len("2006-01-02") {
				t = t.Add(24*time.Hour - time.Nanosecond)
			}
			filters.EndDate = &t
		}

		logs, total, err := h.auditRepo.ListAuditLogs(c.Request.Context(), filters, perPage, offset)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list audit logs",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"audit_logs": logs,
			"pagination": gin.H{
				"page":     page,
				"per_page": perPage,
				"total":    total,
			},
		})
	}
}

// @Summary      Get audit log
// @Description  Get a single audit log entry by ID.
// @Tags         Audit
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Audit log ID"
// @Success      200  {object}  map[string]interface{}  "audit_log: models.AuditLog"
// @Failure      400  {object}  map[string]interface{}  "Invalid audit log ID"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Audit log not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /admin/audit-logs/{id} [get]
// GetAuditLogHandler retrieves a single audit log entry
// GET /admin/audit-logs/:id
func (h *AuditHandlers) GetAuditLogHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid audit log ID",
			})
			return
		}

		log, err := h.auditRepo.GetAuditLog(c.Request.Context(), id.String())
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve audit log",
			})
			return
		}
		if log == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Audit log not found",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"audit_log": log,
		})
	}
}
