// audit.go provides Gin middleware that records catalog mutations and logins
// to the audit log, with optional shipping to external audit destinations.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/application-catalog/application-catalog/internal/audit"
	"github.com/application-catalog/application-catalog/internal/config"
	"github.com/application-catalog/application-catalog/internal/db/models"
	"github.com/application-catalog/application-catalog/internal/db/repositories"
	"github.com/gin-gonic/gin"
)

// AuditMiddleware logs catalog mutations to the database only
func AuditMiddleware(auditRepo *repositories.AuditRepository) gin.HandlerFunc {
	return AuditMiddlewareWithShipper(auditRepo, nil, nil)
}

// AuditMiddlewareWithShipper logs catalog mutations and ships entries to
// external destinations
func AuditMiddlewareWithShipper(auditRepo *repositories.AuditRepository, shipper audit.Shipper, auditCfg *config.AuditConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Process request first
		c.Next()

		// Skip OPTIONS always
		if c.Request.Method == "OPTIONS" {
			return
		}

		// Determine what to log based on config
		logReadOps := auditCfg != nil && auditCfg.LogReadOperations
		logFailedReqs := auditCfg != nil && auditCfg.LogFailedRequests

		isReadOp := c.Request.Method == "GET"
		isFailed := c.Writer.Status() >= 400

		// Default behavior: only log successful write operations
		if isReadOp && !logReadOps {
			return
		}
		if isFailed && !logFailedReqs {
			return
		}

		userID, _ := c.Get("user_id")
		authMethod, _ := c.Get("auth_method")
		ipAddress := c.ClientIP()

		resourceType, action := classifyRequest(c.Request.Method, c.Request.URL.Path)

		auditLog := &models.AuditLog{
			Action:       action,
			ResourceType: resourceType,
			IPAddress:    &ipAddress,
			StatusCode:   c.Writer.Status(),
			CreatedAt:    time.Now(),
		}

		// Set user ID if present
		var userIDStr string
		if userID != nil {
			if uid, ok := userID.(string); ok && uid != "" {
				userIDStr = uid
				auditLog.UserID = &userIDStr
			}
		}

		// Entity routes carry the target row ID as the :id path parameter
		resourceID := c.Param("id")
		if resourceID != "" {
			auditLog.ResourceID = &resourceID
		}

		metadata := make(map[string]interface{})
		if authMethod != nil {
			metadata["auth_method"] = authMethod
		}
		if len(metadata) > 0 {
			auditLog.Metadata = metadata
		}

		// Async log creation (non-blocking)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			// Write to database
			if auditRepo != nil {
				if err := auditRepo.CreateAuditLog(ctx, auditLog); err != nil {
					slog.Warn("failed to create audit log", "action", action, "error", err)
				}
			}

			// Ship to external destinations. Per-destination failures are
			// logged and counted by the shipper itself.
			if shipper != nil {
				authMethodStr := ""
				if am, ok := authMethod.(string); ok {
					authMethodStr = am
				}

				entry := &audit.LogEntry{
					Timestamp:    auditLog.CreatedAt,
					Action:       auditLog.Action,
					UserID:       userIDStr,
					ResourceType: resourceType,
					ResourceID:   resourceID,
					IPAddress:    ipAddress,
					AuthMethod:   authMethodStr,
					StatusCode:   c.Writer.Status(),
					Metadata:     metadata,
				}

				_ = shipper.Ship(ctx, entry)
			}
		}()
	}
}

// classifyRequest maps a request to an audit resource type and a dotted
// action name. Web form posts carry the verb in the path (/new/, /edit/,
// /delete/) while the admin API carries it in the HTTP method.
func classifyRequest(method, path string) (resourceType, action string) {
	switch {
	case strings.Contains(path, "/login"):
		return "auth", "auth.login"
	case strings.Contains(path, "/application"):
		resourceType = "application"
	case strings.Contains(path, "/attribute"):
		resourceType = "attribute"
	case strings.Contains(path, "/organisation"):
		resourceType = "organisation"
	case strings.Contains(path, "/users"):
		resourceType = "admin_user"
	case strings.Contains(path, "/audit"):
		resourceType = "audit_log"
	default:
		// Unrecognized path: keep the raw request line as the action
		return "", fmt.Sprintf("%s %s", method, path)
	}

	var verb string
	switch {
	case strings.Contains(path, "/new"):
		verb = "create"
	case strings.Contains(path, "/edit"):
		verb = "update"
	case strings.Contains(path, "/delete"):
		verb = "delete"
	default:
		switch method {
		case "POST":
			verb = "create"
		case "PUT", "PATCH":
			verb = "update"
		case "DELETE":
			verb = "delete"
		default:
			verb = "read"
		}
	}
	return resourceType, resourceType + "." + verb
}
