// auth.go implements handlers for admin session management: username/password
// login issuing a signed token, and introspection of the authenticated account.
package admin

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/application-catalog/application-catalog/internal/auth"
	"github.com/application-catalog/application-catalog/internal/config"
	"github.com/application-catalog/application-catalog/internal/db/models"
	"github.com/application-catalog/application-catalog/internal/db/repositories"
)

// AuthHandlers handles admin authentication endpoints
type AuthHandlers struct {
	cfg      *config.Config
	userRepo *repositories.AdminUserRepository
}

// NewAuthHandlers creates a new AuthHandlers instance
func NewAuthHandlers(cfg *config.Config, db *sqlx.DB) *AuthHandlers {
	return &AuthHandlers{
		cfg:      cfg,
		userRepo: repositories.NewAdminUserRepository(db),
	}
}

// @Summary      Log in
// @Description  Authenticate with username and password and receive a bearer token for the admin API.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body  models.LoginRequest  true  "Login credentials"
// @Success      200  {object}  models.LoginResponse
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      401  {object}  map[string]interface{}  "Invalid username or password"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /admin/login [post]
// LoginHandler authenticates an admin user and issues a session token
// POST /admin/login
func (h *AuthHandlers) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		user, err := h.userRepo.GetByUsername(c.Request.Context(), req.Username)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to look up user",
			})
			return
		}

		// Unknown username and wrong password produce the same response
		if user == nil || !auth.CheckPassword(req.Password, user.PasswordHash) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid username or password",
			})
			return
		}

		if !user.IsActive {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Account is deactivated",
			})
			return
		}

		ttl := h.cfg.Server.TokenTTL
		if ttl <= 0 {
			ttl = time.Hour
		}

		token, err := auth.GenerateJWT(user.ID.String(), user.Username, user.Role, ttl)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to issue token",
			})
			return
		}

		// A failed timestamp update should not fail the login
		if err := h.userRepo.TouchLastLogin(c.Request.Context(), user.ID); err != nil {
			slog.Warn("failed to record last login", "username", user.Username, "error", err)
		}

		c.JSON(http.StatusOK, models.LoginResponse{
			Token:     token,
			ExpiresAt: time.Now().Add(ttl),
			Username:  user.Username,
			Role:      user.Role,
		})
	}
}

// @Summary      Current user
// @Description  Return the account associated with the presented token.
// @Tags         Auth
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "user: models.AdminUser"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Router       /admin/me [get]
// MeHandler returns the authenticated admin user
// GET /admin/me
func (h *AuthHandlers) MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, exists := c.Get("user")
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"user": user,
		})
	}
}
