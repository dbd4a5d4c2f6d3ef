// users.go implements handlers for admin account management: listing,
// creating, updating, password changes, and deletion.
package admin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/application-catalog/application-catalog/internal/auth"
	"github.com/application-catalog/application-catalog/internal/db/models"
	"github.com/application-catalog/application-catalog/internal/db/repositories"
)

// UserHandlers handles admin user management endpoints
type UserHandlers struct {
	userRepo *repositories.AdminUserRepository
}

// NewUserHandlers creates a new UserHandlers instance
func NewUserHandlers(db *sqlx.DB) *UserHandlers {
	return &UserHandlers{
		userRepo: repositories.NewAdminUserRepository(db),
	}
}

// UpdateAdminUserRequest represents the request to update an admin user.
// Nil fields are left unchanged.
type UpdateAdminUserRequest struct {
	Email    *string `json:"email,omitempty" binding:"omitempty,email"`
	Role     *string `json:"role,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// ChangePasswordRequest represents the request to set a new password
type ChangePasswordRequest struct {
	Password string `json:"password" binding:"required,min=8"`
}

// validRole checks that a role is one of the known admin roles
func validRole(role string) bool {
	return role == models.RoleAdmin || role == models.RoleViewer
}

// @Summary      List admin users
// @Description  Get all admin users, newest first. Requires the admin role.
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "users: []models.AdminUser"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      403  {object}  map[string]interface{}  "Admin role required"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /admin/users [get]
// ListUsersHandler lists all admin users
// GET /admin/users
func (h *UserHandlers) ListUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := h.userRepo.List(c.Request.Context())
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list users",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"users": users,
		})
	}
}

// @Summary      Create admin user
// @Description  Create an admin user with a bcrypt-hashed password. The role defaults to admin. Requires the admin role.
// @Tags         Users
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  models.CreateAdminUserRequest  true  "User creation request"
// @Success      201  {object}  map[string]interface{}  "user: models.AdminUser"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      403  {object}  map[string]interface{}  "Admin role required"
// @Failure      409  {object}  map[string]interface{}  "Username already exists"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /admin/users [post]
// CreateUserHandler creates an admin user
// POST /admin/users
func (h *UserHandlers) CreateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CreateAdminUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		if req.Role != "" && !validRole(req.Role) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid role: must be admin or viewer",
			})
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to hash password",
			})
			return
		}

		user := &models.AdminUser{
			Username:     req.Username,
			Email:        req.Email,
			PasswordHash: hash,
			Role:         req.Role,
			IsActive:     true,
		}

		if err := h.userRepo.Create(c.Request.Context(), user); err != nil {
			if errors.Is(err, repositories.ErrDuplicateUsername) {
				c.JSON(http.StatusConflict, gin.H{
					"error": "Username already exists",
				})
				return
			}
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to create user",
			})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"user": user,
		})
	}
}

// @Summary      Update admin user
// @Description  Update an admin user's email, role, or active flag. Requires the admin role.
// @Tags         Users
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "User ID"
// @Param        body  body  UpdateAdminUserRequest  true  "User update request"
// @Success      200  {object}  map[string]interface{}  "user: models.AdminUser"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      403  {object}  map[string]interface{}  "Admin role required"
// @Failure      404  {object}  map[string]interface{}  "User not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /admin/users/{id} [put]
// UpdateUserHandler updates an admin user
// PUT /admin/users/:id
func (h *UserHandlers) UpdateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid user ID",
			})
			return
		}

		var req UpdateAdminUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		if req.Role != nil && !validRole(*req.Role) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid role: must be admin or viewer",
			})
			return
		}

		user, err := h.userRepo.GetByID(c.Request.Context(), id)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve user",
			})
			return
		}
		if user == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "User not found",
			})
			return
		}

		// Update fields
		if req.Email != nil {
			user.Email = *req.Email
		}
		if req.Role != nil {
			user.Role = *req.Role
		}
		if req.IsActive != nil {
			user.IsActive = *req.IsActive
		}

		if err := h.userRepo.Update(c.Request.Context(), user); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to update user",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"user": user,
		})
	}
}

// @Summary      Change password
// @Description  Set a new password for an admin user. Requires the admin role.
// @Tags         Users
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true  "User ID"
// @Param        body  body  ChangePasswordRequest  true  "New password"
// @Success      200  {object}  map[string]interface{}  "message: Password updated successfully"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      403  {object}  map[string]interface{}  "Admin role required"
// @Failure      404  {object}  map[string]interface{}  "User not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /admin/users/{id}/password [put]
// ChangePasswordHandler sets a new password for an admin user
// PUT /admin/users/:id/password
func (h *UserHandlers) ChangePasswordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid user ID",
			})
			return
		}

		var req ChangePasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}

		user, err := h.userRepo.GetByID(c.Request.Context(), id)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve user",
			})
			return
		}
		if user == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "User not found",
			})
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to hash password",
			})
			return
		}

		user.PasswordHash = hash
		if err := h.userRepo.Update(c.Request.Context(), user); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to update password",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Password updated successfully",
		})
	}
}

// @Summary      Delete admin user
// @Description  Delete an admin user. Deleting the account that owns the current session is rejected. Requires the admin role.
// @Tags         Users
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "User ID"
// @Success      200  {object}  map[string]interface{}  "message: User deleted successfully"
// @Failure      400  {object}  map[string]interface{}  "Cannot delete your own account"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      403  {object}  map[string]interface{}  "Admin role required"
// @Failure      404  {object}  map[string]interface{}  "User not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /admin/users/{id} [delete]
// DeleteUserHandler deletes an admin user
// DELETE /admin/users/:id
func (h *UserHandlers) DeleteUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid user ID",
			})
			return
		}

		// Deleting the account behind the current session would lock it out
		if c.GetString("user_id") == id.String() {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Cannot delete your own account",
			})
			return
		}

		user, err := h.userRepo.GetByID(c.Request.Context(), id)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to retrieve user",
			})
			return
		}
		if user == nil {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "User not found",
			})
			return
		}

		if err := h.userRepo.Delete(c.Request.Context(), id); err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to delete user",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "User deleted successfully",
		})
	}
}
