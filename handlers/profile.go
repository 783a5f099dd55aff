package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gunjankadam/Vendofy-sub001/models"
)

// GetProfileHandler возвращает профиль текущего пользователя
func GetProfileHandler(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}

	user, err := models.GetUserByID(p.UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":      user,
		"node_name": dir.NameOf(user.NodeID),
	})
}

// UpdateProfileHandler обновляет имя и email пользователя
func UpdateProfileHandler(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}

	var req struct {
		Name  string `json:"name" binding:"required"`
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := models.UpdateUser(p.UserID, req.Name, req.Email); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ChangePasswordHandler меняет пароль после проверки текущего
func ChangePasswordHandler(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}

	var req struct {
		OldPassword string `json:"old_password" binding:"required"`
		NewPassword string `json:"new_password" binding:"required,min=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := models.GetUserByID(p.UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	full, err := models.FindUserByEmail(user.Email)
	if err != nil || !models.CheckPasswordHash(req.OldPassword, full.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "current password is incorrect"})
		return
	}

	if err := models.UpdatePassword(p.UserID, req.NewPassword); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
