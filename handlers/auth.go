package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Gunjankadam/Vendofy-sub001/auth"
	"github.com/Gunjankadam/Vendofy-sub001/database"
	"github.com/Gunjankadam/Vendofy-sub001/models"
)

// LoginHandler обрабатывает вход пользователя
func LoginHandler(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := models.FindUserByEmail(req.Email)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	if !models.CheckPasswordHash(req.Password, user.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	accessToken, refreshToken, err := auth.GenerateTokenPair(cfg,
		user.ID, user.Email, user.Role, user.NodeID, user.IsSuperAdmin)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate tokens"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user": gin.H{
			"id":             user.ID,
			"email":          user.Email,
			"name":           user.Name,
			"role":           user.Role,
			"node_id":        user.NodeID,
			"is_super_admin": user.IsSuperAdmin,
		},
	})
}

// RegisterHandler регистрирует пользователя, привязанного к узлу иерархии
func RegisterHandler(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
		Name     string `json:"name" binding:"required"`
		NodeID   string `json:"node_id" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Узел должен существовать и быть активным — роль наследуется от узла
	node, err := dir.Node(req.NodeID)
	if err != nil {
		respondError(c, err)
		return
	}
	if !node.IsActive {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hierarchy node is deactivated"})
		return
	}

	// Проверяем, не занят ли email
	var exists bool
	err = database.Pool.QueryRow(c.Request.Context(),
		"SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)", req.Email).Scan(&exists)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if exists {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email already registered"})
		return
	}

	user, err := models.CreateUser(req.Email, req.Password, req.Name, string(node.Role), node.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	go func() {
		if err := emailSvc.SendWelcomeEmail(user.Email, user.Name, user.Role); err != nil {
			log.Printf("⚠️ Не удалось отправить приветственное письмо %s: %v", user.Email, err)
		}
	}()

	accessToken, refreshToken, err := auth.GenerateTokenPair(cfg,
		user.ID, user.Email, user.Role, user.NodeID, user.IsSuperAdmin)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate tokens"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user": gin.H{
			"id":      user.ID,
			"email":   user.Email,
			"name":    user.Name,
			"role":    user.Role,
			"node_id": user.NodeID,
		},
	})
}

// RefreshHandler обновляет пару токенов
func RefreshHandler(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	accessToken, refreshToken, err := auth.RefreshTokens(cfg, req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired refresh token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}
