package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Gunjankadam/Vendofy-sub001/auth"
	"github.com/Gunjankadam/Vendofy-sub001/config"
	"github.com/Gunjankadam/Vendofy-sub001/database"
	"github.com/Gunjankadam/Vendofy-sub001/models"
)

// AuthMiddleware проверяет JWT и кладёт принципала в контекст,
// но пропускает всё, если cfg.SkipAuth == true
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Публичные маршруты – всегда пропускаем
		publicRoutes := map[string]bool{
			"/api/health":        true,
			"/api/auth/login":    true,
			"/api/auth/register": true,
			"/api/auth/refresh":  true,
			"/metrics":           true,
		}
		if publicRoutes[c.Request.URL.Path] {
			c.Next()
			return
		}

		// ========== РЕЖИМ РАЗРАБОТКИ ==========
		if cfg.SkipAuth {
			// Подставляем супер-админа для всех запросов
			var id string
			err := database.Pool.QueryRow(c.Request.Context(),
				"SELECT id FROM users WHERE is_super_admin ORDER BY created_at LIMIT 1").Scan(&id)
			if err != nil {
				log.Printf("⚠️ Не удалось получить супер-админа: %v", err)
				c.Next()
				return
			}
			user, err := models.GetUserByID(id)
			if err != nil {
				log.Printf("⚠️ Не удалось загрузить супер-админа %s: %v", id, err)
				c.Next()
				return
			}
			setPrincipal(c, user.Principal())
			log.Printf("🔓 SkipAuth: установлен userID=%s, role=%s", user.ID, user.Role)
			c.Next()
			return
		}

		// ========== РЕАЛЬНАЯ ПРОВЕРКА JWT ==========
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && strings.ToLower(parts[0]) == "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			return
		}

		tokenString := parts[1]
		claims, err := auth.ValidateAccessToken(cfg, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired access token"})
			return
		}

		setPrincipal(c, models.Principal{
			UserID:       claims.UserID,
			NodeID:       claims.NodeID,
			Role:         models.Role(claims.Role),
			IsSuperAdmin: claims.IsSuperAdmin,
		})
		c.Set("userEmail", claims.Email)
		c.Next()
	}
}

func setPrincipal(c *gin.Context, p models.Principal) {
	c.Set("principal", p)
	c.Set("userID", p.UserID)
	c.Set("userRole", string(p.Role))
}

// CurrentPrincipal достаёт принципала, положенного AuthMiddleware
func CurrentPrincipal(c *gin.Context) (models.Principal, bool) {
	v, exists := c.Get("principal")
	if !exists {
		return models.Principal{}, false
	}
	p, ok := v.(models.Principal)
	return p, ok
}

// RequireRole пропускает только перечисленные роли
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := CurrentPrincipal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		for _, r := range roles {
			if p.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
	}
}

// AdminMiddleware проверяет роль admin
func AdminMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.SkipAuth {
			c.Next()
			return
		}
		p, ok := CurrentPrincipal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if p.Role != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}
