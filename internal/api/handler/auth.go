package handler

import (
	"fmt"
	"net/http"
	"time"

	"civicgo/backend/internal/models"

	"github.com/gin-gonic/gin"

	jwt "github.com/golang-jwt/jwt/v5"
)

// generateJWT issues a token carrying the user id and role.
func (h *Handler) generateJWT(userID string, role models.Role) (string, error) {
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": string(role),
		"exp":  time.Now().Add(time.Hour * 72).Unix(),
		"iss":  "civicgo-service",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.JWTSecret)
}

// validateToken parses the token and returns the user id and role claims.
func (h *Handler) validateToken(tokenString string) (string, models.Role, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return h.JWTSecret, nil
	})
	if err != nil || !token.Valid {
		return "", "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", fmt.Errorf("invalid token claims")
	}

	sub, _ := claims["sub"].(string)
	roleStr, _ := claims["role"].(string)
	if sub == "" {
		return "", "", fmt.Errorf("token missing subject")
	}
	return sub, models.Role(roleStr), nil
}

type tokenRequest struct {
	Name string `json:"name"`
}

// GetToken registers (or looks up) a citizen and returns a JWT. The
// identity provider proper lives outside this service; this endpoint
// covers local development and the mobile client's anonymous flow.
func (h *Handler) GetToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user := models.User{Name: req.Name, Role: models.RoleCitizen}
	if err := h.Store.FirstOrCreateUser(c.Request.Context(), &user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	token, err := h.generateJWT(user.ID, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user_id": user.ID})
}

// AuthRequired validates the Bearer token and stores the actor's identity
// in the request context.
func (h *Handler) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if len(authHeader) < 8 || authHeader[:7] != "Bearer " {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
			return
		}

		userID, role, err := h.validateToken(authHeader[7:])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
			return
		}

		c.Set("actorID", userID)
		c.Set("actorRole", role)
		c.Next()
	}
}

// RequireRole aborts unless the authenticated actor holds one of the given
// roles. Must run after AuthRequired.
func (h *Handler) RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorRole := c.MustGet("actorRole").(models.Role)
		for _, r := range roles {
			if actorRole == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient role"})
	}
}
