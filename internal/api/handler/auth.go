package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenTTL = 12 * time.Hour

// IssueToken signs an operator JWT.
func IssueToken(secret []byte) (string, error) {
	claims := jwt.MapClaims{
		"jti": uuid.New().String(),
		"exp": time.Now().Add(tokenTTL).Unix(),
		"iss": "deskrelay-admin",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateToken checks signature, expiry and issuer.
func ValidateToken(secret []byte, tokenString string) error {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	}, jwt.WithIssuer("deskrelay-admin"), jwt.WithExpirationRequired())
	if err != nil {
		return err
	}
	if !token.Valid {
		return jwt.ErrTokenUnverifiable
	}
	return nil
}

// Login exchanges the operator key for a bearer token.
func (h *Handler) Login(c *gin.Context) {
	var body struct {
		Key string `json:"key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key required"})
		return
	}
	if body.Key != h.adminKey {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid key"})
		return
	}
	token, err := IssueToken(h.secret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// RequireAuth is the bearer-token middleware. WebSocket clients cannot
// set headers from a browser, so a token query parameter is accepted as
// a fallback.
func (h *Handler) RequireAuth(c *gin.Context) {
	tokenString := ""
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		tokenString = strings.TrimPrefix(auth, "Bearer ")
	} else {
		tokenString = c.Query("token")
	}
	if tokenString == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization token missing"})
		return
	}
	if err := ValidateToken(h.secret, tokenString); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}
	c.Next()
}
