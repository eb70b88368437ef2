package devserver

import (
	"cherrypick/client/internal/models"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	tokenTTL    = 72 * time.Hour
	tokenIssuer = "cherrypick-devserver"
	userIDKey   = "userID"
)

// generateJWT issues an HS256 token carrying the userId and nickname claims.
func generateJWT(secret []byte, user models.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":      user.PhoneNumber,
		"userId":   user.ID,
		"nickname": user.Nickname,
		"exp":      time.Now().Add(tokenTTL).Unix(),
		"iss":      tokenIssuer,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// validateAndGetUserID checks the signature and expiry and returns the userId claim.
func validateAndGetUserID(secret []byte, tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
	if err != nil {
		return 0, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errors.New("unexpected claims type")
	}
	id, ok := claims["userId"].(float64)
	if !ok {
		return 0, errors.New("token has no userId claim")
	}
	return int64(id), nil
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") || len(authHeader) == len("Bearer ") {
		return "", false
	}
	return authHeader[len("Bearer "):], true
}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller's id in the context.
func (h *Handler) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, failure("Authorization token missing"))
			return
		}
		userID, err := validateAndGetUserID(h.Secret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, failure("Invalid token or expired"))
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

func currentUser(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}

type loginRequest struct {
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	Password    string `json:"password" binding:"required"`
}

// Login verifies credentials and returns a token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, failure("phoneNumber and password are required"))
		return
	}

	user, err := h.Store.Authenticate(req.PhoneNumber, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, failure(err.Error()))
		return
	}

	token, err := generateJWT(h.Secret, user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, failure("Failed to create token"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"userId":   user.ID,
		"nickname": user.Nickname,
		"message":  "login successful",
	})
}

func (h *Handler) Profile(c *gin.Context) {
	user, ok := h.Store.User(currentUser(c))
	if !ok {
		c.JSON(http.StatusNotFound, failure("user not found"))
		return
	}
	c.JSON(http.StatusOK, user)
}
