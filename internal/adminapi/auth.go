package adminapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const accountContextKey = "AccountID"

func hashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(h), err
}

func checkPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// accountClaims carries the account ID a dashboard token was minted for.
type accountClaims struct {
	AccountID string `json:"aid"`
	jwt.RegisteredClaims
}

func generateToken(accountID, secret string, expiresAt time.Time) (string, error) {
	claims := accountClaims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func parseToken(tokenStr, secret string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &accountClaims{}, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if claims, ok := token.Claims.(*accountClaims); ok && token.Valid {
		return claims.AccountID, nil
	}
	return "", jwt.ErrTokenInvalidClaims
}

// AuthMiddleware enforces a bearer token matching the requested account.
// Requests to an account's own sub-resources (/accounts/:id/...) must
// carry a token minted for that same account; there is no cross-account
// admin role in this surface.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header"})
			return
		}

		accountID, err := parseToken(parts[1], secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		if pathID := c.Param("id"); pathID != "" && pathID != accountID {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "token does not authorize this account"})
			return
		}

		c.Set(accountContextKey, accountID)
		c.Next()
	}
}
