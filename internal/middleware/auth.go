package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"carrental/internal/domain"
)

const authUserKey = "authUser"

// Claims are the bearer token claims. The subject is the user id.
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Auth returns middleware that requires a valid HS256 bearer token and
// stores the caller in the context.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := ParseToken(c.GetHeader("Authorization"), secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}
		c.Set(authUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the authenticated caller.
func CurrentUser(c *gin.Context) (domain.AuthUser, bool) {
	v, ok := c.Get(authUserKey)
	if !ok {
		return domain.AuthUser{}, false
	}
	user, ok := v.(domain.AuthUser)
	return user, ok
}

// ParseToken validates an Authorization header value and returns its user.
func ParseToken(header, secret string) (domain.AuthUser, error) {
	if secret == "" {
		return domain.AuthUser{}, errors.New("auth secret not configured")
	}

	tokenStr := strings.TrimSpace(header)
	if len(tokenStr) > 7 && strings.EqualFold(tokenStr[:7], "bearer ") {
		tokenStr = strings.TrimSpace(tokenStr[7:])
	} else {
		return domain.AuthUser{}, errors.New("missing bearer token")
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return domain.AuthUser{}, err
	}
	if claims.Subject == "" {
		return domain.AuthUser{}, errors.New("token without subject")
	}

	return domain.AuthUser{
		ID:    claims.Subject,
		Email: claims.Email,
		Name:  claims.Name,
	}, nil
}

// IssueToken signs a bearer token for user.
func IssueToken(secret string, user domain.AuthUser, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: user.Email,
		Name:  user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
