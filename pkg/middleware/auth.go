package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/richxcame/roundup/pkg/common"
)

// ClaimsKey is the gin context key holding *Claims after authentication
const ClaimsKey = "claims"

// Claims are the JWT claims accepted by the API. AccountIDs, when present,
// restricts the token to those accounts.
type Claims struct {
	AccountIDs []string `json:"account_ids,omitempty"`
	Role       string   `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates an HS256 bearer token signed with secret
func AuthMiddleware(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			common.ErrorResponse(c, http.StatusUnauthorized, "missing bearer token")
			c.Abort()
			return
		}

		claims := &Claims{}
		_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "token expired"
			}
			common.ErrorResponse(c, http.StatusUnauthorized, msg)
			c.Abort()
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RequireAccountAccess rejects requests whose :accountId is outside the token's accounts.
// Tokens without an account list are service tokens and pass.
func RequireAccountAccess(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := GetClaims(c)
		if !ok {
			common.ErrorResponse(c, http.StatusUnauthorized, "unauthenticated")
			c.Abort()
			return
		}
		if len(claims.AccountIDs) > 0 && !slices.Contains(claims.AccountIDs, c.Param(param)) {
			common.ErrorResponse(c, http.StatusForbidden, "account not permitted for this token")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetClaims returns the authenticated claims, if any
func GetClaims(c *gin.Context) (*Claims, bool) {
	v, exists := c.Get(ClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}
