package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/garyjia/branch-forms/internal/application/service"
	"github.com/garyjia/branch-forms/internal/domain/entity"
)

const actorKey = "actor"

// TokenManager issues and verifies HS256 bearer tokens whose subject is a user id
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a token manager
func NewTokenManager(secret, issuer string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token for the user
func (m *TokenManager) Issue(userID string) (string, error) {
	now := m.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    m.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// Verify parses the token and returns its subject
func (m *TokenManager) Verify(tokenString string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// identityMiddleware resolves the bearer token into an ActorContext stored on the request
func identityMiddleware(tokens *TokenManager, profiles service.ProfileService, logger Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Error: "authorization is missing"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Error: "expected 'Bearer <token>'"})
			return
		}

		userID, err := tokens.Verify(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Error: "invalid token"})
			return
		}

		actor, err := profiles.Resolve(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, service.ErrProfileNotFound) {
				c.AbortWithStatusJSON(http.StatusForbidden, Response{Error: "no profile for this user"})
				return
			}
			logger.Error("Failed to resolve profile", "user_id", userID, "error", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, Response{Error: "profile lookup failed", Retry: true})
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

// actorFrom returns the actor resolved by identityMiddleware
func actorFrom(c *gin.Context) entity.ActorContext {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(entity.ActorContext); ok {
			return actor
		}
	}
	return entity.ActorContext{}
}
