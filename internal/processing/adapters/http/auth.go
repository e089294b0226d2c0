package http

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/Apurer/go-entity-processors/internal/shared/errors"
)

const (
	bearerPrefix = "bearer"
	// EngineSubjectKey holds the authenticated engine subject in the gin context.
	EngineSubjectKey = "engine.subject"
)

// EngineAuth validates HS256 bearer tokens presented by the workflow engine.
type EngineAuth struct {
	secret []byte
	issuer string
	leeway time.Duration
}

// NewEngineAuth returns nil when no secret is configured, which leaves routes open.
func NewEngineAuth(secret, issuer string) *EngineAuth {
	if strings.TrimSpace(secret) == "" {
		return nil
	}
	return &EngineAuth{secret: []byte(secret), issuer: issuer, leeway: 30 * time.Second}
}

// Middleware rejects requests without a valid engine token.
func (a *EngineAuth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		subject, err := a.authenticate(c.GetHeader("Authorization"))
		if err != nil {
			apierrors.Respond(c, apierrors.ErrUnauthorized.WithDetail(err.Error()))
			c.Abort()
			return
		}
		c.Set(EngineSubjectKey, subject)
		c.Next()
	}
}

func (a *EngineAuth) authenticate(header string) (string, error) {
	tokenString, err := extractBearerToken(header)
	if err != nil {
		return "", err
	}
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(a.leeway),
	}
	if a.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(a.issuer))
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, parserOpts...)
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return "", errors.New("invalid token")
	}
	if claims.Subject == "" {
		return "", errors.New("missing subject claim")
	}
	return claims.Subject, nil
}

func extractBearerToken(header string) (string, error) {
	if header == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], bearerPrefix) {
		return "", errors.New("invalid authorization format")
	}
	return parts[1], nil
}
