package server

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	tenantdomain "github.com/planhaus/planhaus/internal/tenant/domain"
)

const (
	// HeaderEngineSecret carries the shared secret on worker callbacks.
	HeaderEngineSecret  = "X-Engine-Secret"
	contextPrincipalKey = "principal"

	// tokenAudience is the audience the auth provider stamps on end-user
	// tokens.
	tokenAudience = "authenticated"
)

// AuthRequired admits end users carrying a valid bearer token.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := s.userPrincipal(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.Set(contextPrincipalKey, principal)
		c.Next()
	}
}

// AuthOrEngineRequired additionally admits the compute engine calling back
// with the shared server-to-server secret.
func (s *Server) AuthOrEngineRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.isEngineCall(c) {
			c.Set(contextPrincipalKey, tenantdomain.EnginePrincipal())
			c.Next()
			return
		}
		principal, err := s.userPrincipal(c)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.Set(contextPrincipalKey, principal)
		c.Next()
	}
}

func principalFrom(c *gin.Context) tenantdomain.Principal {
	if v, ok := c.Get(contextPrincipalKey); ok {
		if p, ok := v.(tenantdomain.Principal); ok {
			return p
		}
	}
	return tenantdomain.Principal{}
}

// isEngineCall accepts the secret either in its own header or as an
// "Engine <secret>" authorization scheme.
func (s *Server) isEngineCall(c *gin.Context) bool {
	if s.cfg.EngineSecret == "" {
		return false
	}
	secret := strings.TrimSpace(c.GetHeader(HeaderEngineSecret))
	if secret == "" {
		auth := strings.TrimSpace(c.GetHeader("Authorization"))
		if strings.HasPrefix(auth, "Engine ") {
			secret = strings.TrimSpace(strings.TrimPrefix(auth, "Engine "))
		}
	}
	if secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(s.cfg.EngineSecret)) == 1
}

func (s *Server) userPrincipal(c *gin.Context) (tenantdomain.Principal, error) {
	auth := strings.TrimSpace(c.GetHeader("Authorization"))
	if !strings.HasPrefix(auth, "Bearer ") {
		return tenantdomain.Principal{}, ErrUnauthorized
	}
	raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	if raw == "" || s.cfg.AuthJWTSecret == "" {
		return tenantdomain.Principal{}, ErrUnauthorized
	}

	token, err := jwt.Parse(raw,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(s.cfg.AuthJWTSecret), nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithAudience(tokenAudience),
	)
	if err != nil || !token.Valid {
		return tenantdomain.Principal{}, ErrUnauthorized
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return tenantdomain.Principal{}, ErrUnauthorized
	}
	return tenantdomain.UserPrincipal(subject), nil
}
