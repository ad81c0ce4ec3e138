package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/knowtix/billing-service/internal/domain"
	"github.com/knowtix/billing-service/pkg/logger"
	"github.com/knowtix/billing-service/pkg/res"
)

const (
	identityKey      = "identity"
	authHeaderPrefix = "Bearer "
)

// TokenValidator turns a session token into claims.
type TokenValidator interface {
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims are the session token claims. Subject is the user id.
type TokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTMiddleware authenticates requests from a Bearer token or the session cookie.
type JWTMiddleware struct {
	cookieName string
	log        *logger.Logger
	validator  TokenValidator
}

func NewJWTMiddleware(cookieName string, validator TokenValidator, log *logger.Logger) *JWTMiddleware {
	return &JWTMiddleware{
		cookieName: cookieName,
		log:        log,
		validator:  validator,
	}
}

// RequireAuth aborts with 401 unless the request carries a valid token, and
// stores the caller's domain.Identity on the gin context. A validator without
// a secret aborts with 500.
func (m *JWTMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := m.tokenFrom(c)
		if tokenString == "" {
			m.handleAuthError(c, errors.New("missing session token"))
			return
		}

		claims, err := m.validator.Validate(tokenString)
		if errors.Is(err, domain.ErrNotConfigured) {
			res.JsonErrorResponse(c.Writer, res.ErrorResponse{Error: "Internal server error"}, http.StatusInternalServerError,
				fmt.Errorf("%s %s: %w", c.Request.Method, c.Request.URL.Path, err), m.log)
			c.Abort()
			return
		}
		if err != nil {
			m.handleAuthError(c, err)
			return
		}
		if claims.Subject == "" {
			m.handleAuthError(c, errors.New("user id (sub) missing in token"))
			return
		}

		c.Set(identityKey, domain.Identity{UserID: claims.Subject, Email: claims.Email})
		c.Next()
	}
}

func (m *JWTMiddleware) tokenFrom(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, authHeaderPrefix) {
		return strings.TrimPrefix(header, authHeaderPrefix)
	}
	if m.cookieName != "" {
		if cookie, err := c.Cookie(m.cookieName); err == nil {
			return cookie
		}
	}
	return ""
}

func (m *JWTMiddleware) handleAuthError(c *gin.Context, cause error) {
	res.JsonErrorResponse(c.Writer, res.ErrorResponse{Error: "Unauthorized"}, http.StatusUnauthorized,
		fmt.Errorf("%s %s: %w", c.Request.Method, c.Request.URL.Path, cause), m.log)
	c.Abort()
}

// IdentityFrom returns the identity stored by RequireAuth.
func IdentityFrom(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	id, ok := v.(domain.Identity)
	return id, ok && id.UserID != ""
}

// HMACTokenValidator validates HS256 session tokens.
type HMACTokenValidator struct {
	Secret []byte
}

func (v *HMACTokenValidator) Validate(tokenString string) (*TokenClaims, error) {
	if len(v.Secret) == 0 {
		return nil, fmt.Errorf("auth secret: %w", domain.ErrNotConfigured)
	}

	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.Secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, errors.New("malformed token")
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, errors.New("invalid token signature")
		case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, errors.New("token expired")
		default:
			return nil, fmt.Errorf("invalid token: %w", err)
		}
	}

	if claims, ok := token.Claims.(*TokenClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token claims")
}
