package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/EcrTech/FL-sub005/internal/domain/access"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const principalKey = "principal"

// Claims carries the caller identity. Subject is the user id.
type Claims struct {
	OrgID string   `json:"org_id"`
	Role  string   `json:"role"`
	Perms []string `json:"perms,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for p. Used by the token command and tests.
func IssueToken(secret string, p access.Principal, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("empty signing secret")
	}
	now := time.Now().UTC()
	perms := make([]string, 0, len(p.Extra))
	for _, g := range p.Extra {
		perms = append(perms, string(g))
	}
	claims := Claims{
		OrgID: p.OrgID,
		Role:  string(p.Role),
		Perms: perms,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func parseToken(secret, raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired(), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" || claims.OrgID == "" {
		return nil, errors.New("token missing subject or org")
	}
	return claims, nil
}

// JWTAuth rejects requests without a valid bearer token and stores the
// caller's Principal on the context.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(h, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token", "code": "unauthenticated"})
			}
			claims, err := parseToken(secret, strings.TrimSpace(raw))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token", "code": "unauthenticated"})
			}
			p := access.Principal{
				UserID: claims.Subject,
				OrgID:  claims.OrgID,
				Role:   access.Role(claims.Role),
			}
			for _, g := range claims.Perms {
				p.Extra = append(p.Extra, access.Permission(g))
			}
			c.Set(principalKey, p)
			return next(c)
		}
	}
}

// PrincipalFrom returns the authenticated caller, or the zero Principal
// which fails every permission check.
func PrincipalFrom(c echo.Context) access.Principal {
	p, _ := c.Get(principalKey).(access.Principal)
	return p
}

// WithPrincipal sets p on the context; handler tests use it in place of JWTAuth.
func WithPrincipal(c echo.Context, p access.Principal) {
	c.Set(principalKey, p)
}
