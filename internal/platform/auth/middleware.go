package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Claims is the token payload issued by the surrounding auth service.
type Claims struct {
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Middleware validates the bearer token with the shared HMAC secret and puts
// the actor into the request context.
func Middleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			tokenStr := strings.TrimPrefix(header, "Bearer ")
			if tokenStr == header {
				return echo.NewHTTPError(http.StatusUnauthorized, "malformed authorization header")
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			actorID, err := uuid.Parse(claims.Subject)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid subject claim")
			}

			switch claims.Role {
			case RoleAdmin, RoleDoctor, RoleReceptionist:
			default:
				return echo.NewHTTPError(http.StatusForbidden, "unknown role")
			}

			ctx := WithActor(c.Request().Context(), Actor{ID: actorID, Role: claims.Role})
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// DevMiddleware grants every request an admin actor. Development only.
func DevMiddleware() echo.MiddlewareFunc {
	devActor := Actor{ID: uuid.New(), Role: RoleAdmin}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor := devActor
			// Allow tests and local tools to impersonate a specific actor.
			if id := c.Request().Header.Get("X-Actor-ID"); id != "" {
				if parsed, err := uuid.Parse(id); err == nil {
					actor.ID = parsed
				}
			}
			if role := c.Request().Header.Get("X-Actor-Role"); role != "" {
				actor.Role = role
			}
			ctx := WithActor(c.Request().Context(), actor)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
