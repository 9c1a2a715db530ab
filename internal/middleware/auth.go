package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ejanapp/api/internal/auth"
	"github.com/ejanapp/api/pkg/response"
)

// AuthMiddleware validates HMAC JWT bearer tokens. The demo runs without an
// identity provider; when no secret is configured the API is open and the
// rate limiter falls back to keying on client IP.
type AuthMiddleware struct {
	jwtSecret string
}

func NewAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{jwtSecret: jwtSecret}
}

// Authenticate validates the JWT token from the Authorization header.
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m.jwtSecret == "" {
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return response.Unauthorized(c, "Missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return response.Unauthorized(c, "Invalid authorization header format")
		}

		claims, err := auth.ValidateToken(parts[1], m.jwtSecret)
		if err != nil {
			return response.Unauthorized(c, "Invalid or expired token")
		}

		c.Locals("userId", claims.UserID)
		c.Locals("email", claims.Email)
		c.Locals("claims", claims)
		return c.Next()
	}
}

// GetUserID extracts user ID from context.
func GetUserID(c *fiber.Ctx) string {
	if userID, ok := c.Locals("userId").(string); ok {
		return userID
	}
	return ""
}

// GenerateToken creates a new JWT token (useful for testing).
func (m *AuthMiddleware) GenerateToken(userID, email string) (string, error) {
	if m.jwtSecret == "" {
		return "", jwt.ErrTokenNotValidYet
	}

	claims := auth.Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "ejan-api",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.jwtSecret))
}
