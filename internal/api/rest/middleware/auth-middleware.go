package middleware

import (
	"strings"

	"github.com/WinterTamarind/auth_service/internal/services"
	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware resolves the Authorization header to a user by exact
// session-token lookup. There is nothing to decode: tokens are opaque.
func AuthMiddleware(svc services.AuthService) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		tokenStr := strings.TrimSpace(ctx.Get("Authorization"))

		user, err := svc.Authenticate(tokenStr)
		if err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "unauthorized",
			})
		}

		ctx.Locals("userID", user.ID)
		ctx.Locals("user", user)
		return ctx.Next()
	}
}
