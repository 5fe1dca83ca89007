package serverutils

import (
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"support-copilot-be/pkg/identity"
)

// IdentityMiddleware extracts the already-authenticated (tenant_id, role)
// claims from the bearer token. The service never authenticates users itself;
// it only consumes the identity minted upstream.
func IdentityMiddleware(ctx *fiber.Ctx) error {
	authHeader := ctx.Get("Authorization")
	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Missing token"})
	}
	tokenStr := authHeader[7:]

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(os.Getenv("JWT_SECRET")), nil
	})

	if err != nil || !token.Valid {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid token"})
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid claims"})
	}

	tenantID, _ := claims["tenant_id"].(string)
	role, _ := claims["role"].(string)

	id, err := identity.New(tenantID, role)
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Token missing tenant or role"})
	}

	ctx.Locals("identity", id)
	return ctx.Next()
}

// IdentityFromCtx returns the identity stored by IdentityMiddleware.
func IdentityFromCtx(ctx *fiber.Ctx) (identity.Identity, bool) {
	id, ok := ctx.Locals("identity").(identity.Identity)
	return id, ok
}
