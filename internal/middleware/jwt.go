package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/luma-pay/luma_pay/internal/account"
	"github.com/luma-pay/luma_pay/internal/auth"
	"github.com/luma-pay/luma_pay/internal/config"
)

// JWTAuth validates bearer tokens and threads the authenticated account id
// into the request context. Downstream handlers use it as the explicit payer
// identity; nothing in the core relies on ambient session state.
func JWTAuth(cfg config.Config, accounts account.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		tokenStr := strings.TrimSpace(authz[len("Bearer "):])
		claims, err := auth.ParseAndVerifyHS256(tokenStr, []byte(cfg.JWTSecret))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}
		sub, _ := claims["sub"].(string)
		verFloat, _ := claims["ver"].(float64)
		ver := int(verFloat)

		acc, err := accounts.FindByID(c.UserContext(), sub)
		if err != nil || acc.TokenVersion != ver {
			return fiber.NewError(http.StatusUnauthorized, "token invalidated")
		}

		c.Locals("account_id", sub)
		c.Locals("account_kind", acc.Kind)
		return c.Next()
	}
}
