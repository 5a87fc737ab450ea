package routes

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/luma-pay/luma_pay/internal/account"
	"github.com/luma-pay/luma_pay/internal/config"
)

// RegisterAccountRoutes wires onboarding. Registration provisions the
// account's wallet; seeded starting balances are only honoured in dev.
func RegisterAccountRoutes(r fiber.Router, cfg config.Config, accounts *account.Service, logger *slog.Logger) {
	r.Post("/accounts/register", func(c *fiber.Ctx) error {
		var req struct {
			Kind           string `json:"kind"`
			Name           string `json:"name"`
			Email          string `json:"email"`
			Document       string `json:"document"`
			Password       string `json:"password"`
			InitialBalance int64  `json:"initial_balance"`
		}
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}

		seed := int64(0)
		if cfg.IsDev() {
			seed = req.InitialBalance
		}

		acc, err := accounts.Register(c.UserContext(), account.RegisterInput{
			Kind:           req.Kind,
			Name:           req.Name,
			Email:          req.Email,
			Document:       req.Document,
			Password:       req.Password,
			InitialBalance: seed,
		})
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}

		if logger != nil {
			logger.Info("account registered",
				slog.String("account_id", acc.ID),
				slog.String("kind", acc.Kind),
			)
		}
		return c.Status(http.StatusCreated).JSON(fiber.Map{
			"account_id": acc.ID,
			"kind":       acc.Kind,
			"name":       acc.Name,
			"email":      acc.Email,
		})
	})
}
