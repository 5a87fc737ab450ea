package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/luma-pay/luma_pay/internal/ledger"
)

// RegisterWalletRoutes wires the caller's wallet balance and statement views.
func RegisterWalletRoutes(r fiber.Router, ledgerBackend ledger.Ledger) {
	r.Get("/wallet", func(c *fiber.Ctx) error {
		accountID, err := callerID(c)
		if err != nil {
			return err
		}
		balance, err := ledgerBackend.Balance(c.UserContext(), accountID)
		if err != nil {
			return fiber.NewError(http.StatusNotFound, "wallet not found")
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"account_id":        accountID.String(),
			"available_balance": balance.Available,
			"blocked_balance":   balance.Blocked,
			"timestamp":         balance.AsOf,
		})
	})

	r.Get("/statement", func(c *fiber.Ctx) error {
		accountID, err := callerID(c)
		if err != nil {
			return err
		}
		extracts, err := ledgerBackend.Extracts(c.UserContext(), accountID)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		entries := make([]fiber.Map, 0, len(extracts))
		for _, e := range extracts {
			entries = append(entries, fiber.Map{
				"transfer_id":   e.TransferID.String(),
				"value":         e.Value,
				"type":          e.Type,
				"current_value": e.CurrentValue,
				"description":   e.Description,
				"created_at":    e.CreatedAt,
			})
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{"entries": entries})
	})
}

func callerID(c *fiber.Ctx) (uuid.UUID, error) {
	raw, _ := c.Locals("account_id").(string)
	accountID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fiber.NewError(http.StatusUnauthorized, "missing caller identity")
	}
	return accountID, nil
}
