package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/luma-pay/luma_pay/internal/transfer"
)

// RegisterTransferRoutes wires the transfer endpoints.
func RegisterTransferRoutes(r fiber.Router, h *transfer.Handler) {
	r.Post("/transfers", h.Submit)
	r.Get("/transfers", h.List)
	r.Get("/transfers/:transferId", h.Get)
}
