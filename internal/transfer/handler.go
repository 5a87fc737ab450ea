package transfer

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/luma-pay/luma_pay/internal/ledger"
)

const dateLayout = "2006-01-02"

// Handler exposes transfer endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a transfer handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type submitRequest struct {
	PayeeID        string `json:"payee_id"`
	Amount         int64  `json:"amount"`
	SchedulingDate string `json:"scheduling_date"`
	Description    string `json:"description"`
}

type transferResponse struct {
	ID             string `json:"id"`
	SchedulingDate string `json:"scheduling_date"`
	PayeeID        string `json:"payee_id"`
	Amount         int64  `json:"amount"`
	Status         string `json:"status"`
}

func toResponse(tr ledger.Transfer) transferResponse {
	return transferResponse{
		ID:             tr.ID.String(),
		SchedulingDate: tr.SchedulingDate.Format(dateLayout),
		PayeeID:        tr.PayeeID.String(),
		Amount:         tr.Amount,
		Status:         tr.Status,
	}
}

// Submit admits a transfer from the authenticated payer.
func (h *Handler) Submit(c *fiber.Ctx) error {
	var req submitRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	payerID, _ := c.Locals("account_id").(string)
	if payerID == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing payer identity")
	}

	var schedulingDate time.Time
	if req.SchedulingDate != "" {
		parsed, err := time.Parse(dateLayout, req.SchedulingDate)
		if err != nil {
			return fiber.NewError(http.StatusUnprocessableEntity, "scheduling_date must be YYYY-MM-DD")
		}
		schedulingDate = parsed
	}

	tr, err := h.service.Submit(c.UserContext(), SubmitInput{
		PayerID:        payerID,
		PayeeID:        req.PayeeID,
		Amount:         req.Amount,
		SchedulingDate: schedulingDate,
		Description:    req.Description,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidPayee), errors.Is(err, ErrInvalidSchedule), errors.Is(err, ErrInvalidAmount):
			return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return fiber.NewError(http.StatusNotAcceptable, "insufficient balance")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusCreated).JSON(toResponse(tr))
}

// List returns the caller's submitted transfers.
func (h *Handler) List(c *fiber.Ctx) error {
	callerID, _ := c.Locals("account_id").(string)
	if callerID == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing caller identity")
	}

	transfers, err := h.service.List(c.UserContext(), callerID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	out := make([]transferResponse, 0, len(transfers))
	for _, tr := range transfers {
		out = append(out, toResponse(tr))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"transfers": out})
}

// Get returns one transfer the caller is party to.
func (h *Handler) Get(c *fiber.Ctx) error {
	callerID, _ := c.Locals("account_id").(string)
	if callerID == "" {
		return fiber.NewError(http.StatusUnauthorized, "missing caller identity")
	}
	transferID, err := uuid.Parse(c.Params("transferId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid transfer id")
	}

	tr, err := h.service.Get(c.UserContext(), callerID, transferID)
	if err != nil {
		if errors.Is(err, ledger.ErrTransferNotFound) {
			return fiber.NewError(http.StatusNotFound, "transfer not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toResponse(tr))
}
