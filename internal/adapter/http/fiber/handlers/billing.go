package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/laundrotech/intel-gateway/internal/ports"
	"github.com/laundrotech/intel-gateway/internal/service/billing"
)

type BillingHandler struct {
	service ports.BillingService
	log     *zap.Logger
}

func NewBillingHandler(service ports.BillingService, log *zap.Logger) *BillingHandler {
	return &BillingHandler{
		service: service,
		log:     log,
	}
}

type CreateIntentRequest struct {
	DepthLevel int `json:"depth_level"`
}

type RefundRequest struct {
	Reason string `json:"reason"`
}

// CreateIntent creates a payment intent for a paid tier so the client can
// collect payment details before confirming the purchase.
func (h *BillingHandler) CreateIntent(c *fiber.Ctx) error {
	var req CreateIntentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	userID := c.Locals("user_id").(string)

	intent, err := h.service.CreateTierIntent(c.Context(), userID, req.DepthLevel)
	if err != nil {
		if errors.Is(err, billing.ErrTierNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		if errors.Is(err, billing.ErrTierIsFree) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
		}
		h.log.Error("Failed to create payment intent", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Payment provider unavailable"})
	}

	return c.JSON(intent)
}

func (h *BillingHandler) GetHistory(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	purchases, err := h.service.GetHistory(c.Context(), userID, limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{"purchases": purchases})
}

// Refund refunds a completed purchase. Admin only, enforced by middleware.
func (h *BillingHandler) Refund(c *fiber.Ctx) error {
	var req RefundRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	purchase, err := h.service.RefundPurchase(c.Context(), c.Params("id"), req.Reason)
	if err != nil {
		if errors.Is(err, billing.ErrPurchaseNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		if errors.Is(err, billing.ErrNotRefundable) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
		}
		h.log.Error("Refund failed", zap.String("purchase_id", c.Params("id")), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(purchase)
}
