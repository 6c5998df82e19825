package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/laundrotech/intel-gateway/internal/domain"
	"github.com/laundrotech/intel-gateway/internal/ports"
	"github.com/laundrotech/intel-gateway/internal/service/analysis"
	"github.com/laundrotech/intel-gateway/internal/session"
)

type AnalysisHandler struct {
	service ports.AnalysisService
	log     *zap.Logger
}

func NewAnalysisHandler(service ports.AnalysisService, log *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		service: service,
		log:     log,
	}
}

type SubmitAddressRequest struct {
	Address string `json:"address"`
}

type SelectDepthRequest struct {
	DepthLevel int `json:"depth_level"`
}

func (h *AnalysisHandler) CreateSession(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	sess, err := h.service.CreateSession(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(sess)
}

func (h *AnalysisHandler) GetSession(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	sess, err := h.service.GetSession(c.Context(), userID, c.Params("id"))
	if err != nil {
		return h.flowError(c, err)
	}

	return c.JSON(sess)
}

func (h *AnalysisHandler) SubmitAddress(c *fiber.Ctx) error {
	var req SubmitAddressRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	userID := c.Locals("user_id").(string)

	sess, err := h.service.SubmitAddress(c.Context(), userID, c.Params("id"), req.Address)
	if err != nil {
		return h.flowError(c, err)
	}

	return c.JSON(sess)
}

func (h *AnalysisHandler) SelectDepth(c *fiber.Ctx) error {
	var req SelectDepthRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	userID := c.Locals("user_id").(string)

	sess, err := h.service.SelectDepth(c.Context(), userID, c.Params("id"), req.DepthLevel)
	if err != nil {
		return h.flowError(c, err)
	}

	return c.JSON(sess)
}

func (h *AnalysisHandler) ConfirmPurchase(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	sess, err := h.service.ConfirmPurchase(c.Context(), userID, c.Params("id"))
	if err != nil {
		return h.flowError(c, err)
	}

	return c.JSON(sess)
}

func (h *AnalysisHandler) Reset(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	sess, err := h.service.Reset(c.Context(), userID, c.Params("id"))
	if err != nil {
		return h.flowError(c, err)
	}

	return c.JSON(sess)
}

// flowError maps flow outcomes to HTTP statuses. Validation problems are the
// client's to fix, concurrent operations should be retried after the current
// one settles, and backend fetch failures surface as a bad gateway.
func (h *AnalysisHandler) flowError(c *fiber.Ctx, err error) error {
	if errors.Is(err, analysis.ErrSessionNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
	}
	if errors.Is(err, session.ErrSuperseded) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Session was reset during the operation"})
	}

	var flowErr *domain.FlowError
	if errors.As(err, &flowErr) {
		switch flowErr.Kind {
		case domain.ErrKindValidation:
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": flowErr.Message})
		case domain.ErrKindConcurrentOperation:
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": flowErr.Message})
		case domain.ErrKindFetchFailed:
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": flowErr.Message})
		}
	}

	h.log.Error("Unhandled analysis error", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
}
