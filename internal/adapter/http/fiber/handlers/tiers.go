package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/laundrotech/intel-gateway/internal/catalog"
)

type TierHandler struct {
	catalog *catalog.Catalog
}

func NewTierHandler(cat *catalog.Catalog) *TierHandler {
	return &TierHandler{catalog: cat}
}

// List returns the depth tier catalog, ordered by level
func (h *TierHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"tiers": h.catalog.Tiers()})
}
