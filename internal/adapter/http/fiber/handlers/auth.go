package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/laundrotech/intel-gateway/internal/domain"
	"github.com/laundrotech/intel-gateway/internal/ports"
)

type AuthHandler struct {
	service ports.AuthService
	email   ports.EmailService
	log     *zap.Logger
}

func NewAuthHandler(service ports.AuthService, email ports.EmailService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		email:   email,
		log:     log,
	}
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Company  string `json:"company"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Email and password are required"})
	}

	token, refreshToken, err := h.service.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		h.log.Warn("Login failed", zap.String("email", req.Email), zap.Error(err))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	user, _ := h.service.ValidateToken(c.Context(), token)

	return c.JSON(fiber.Map{
		"tokens": fiber.Map{
			"accessToken":  token,
			"refreshToken": refreshToken,
		},
		"user": user,
	})
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Email and password are required"})
	}

	user := domain.User{
		Name:          req.Name,
		Email:         req.Email,
		Company:       req.Company,
		Password:      req.Password,
		NotifyByEmail: true,
	}
	plainPassword := req.Password

	if err := h.service.Register(c.Context(), &user); err != nil {
		if err.Error() == "email already registered" {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	h.sendWelcome(&user)

	// Auto-login after registration
	token, refreshToken, err := h.service.Login(c.Context(), req.Email, plainPassword)
	if err != nil {
		user.Password = ""
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": user})
	}

	user.Password = ""
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user": user,
		"tokens": fiber.Map{
			"accessToken":  token,
			"refreshToken": refreshToken,
		},
	})
}

func (h *AuthHandler) sendWelcome(user *domain.User) {
	if h.email == nil {
		return
	}
	// Fire and forget so a slow mail provider never delays signup.
	go func(u domain.User) {
		if err := h.email.SendWelcome(context.Background(), &u); err != nil {
			h.log.Warn("Failed to send welcome email",
				zap.String("email", u.Email),
				zap.Error(err),
			)
		}
	}(*user)
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *AuthHandler) RefreshToken(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	token, err := h.service.RefreshToken(c.Context(), req.RefreshToken)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"accessToken":  token,
		"refreshToken": req.RefreshToken,
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user := c.Locals("user")
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Not authenticated"})
	}
	return c.JSON(user)
}
