package handlers

import (
	"errors"
	"time"

	"github.com/WinterTamarind/auth_service/internal/api/rest/middleware"
	"github.com/WinterTamarind/auth_service/internal/domain"
	"github.com/WinterTamarind/auth_service/internal/dto"
	"github.com/WinterTamarind/auth_service/internal/helper/utils"
	"github.com/WinterTamarind/auth_service/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	svc services.AuthService
}

func NewAuthHandler(svc services.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

func (h *AuthHandler) SetupRoutes(app *fiber.App) {
	app.Post("/register", h.Register)
	app.Post("/verify-otp", h.VerifyOtp)
	app.Post("/login", h.Login)

	app.Get("/profile", middleware.AuthMiddleware(h.svc), h.Profile)
}

func (h *AuthHandler) Register(ctx *fiber.Ctx) error {
	var requestBody dto.RegisterRequest

	if err := ctx.BodyParser(&requestBody); err != nil {
		return utils.ResponseError(ctx, fiber.StatusUnprocessableEntity, "please provide valid inputs")
	}

	if err := h.svc.Register(requestBody); err != nil {
		return utils.ResponseError(ctx, statusForError(err), err.Error())
	}

	return utils.ResponseSuccess(ctx, fiber.StatusCreated, fiber.Map{
		"message": "User registered. OTP sent.",
	})
}

func (h *AuthHandler) VerifyOtp(ctx *fiber.Ctx) error {
	var requestBody dto.VerifyOtpRequest

	if err := ctx.BodyParser(&requestBody); err != nil {
		return utils.ResponseError(ctx, fiber.StatusUnprocessableEntity, "email and otp are required")
	}

	token, err := h.svc.VerifyOtp(requestBody.Email, requestBody.Otp)
	if err != nil {
		return utils.ResponseError(ctx, statusForError(err), err.Error())
	}

	return utils.ResponseSuccess(ctx, fiber.StatusOK, fiber.Map{
		"message": "Email verified.",
		"token":   token,
	})
}

func (h *AuthHandler) Login(ctx *fiber.Ctx) error {
	var requestBody dto.UserLogin

	if err := ctx.BodyParser(&requestBody); err != nil {
		return utils.ResponseError(ctx, fiber.StatusUnauthorized, "invalid credentials")
	}

	token, err := h.svc.Login(requestBody)
	if err != nil {
		return utils.ResponseError(ctx, statusForError(err), err.Error())
	}

	return utils.ResponseSuccess(ctx, fiber.StatusOK, fiber.Map{
		"message": "Login successful",
		"token":   token,
	})
}

func (h *AuthHandler) Profile(ctx *fiber.Ctx) error {
	user, ok := ctx.Locals("user").(*domain.User)
	if !ok || user == nil {
		return utils.ResponseError(ctx, fiber.StatusUnauthorized, "unauthorized")
	}

	return utils.ResponseSuccess(ctx, fiber.StatusOK, dto.UserProfileResponse{
		ID:         user.ID,
		Name:       user.Name,
		Email:      user.Email,
		IsVerified: user.IsVerified,
		CreatedAt:  user.CreatedAt.Format(time.RFC3339),
	})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrDuplicateEmail),
		errors.Is(err, domain.ErrOtpExpired),
		errors.Is(err, domain.ErrOtpInvalid):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, domain.ErrNotVerified):
		return fiber.StatusForbidden
	case errors.Is(err, domain.ErrNotificationFailed):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
