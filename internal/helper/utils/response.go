package utils

import "github.com/gofiber/fiber/v2"

func ResponseError(ctx *fiber.Ctx, status int, msg string) error {
	return ctx.Status(status).JSON(fiber.Map{
		"message": msg,
	})
}

func ResponseSuccess(ctx *fiber.Ctx, status int, body interface{}) error {
	return ctx.Status(status).JSON(body)
}
