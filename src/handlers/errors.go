package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/Pilmik/order-book-parser/src/engine"
	"github.com/Pilmik/order-book-parser/src/models"
	"github.com/Pilmik/order-book-parser/src/parser"
)

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// statusFor maps engine error kinds to HTTP codes: malformed input is 400,
// a well-formed book that breaks a rule is 422, an empty opposite side is 409.
func statusFor(err error) int {
	kind, ok := engine.KindOf(err)
	if !ok {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return fiber.StatusBadRequest
		}
		return fiber.StatusInternalServerError
	}
	switch kind {
	case engine.KindParse, engine.KindDecimal, engine.KindMissingSection:
		return fiber.StatusBadRequest
	case engine.KindNotEnoughLiquidity:
		return fiber.StatusConflict
	default:
		return fiber.StatusUnprocessableEntity
	}
}

func errorResponse(err error) models.ErrorResponse {
	resp := models.ErrorResponse{Error: err.Error()}
	if kind, ok := engine.KindOf(err); ok {
		resp.Kind = kind.String()
	}

	var syntaxErr *parser.SyntaxError
	if errors.As(err, &syntaxErr) {
		resp.Line = syntaxErr.Pos.Line
		resp.Column = syntaxErr.Pos.Column
		resp.Expected = syntaxErr.Expected
	}
	return resp
}

func writeError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		return c.Status(status).JSON(models.ErrorResponse{Error: "Internal server error"})
	}
	return c.Status(status).JSON(errorResponse(err))
}
