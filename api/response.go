package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/ragchat/pkg/coreerr"
)

// Result values of Meta.Result.
const (
	ResultSuccess = "SUCCESS"
	ResultFail    = "FAIL"
)

// Response is the envelope around every API response body.
type Response struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

// Meta describes the outcome of a request.
type Meta struct {
	Result    string `json:"result"`
	ErrorCode string `json:"errorCode,omitempty"`
	Message   string `json:"message,omitempty"`
}

func success(c *fiber.Ctx, data any) error {
	return c.JSON(Response{Meta: Meta{Result: ResultSuccess}, Data: data})
}

// fail renders err with the status bound to its kind. Errors without a kind
// render as INTERNAL_ERROR so upstream details never leak to clients.
func fail(c *fiber.Ctx, err error) error {
	var e *coreerr.Error
	if !errors.As(err, &e) {
		e = coreerr.New(coreerr.InternalError)
	}

	return c.Status(e.Status()).JSON(Response{
		Meta: Meta{
			Result:    ResultFail,
			ErrorCode: e.Kind.String(),
			Message:   e.Message,
		},
	})
}

// errorHandler renders errors returned by routing and middleware, such as
// unknown routes, in the same envelope as handler errors.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		kind := coreerr.InternalError
		switch fe.Code {
		case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
			kind = coreerr.NotFound
		case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge:
			kind = coreerr.BadRequest
		}
		return c.Status(fe.Code).JSON(Response{
			Meta: Meta{
				Result:    ResultFail,
				ErrorCode: kind.String(),
				Message:   fe.Message,
			},
		})
	}
	return fail(c, err)
}
