package middleware

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	"github.com/tracksandtaps/taps_core/internal/obs"
)

const RequestIDHeader = "X-Request-ID"

// RequestID tags each request with an id, reusing the caller's header when present,
// and stores it in the user context for obs.Time. The id outlives the request when a
// navigation session keeps the context, so it must not alias fasthttp's buffers.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := utils.CopyString(c.Get(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDHeader, id)
		c.SetUserContext(context.WithValue(c.UserContext(), obs.RequestIDKey, id))
		return c.Next()
	}
}
