package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

var corsMethods = []string{
	fiber.MethodGet,
	fiber.MethodPost,
	fiber.MethodPut,
	fiber.MethodPatch,
	fiber.MethodDelete,
	fiber.MethodHead,
	fiber.MethodOptions,
}

// CORS allows the given browser origins with credentials and any method.
// Preflight requests get their requested headers echoed back.
func CORS(origins []string) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     strings.Join(origins, ","),
		AllowCredentials: true,
		AllowMethods:     strings.Join(corsMethods, ","),
		ExposeHeaders:    strings.Join([]string{RequestIDHeader, fiber.HeaderContentDisposition}, ","),
	})
}
