package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nile-pay/nile_pay/internal/report"
)

// RegisterReportRoutes wires the stored daily report listing.
func RegisterReportRoutes(router fiber.Router, handler *report.Handler) {
	router.Get("/reports", handler.List)
}
