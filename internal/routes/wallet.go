package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/nile-pay/nile_pay/internal/account"
)

// RegisterWalletRoutes wires the wallet resource and its ledger actions.
func RegisterWalletRoutes(router fiber.Router, handler *account.Handler) {
	wallets := router.Group("/wallets")
	wallets.Post("/", handler.Create)
	wallets.Get("/", handler.List)
	wallets.Get("/:name", handler.Get)
	wallets.Get("/:name/balance", handler.Balance)
	wallets.Post("/:name/deposit", handler.Deposit)
	wallets.Post("/:name/transfer", handler.Transfer)
	wallets.Get("/:name/history", handler.History)
}
