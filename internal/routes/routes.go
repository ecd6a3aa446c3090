package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nile-pay/nile_pay/internal/account"
	"github.com/nile-pay/nile_pay/internal/config"
	"github.com/nile-pay/nile_pay/internal/events"
	"github.com/nile-pay/nile_pay/internal/ledger"
	"github.com/nile-pay/nile_pay/internal/middleware"
	"github.com/nile-pay/nile_pay/internal/report"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg       config.Config
	DB        *pgxpool.Pool
	Cache     *redis.Client
	Publisher events.Publisher
	Logger    *slog.Logger
}

// Setup configures middlewares and all application routes. With a nil DB the
// stores fall back to in-memory implementations (dev and tests only).
func Setup(app *fiber.App, d Deps) error {
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	RegisterHealthRoutes(app, d)

	var (
		ledgerStore ledger.Store
		reportStore report.Store
	)
	if d.DB != nil {
		ledgerStore = ledger.NewPostgresStore(d.DB)
		reportStore = report.NewPostgresStore(d.DB)
	} else {
		mem := ledger.NewMemoryStore()
		ledgerStore = mem
		reportStore = report.NewMemoryStore(mem)
	}

	engine := ledger.NewEngine(ledgerStore, d.Publisher, d.Logger)
	accountSvc := account.NewService(ledgerStore)
	accountHandler := account.NewHandler(accountSvc, engine)
	reportHandler := report.NewHandler(reportStore)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterWalletRoutes(api, accountHandler)
	RegisterReportRoutes(api, reportHandler)

	return nil
}
