package report

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nile-pay/nile_pay/internal/ledger"
)

// Handler exposes the stored daily reports.
type Handler struct {
	store Store
}

// NewHandler builds a report HTTP handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

type reportResponse struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Period    string    `json:"period"`
	CreditSum string    `json:"credit_sum"`
	DebitSum  string    `json:"debit_sum"`
	CreatedAt time.Time `json:"created_at"`
}

// List returns stored reports, newest period first.
func (h *Handler) List(c *fiber.Ctx) error {
	limit, err := queryInt(c, "limit", 50)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	reports, err := h.store.List(c.UserContext(), limit, offset)
	if err != nil {
		if errors.Is(err, ledger.ErrStorage) {
			return fiber.NewError(http.StatusBadGateway, "storage temporarily unavailable")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	out := make([]reportResponse, 0, len(reports))
	for _, r := range reports {
		out = append(out, reportResponse{
			ID:        r.ID,
			AccountID: r.AccountID,
			Period:    r.Period.UTC().Format("2006-01-02"),
			CreditSum: r.CreditSum.StringFixed(2),
			DebitSum:  r.DebitSum.StringFixed(2),
			CreatedAt: r.CreatedAt,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"count":   len(out),
		"results": out,
	})
}

func queryInt(c *fiber.Ctx, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New(key + " must be a non-negative integer")
	}
	return n, nil
}
